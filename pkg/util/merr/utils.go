// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/xrt-go/pkg/log"
)

const InputErrorFlagKey string = "is_input_error"

// Code returns the error code of the given error.
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case xrtError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	if err, ok := err.(xrtError); ok {
		return err.retriable
	}

	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func WrapErrAsInputError(err error) error {
	if merr, ok := err.(xrtError); ok {
		WithErrorType(InputError)(&merr)
		return merr
	}
	return err
}

func WrapErrAsInputErrorWhen(err error, targets ...xrtError) error {
	if merr, ok := err.(xrtError); ok {
		for _, target := range targets {
			if target.errCode == merr.errCode {
				log.Info("mark error as input error", zap.Error(err))
				WithErrorType(InputError)(&merr)
				return merr
			}
		}
	}
	return err
}

func GetErrorType(err error) ErrorType {
	if merr, ok := err.(xrtError); ok {
		return merr.errType
	}

	return SystemError
}

func WrapErrServiceInternal(reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrServiceInternal, reason)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrServiceUnimplemented(err error) error {
	return wrapFieldsWithDesc(ErrServiceUnimplemented, err.Error())
}

// IO related
func WrapErrIoKeyNotFound(key string, msg ...string) error {
	err := wrapFields(ErrIoKeyNotFound, value("key", key))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrIoFailed(key string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrIoFailed, err.Error(), value("key", key))
}

func WrapErrIoUnexpectEOF(key string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrIoUnexpectEOF, err.Error(), value("key", key))
}

// Parameter related
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func WrapErrParameterMissing[T any](param T, msg ...string) error {
	err := wrapFields(ErrParameterMissing,
		value("missing_param", param),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterTooLarge(name string, msg ...string) error {
	err := wrapFields(ErrParameterTooLarge, value("message", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Process boundary related
func WrapErrCorruptEnvelope(layer string, err error) error {
	desc := "empty input"
	if err != nil {
		desc = err.Error()
	}
	return wrapFieldsWithDesc(ErrCorruptEnvelope, desc, value("layer", layer))
}

// WrapErrWorkerCrashed annotates ErrWorkerCrashed with the worker's exit status and
// the tail of its diagnostic stream.
func WrapErrWorkerCrashed(status fmt.Stringer, stderrTail string) error {
	err := wrapFields(ErrWorkerCrashed, value("status", status))
	if tail := strings.TrimSpace(stderrTail); tail != "" {
		err = errors.Wrap(err, tail)
	}
	return err
}

func WrapErrCrossRuntimeExecution(executable string, reason string, msg ...string) error {
	err := wrapFieldsWithDesc(ErrCrossRuntimeExecution, reason, value("executable", executable))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrNoResultAvailable(msg ...string) error {
	err := error(ErrNoResultAvailable)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrResultMismatch(expected, actual any, msg ...string) error {
	err := wrapFields(ErrResultMismatch,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Serialization & fixture related
func WrapErrFixtureNotFound(ref any, msg ...string) error {
	err := wrapFields(ErrFixtureNotFound, value("fixture", ref))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrFixtureDuplicated(ref any) error {
	return wrapFields(ErrFixtureDuplicated, value("fixture", ref))
}

func WrapErrTypeNotRegistered(typeName string, msg ...string) error {
	err := wrapFields(ErrTypeNotRegistered, value("type", typeName))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrTypeDuplicated(typeName string) error {
	return wrapFields(ErrTypeDuplicated, value("type", typeName))
}

func WrapErrSerializeFailed(typeName string, err error) error {
	return wrapFieldsWithDesc(ErrSerializeFailed, errDesc(err), value("type", typeName))
}

func WrapErrDeserializeFailed(reason string, err error) error {
	return wrapFieldsWithDesc(ErrDeserializeFailed, errDesc(err), value("reason", reason))
}

func WrapErrInvocationFailed(target string, err error) error {
	return wrapFieldsWithDesc(ErrInvocationFailed, errDesc(err), value("target", target))
}

func WrapErrNotInvocable(typeName string, msg ...string) error {
	err := wrapFields(ErrNotInvocable, value("type", typeName))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrProgramInvalid(path string, reason string) error {
	return wrapFieldsWithDesc(ErrProgramInvalid, reason, value("program", path))
}

func WrapErrRuntimeUnavailable(name string, msg ...string) error {
	err := wrapFields(ErrRuntimeUnavailable, value("runtime", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrOperationNotSupported(operation string) error {
	return wrapFields(ErrOperationNotSupported, value("operation", operation))
}

func errDesc(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

func wrapFields(err xrtError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err xrtError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
