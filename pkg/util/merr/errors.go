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
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Service related
	ErrServiceInternal      = newXrtError("service internal error", 5, false)
	ErrServiceUnimplemented = newXrtError("service unimplemented", 10, false)

	// IO related
	ErrIoKeyNotFound = newXrtError("key not found", 1000, false)
	ErrIoFailed      = newXrtError("IO failed", 1001, false)
	ErrIoUnexpectEOF = newXrtError("unexpected EOF", 1002, true)

	// Parameter related
	ErrParameterInvalid  = newXrtError("invalid parameter", 1100, false)
	ErrParameterMissing  = newXrtError("missing parameter", 1101, false)
	ErrParameterTooLarge = newXrtError("parameter too large", 1102, false)

	// Process boundary related.
	// None of these are retriable: a failed foreign runtime or worker is deterministic
	// in practice and must surface to the caller as-is.
	ErrCorruptEnvelope       = newXrtError("corrupt envelope", 2500, false)
	ErrWorkerCrashed         = newXrtError("worker crashed", 2501, false)
	ErrCrossRuntimeExecution = newXrtError("cross runtime execution failed", 2502, false)
	ErrNoResultAvailable     = newXrtError("no result available", 2503, false)
	ErrResultMismatch        = newXrtError("result mismatch", 2504, false)

	// Serialization & fixture related
	ErrFixtureNotFound    = newXrtError("fixture not found", 2600, false)
	ErrTypeNotRegistered  = newXrtError("type not registered", 2601, false)
	ErrSerializeFailed    = newXrtError("serialize failed", 2602, false)
	ErrDeserializeFailed  = newXrtError("deserialize failed", 2603, false)
	ErrInvocationFailed   = newXrtError("invocation failed", 2604, false)
	ErrFixtureDuplicated  = newXrtError("fixture already registered", 2605, false)
	ErrTypeDuplicated     = newXrtError("type already registered", 2606, false)
	ErrNotInvocable       = newXrtError("value is not invocable", 2607, false)
	ErrProgramInvalid     = newXrtError("invalid runtime program", 2608, false)
	ErrRuntimeUnavailable = newXrtError("alternate runtime not configured", 2609, false)

	// General
	ErrOperationNotSupported = newXrtError("unsupported operation", 3000, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to xrtError
	errUnexpected = newXrtError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*xrtError)

func WithDetail(detail string) errorOption {
	return func(err *xrtError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *xrtError) {
		err.errType = etype
	}
}

type xrtError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newXrtError(msg string, code int32, retriable bool, options ...errorOption) xrtError {
	err := xrtError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e xrtError) code() int32 {
	return e.errCode
}

func (e xrtError) Error() string {
	return e.msg
}

func (e xrtError) Detail() string {
	return e.detail
}

func (e xrtError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(xrtError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
