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
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

type fakeStatus string

func (s fakeStatus) String() string { return string(s) }

func (s *ErrSuite) TestCode() {
	err := WrapErrFixtureNotFound("fixtures.nested_fun")
	errors.Wrap(err, "failed to resolve fixture")
	s.ErrorIs(err, ErrFixtureNotFound)
	s.Equal(Code(ErrFixtureNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(errUnexpected.errCode, Code(errors.New("plain")))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newXrtError("new error", ErrFixtureNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrFixtureNotFound))
}

func (s *ErrSuite) TestWrap() {
	// IO related
	s.ErrorIs(WrapErrIoKeyNotFound("handoff", "failed to read"), ErrIoKeyNotFound)
	s.ErrorIs(WrapErrIoFailed("handoff", os.ErrClosed), ErrIoFailed)
	s.ErrorIs(WrapErrIoUnexpectEOF("handoff", os.ErrClosed), ErrIoUnexpectEOF)
	s.Nil(WrapErrIoFailed("handoff", nil))

	// Parameter related
	s.ErrorIs(WrapErrParameterInvalid(8, 1, "failed to create"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad %s", "value"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterMissing("executable", "no executable"), ErrParameterMissing)
	s.ErrorIs(WrapErrParameterTooLarge("frame"), ErrParameterTooLarge)

	// Process boundary related
	s.ErrorIs(WrapErrCorruptEnvelope("outer", errors.New("illegal base64")), ErrCorruptEnvelope)
	s.ErrorIs(WrapErrCorruptEnvelope("inner", nil), ErrCorruptEnvelope)
	s.ErrorIs(WrapErrWorkerCrashed(fakeStatus("exit status 1"), "boom"), ErrWorkerCrashed)
	s.ErrorIs(WrapErrCrossRuntimeExecution("/usr/bin/true", "handoff file missing"), ErrCrossRuntimeExecution)
	s.ErrorIs(WrapErrNoResultAvailable("worker wrote nothing"), ErrNoResultAvailable)
	s.ErrorIs(WrapErrResultMismatch(35, 30), ErrResultMismatch)

	// Serialization & fixture related
	s.ErrorIs(WrapErrFixtureDuplicated("fixtures.nested_fun"), ErrFixtureDuplicated)
	s.ErrorIs(WrapErrTypeNotRegistered("fixtures.Unknown"), ErrTypeNotRegistered)
	s.ErrorIs(WrapErrTypeDuplicated("int"), ErrTypeDuplicated)
	s.ErrorIs(WrapErrSerializeFailed("chan int", errors.New("unsupported")), ErrSerializeFailed)
	s.ErrorIs(WrapErrDeserializeFailed("bad json", nil), ErrDeserializeFailed)
	s.ErrorIs(WrapErrInvocationFailed("fixtures.faulty", errors.New("raised")), ErrInvocationFailed)
	s.ErrorIs(WrapErrNotInvocable("int"), ErrNotInvocable)
	s.ErrorIs(WrapErrProgramInvalid("/tmp/p.yaml", "symbol missing"), ErrProgramInvalid)
	s.ErrorIs(WrapErrRuntimeUnavailable("legacy"), ErrRuntimeUnavailable)
	s.ErrorIs(WrapErrOperationNotSupported("stream"), ErrOperationNotSupported)
	s.ErrorIs(WrapErrServiceInternal("never throw out"), ErrServiceInternal)
	s.ErrorIs(WrapErrServiceUnimplemented(errors.New("nope")), ErrServiceUnimplemented)
}

func (s *ErrSuite) TestDistinctFailures() {
	crash := WrapErrWorkerCrashed(fakeStatus("exit status 1"), "")
	noResult := WrapErrNoResultAvailable()

	s.False(errors.Is(crash, ErrNoResultAvailable))
	s.False(errors.Is(noResult, ErrWorkerCrashed))
	s.False(errors.Is(WrapErrCrossRuntimeExecution("x", "y"), ErrWorkerCrashed))
}

func (s *ErrSuite) TestWorkerCrashedMessage() {
	err := WrapErrWorkerCrashed(fakeStatus("signal: killed"), "  traceback here \n")
	s.Contains(err.Error(), "status=signal: killed")
	s.Contains(err.Error(), "traceback here")
}

func (s *ErrSuite) TestRetryable() {
	s.False(IsRetryableErr(ErrWorkerCrashed))
	s.False(IsRetryableErr(ErrCrossRuntimeExecution))
	s.True(IsRetryableErr(ErrIoUnexpectEOF))
	s.True(IsCanceledOrTimeout(errors.Wrap(context.Canceled, "wait")))
}

func (s *ErrSuite) TestErrorType() {
	s.Equal(SystemError, GetErrorType(ErrFixtureNotFound))
	s.Equal(InputError, GetErrorType(WrapErrAsInputError(ErrFixtureNotFound)))
	s.Equal(InputError, GetErrorType(WrapErrAsInputErrorWhen(ErrParameterInvalid, ErrParameterInvalid)))
	s.Equal(SystemError, GetErrorType(WrapErrAsInputErrorWhen(ErrParameterInvalid, ErrIoFailed)))
	s.Equal("input_error", InputError.String())
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func (s *ErrSuite) TestCombineCode() {
	err := Combine(WrapErrFixtureNotFound("a.b"), WrapErrWorkerCrashed(fakeStatus("exit status 2"), ""))
	s.Equal(Code(ErrWorkerCrashed), Code(err))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
