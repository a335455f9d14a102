package proc

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ProcSuite struct {
	suite.Suite
	sh string
}

func (s *ProcSuite) SetupSuite() {
	sh, err := exec.LookPath("sh")
	if err != nil {
		s.T().Skip("sh not available")
	}
	s.sh = sh
}

func (s *ProcSuite) run(ctx context.Context, script string) (ExitStatus, string) {
	status, tail, err := Run(ctx, Spec{
		Path:       s.sh,
		Args:       []string{"-c", script},
		Stderr:     &strings.Builder{},
		StderrTail: 16,
	})
	s.Require().NoError(err)
	return status, tail
}

func (s *ProcSuite) TestSuccess() {
	status, _ := s.run(context.Background(), "exit 0")
	s.True(status.Success())
	s.Equal("exit 0", status.String())
}

func (s *ProcSuite) TestExitCode() {
	status, tail := s.run(context.Background(), "echo 'a long diagnostic line that gets cut' >&2; exit 3")
	s.False(status.Success())
	s.Equal(3, status.Code)
	s.Empty(status.Signal)
	s.Len(tail, 16)
	s.True(strings.HasSuffix(tail, "gets cut\n"))
}

func (s *ProcSuite) TestSignaled() {
	status, _ := s.run(context.Background(), "kill -9 $$")
	s.False(status.Success())
	s.Equal(128+9, status.Code)
	s.NotEmpty(status.Signal)
}

func (s *ProcSuite) TestCancelKillsTree() {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	status, _ := s.run(ctx, "sleep 30 & sleep 30; wait")
	s.False(status.Success())
	s.Less(time.Since(start), 10*time.Second)
}

func (s *ProcSuite) TestEnv() {
	status, _ := s.run(context.Background(), `test "$XRT_PROC_TEST" = yes`)
	s.False(status.Success())

	st, _, err := Run(context.Background(), Spec{
		Path: s.sh,
		Args: []string{"-c", `test "$XRT_PROC_TEST" = yes`},
		Env:  []string{"XRT_PROC_TEST=yes"},
	})
	s.NoError(err)
	s.True(st.Success())
}

func TestProc(t *testing.T) {
	suite.Run(t, new(ProcSuite))
}

func TestStartMissingBinary(t *testing.T) {
	_, _, err := Run(context.Background(), Spec{Path: "/nonexistent/xrt-binary"})
	assert.Error(t, err)

	_, err = Start(context.Background(), Spec{})
	assert.Error(t, err)
}

func TestTailBuffer(t *testing.T) {
	tb := NewTailBuffer(5)
	_, err := tb.Write([]byte("abc"))
	require.NoError(t, err)
	assert.False(t, tb.Truncated())
	_, _ = tb.Write([]byte("def"))
	assert.Equal(t, "bcdef", tb.String())
	_, _ = tb.Write([]byte("0123456789"))
	assert.Equal(t, "56789", tb.String())
	assert.True(t, tb.Truncated())
}

func TestStatusOfNil(t *testing.T) {
	assert.True(t, StatusOf(nil, nil).Success())
	assert.Equal(t, 1, StatusOf(nil, assert.AnError).Code)
}
