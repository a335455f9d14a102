package harness

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/xrt-go/internal/bridge"
	"github.com/lk2023060901/xrt-go/internal/executor"
	"github.com/lk2023060901/xrt-go/internal/fixture/fixtures"
	"github.com/lk2023060901/xrt-go/internal/runtimeinfo"
	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

func TestMain(m *testing.M) {
	switch os.Getenv(executor.EnvRole) {
	case executor.RoleWorker:
		os.Exit(executor.WorkerMain(context.Background()))
	case bridge.RoleProgram:
		os.Exit(bridge.ProgramMain(context.Background(), os.Args[1:]))
	}
	os.Exit(m.Run())
}

func caseOf(s fixtures.Scenario) Case {
	return Case{Ref: s.Ref, Args: s.Args, Kwargs: s.Kwargs, Wrapper: s.Wrapper}
}

type HarnessSuite struct {
	suite.Suite

	self   string
	stderr *bytes.Buffer
}

func (s *HarnessSuite) SetupSuite() {
	self, err := os.Executable()
	s.Require().NoError(err)
	s.self = self
}

func (s *HarnessSuite) SetupTest() {
	s.stderr = &bytes.Buffer{}
}

func (s *HarnessSuite) newHarness(bridgeEnv ...string) *Harness {
	exec, err := executor.New(executor.WithStderr(s.stderr))
	s.Require().NoError(err)
	b := bridge.New(
		bridge.WithTempDir(s.T().TempDir()),
		bridge.WithStderr(s.stderr),
		bridge.WithEnv(append([]string{executor.EnvRole + "=" + bridge.RoleProgram}, bridgeEnv...)...),
	)
	return New(exec, b, false)
}

func (s *HarnessSuite) TestReference() {
	h := s.newHarness()
	v, err := h.Reference(Case{Ref: fixtures.NestedYieldObjRef, Args: []any{20}, Wrapper: serde.DrainSum{Depth: 1}})
	s.NoError(err)
	s.Equal(35, v)

	_, err = h.Reference(Case{Ref: fixtures.FaultyRef})
	s.ErrorIs(err, merr.ErrInvocationFailed)
}

func (s *HarnessSuite) TestRoundTrip() {
	h := s.newHarness()
	for _, sc := range fixtures.Scenarios {
		c := caseOf(sc)
		want, err := h.Reference(c)
		s.Require().NoError(err, c.Ref.String())
		got, err := h.RoundTrip(context.Background(), c)
		s.Require().NoError(err, "%s: %s", c.Ref, s.stderr.String())
		s.NoError(Compare(want, got), c.Ref.String())
	}
}

func (s *HarnessSuite) TestVerifyAllScenarios() {
	h := s.newHarness()
	for _, sc := range fixtures.Scenarios {
		s.NoError(h.Verify(context.Background(), s.self, caseOf(sc)), "%s: %s", sc.Ref, s.stderr.String())
	}
}

func (s *HarnessSuite) TestVerifyOlderRuntime() {
	h := s.newHarness(runtimeinfo.EnvRuntimeVersion + "=1.1.0")
	c := Case{Ref: fixtures.NestedYieldObjRef, Args: []any{20}, Wrapper: serde.DrainSum{Depth: 1}}
	s.NoError(h.Verify(context.Background(), s.self, c), s.stderr.String())

	got, err := h.CrossRuntime(context.Background(), s.self, c)
	s.NoError(err)
	s.Equal(35, got)
}

func (s *HarnessSuite) TestBuildUnpackStylesAgree() {
	h := s.newHarness()
	concat, err := h.CrossRuntime(context.Background(), s.self, Case{Ref: fixtures.BuildUnpackRef, Args: []any{20}})
	s.Require().NoError(err)
	spread, err := h.CrossRuntime(context.Background(), s.self, Case{Ref: fixtures.BuildUnpackSpreadRef, Args: []any{20}})
	s.Require().NoError(err)

	s.NoError(Compare(concat, spread))
	s.Equal([]int{1, 2, 3, 4, 5, 6, 7, 20}, concat.(fixtures.UnpackResult).Tuple)
}

func (s *HarnessSuite) TestCrashIsolation() {
	h := s.newHarness()
	_, err := h.CrossRuntime(context.Background(), s.self, Case{Ref: fixtures.PanickyRef})
	s.ErrorIs(err, merr.ErrWorkerCrashed)

	// worker 崩溃后父进程仍可继续工作。
	v, err := h.CrossRuntime(context.Background(), s.self, Case{Ref: fixtures.NestedFunRef, Args: []any{20}})
	s.NoError(err)
	s.Equal(30, v)
}

func (s *HarnessSuite) TestNoResult() {
	h := s.newHarness()
	_, err := h.CrossRuntime(context.Background(), s.self, Case{Ref: fixtures.NoResultRef})
	s.ErrorIs(err, merr.ErrNoResultAvailable)
}

func (s *HarnessSuite) TestCorruptHandoff() {
	h := s.newHarness()
	_, err := h.invoke(context.Background(), "not base64!", Case{Ref: fixtures.NestedFunRef})
	s.ErrorIs(err, merr.ErrCorruptEnvelope)
}

func TestHarness(t *testing.T) {
	suite.Run(t, new(HarnessSuite))
}

func TestCompare(t *testing.T) {
	assert.NoError(t, Compare([]int{1, 2}, []int{1, 2}))
	assert.NoError(t, Compare(nil, nil))

	err := Compare(30, 31)
	assert.ErrorIs(t, err, merr.ErrResultMismatch)
	assert.ErrorIs(t, Compare(30, int64(30)), merr.ErrResultMismatch)
}
