package log

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type bufferSyncer struct {
	bytes.Buffer
}

func (b *bufferSyncer) Sync() error { return nil }

func TestInitLoggerWithWriteSyncer(t *testing.T) {
	buf := &bufferSyncer{}
	cfg := &Config{Level: "info", Format: "json", DisableTimestamp: true}
	lg, props, err := InitLoggerWithWriteSyncer(cfg, buf)
	require.NoError(t, err)
	require.NotNil(t, props)

	lg.Debug("hidden")
	lg.Info("visible", FieldFixture("fixtures.nested_fun"))
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, `"fixture":"fixtures.nested_fun"`)
}

func TestInitLoggerBadLevel(t *testing.T) {
	_, _, err := InitLoggerWithWriteSyncer(&Config{Level: "loud"}, &bufferSyncer{})
	assert.Error(t, err)
}

func TestCtxFields(t *testing.T) {
	buf := &bufferSyncer{}
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "debug", Format: "json"}, buf)
	require.NoError(t, err)

	prevL, prevP := L(), _globalP.Load().(*ZapProperties)
	ReplaceGlobals(lg.WithOptions(zap.AddCallerSkip(1)), props)
	defer ReplaceGlobals(prevL, prevP)

	ctx := WithModule(context.Background(), "bridge")
	ctx = WithRole(ctx, "parent")
	Ctx(ctx).Info("hello")
	assert.Contains(t, buf.String(), `"module":"bridge"`)
	assert.Contains(t, buf.String(), `"role":"parent"`)

	assert.NotNil(t, Ctx(nil))
	assert.NotNil(t, Ctx(context.Background()))
}

func TestLevelContext(t *testing.T) {
	ctx := WithErrorLevel(context.Background())
	assert.False(t, Ctx(ctx).Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Ctx(ctx).Core().Enabled(zapcore.ErrorLevel))
}

func TestBinder(t *testing.T) {
	var b Binder
	assert.NotNil(t, b.Logger())

	l := With(zap.String("k", "v"))
	b.SetLogger(l)
	assert.Same(t, l, b.Logger())
}

func TestRateGroup(t *testing.T) {
	l := With().WithRateGroup("test.rate", 0.0001, 1)
	assert.True(t, l.RatedInfo(1, "first"))
	assert.False(t, l.RatedInfo(1, "second"))
}

func TestTestLogger(t *testing.T) {
	lg, _, err := InitTestLogger(t, &Config{Level: "info"})
	require.NoError(t, err)
	lg.Info("routed through t.Log")
}

func TestReplaceGlobalsInfoLevel(t *testing.T) {
	buf := &bufferSyncer{}
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "info", Format: "json"}, buf)
	require.NoError(t, err)

	prevL, prevP := L(), _globalP.Load().(*ZapProperties)
	ReplaceGlobals(lg.WithOptions(zap.AddCallerSkip(1)), props)
	defer ReplaceGlobals(prevL, prevP)

	// 替换过程本身不应向 ErrorOutput 写任何内容
	assert.Empty(t, buf.String())

	Ctx(WithDebugLevel(context.Background())).Debug("dropped")
	assert.Empty(t, buf.String())

	SetLevel(zapcore.DebugLevel)
	defer SetLevel(zapcore.InfoLevel)
	Ctx(WithDebugLevel(context.Background())).Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInitLoggerCallerSite(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Level: "info", Format: "json", File: FileLogConfig{RootPath: dir, Filename: "xrt.log"}}
	lg, props, err := InitLogger(cfg)
	require.NoError(t, err)

	prevL, prevP := L(), _globalP.Load().(*ZapProperties)
	ReplaceGlobals(lg, props)
	defer ReplaceGlobals(prevL, prevP)

	Info("global helper")
	Ctx(context.Background()).Info("ctx logger")
	With(zap.String("k", "v")).Info("child logger")

	data, err := os.ReadFile(filepath.Join(dir, "xrt.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Contains(t, line, `"caller":"log/log_test.go:`, line)
	}
}

func TestIntentContext(t *testing.T) {
	buf := &bufferSyncer{}
	lg, props, err := InitLoggerWithWriteSyncer(&Config{Level: "info", Format: "json"}, buf)
	require.NoError(t, err)

	prevL, prevP := L(), _globalP.Load().(*ZapProperties)
	ReplaceGlobals(lg.WithOptions(zap.AddCallerSkip(1)), props)
	defer ReplaceGlobals(prevL, prevP)

	// 没有有效的父 span 时不向子进程传递 traceID
	ctx, span := NewIntentContext(context.Background(), "executor", "invoke")
	span.End()
	assert.Empty(t, TraceIDOf(ctx))
	assert.Nil(t, TraceEnv(ctx))
	Ctx(ctx).Info("no trace")
	assert.Contains(t, buf.String(), `"component":"executor"`)
	assert.Contains(t, buf.String(), `"intent":"invoke"`)
	assert.NotContains(t, buf.String(), "traceID")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4},
		TraceFlags: trace.FlagsSampled,
	})
	id := sc.TraceID().String()
	ctx, span = NewIntentContext(trace.ContextWithSpanContext(context.Background(), sc), "bridge", "execute")
	defer span.End()
	assert.Equal(t, id, TraceIDOf(ctx))
	assert.Equal(t, []string{EnvTraceID + "=" + id}, TraceEnv(ctx))

	t.Setenv(EnvTraceID, id)
	Ctx(WithInheritedTraceID(context.Background())).Info("inherited")
	assert.Contains(t, buf.String(), `"traceID":"`+id+`"`)
}
