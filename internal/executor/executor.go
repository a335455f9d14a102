// Package executor 在一次性的隔离 worker 进程中反序列化并调用对象。
//
// 每次 Invoke 都会启动一个全新的 worker：请求以一帧数据经 stdin 发送，
// worker 最多向 fd 3 上的一次性管道写回一帧结果，父进程在 worker 结束后根据退出状态
// 决定结果是值、ErrNoResultAvailable 还是 ErrWorkerCrashed。
// worker 与父进程不共享内存，只在父进程运行期注册的类型或 fixture 对 worker 不可见。
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/xrt-go/internal/envelope"
	"github.com/lk2023060901/xrt-go/internal/proc"
	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/log"
	"github.com/lk2023060901/xrt-go/pkg/metrics"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

const (
	// EnvRole 标识子进程应扮演的角色。
	EnvRole = "XRT_ROLE"
	// RoleWorker 为隔离 worker 角色。
	RoleWorker = "worker"

	// resultFD 为 worker 写回结果的文件描述符，即 ExtraFiles[0]。
	resultFD = 3

	defaultStderrTail = 4096
	drainTimeout      = 5 * time.Second
)

// Request 描述一次隔离调用。
type Request struct {
	// Payload 为 serde 产生的、版本相关的序列化字节。
	Payload []byte
	Args    []any
	Kwargs  map[string]any
	// Wrapper 为 nil 时直接以 Args/Kwargs 调用反序列化出的对象。
	Wrapper serde.Wrapper
	// Origin 决定 worker 反序列化 Payload 时使用的策略。
	Origin envelope.OriginTag
}

// CrashError 表示 worker 非正常结束，errors.Is(err, merr.ErrWorkerCrashed) 成立。
type CrashError struct {
	Status     proc.ExitStatus
	StderrTail string
	err        error
}

func newCrashError(status proc.ExitStatus, tail string) *CrashError {
	return &CrashError{
		Status:     status,
		StderrTail: tail,
		err:        merr.WrapErrWorkerCrashed(status, tail),
	}
}

func (e *CrashError) Error() string {
	return e.err.Error()
}

func (e *CrashError) Unwrap() error {
	return e.err
}

// Executor 负责启动 worker 并收集结果，可被多个 goroutine 并发使用。
type Executor struct {
	log.Binder

	cfg config
}

// New 创建 Executor。未指定 worker 可执行文件时使用当前可执行文件。
func New(opts ...Option) (*Executor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, merr.WrapErrRuntimeUnavailable("self", err.Error())
		}
		cfg.executable = exe
	}
	e := &Executor{cfg: cfg}
	e.SetLogger(log.With(log.FieldComponent("executor"), zap.String("executable", cfg.executable)))
	return e, nil
}

// Executable 返回 worker 可执行文件路径。
func (e *Executor) Executable() string {
	return e.cfg.executable
}

// Invoke 在一个全新的 worker 进程中执行 req，阻塞直到 worker 结束。
// ctx 结束时 worker 及其后代进程会被终止，并以 ErrWorkerCrashed 返回。
func (e *Executor) Invoke(ctx context.Context, req Request) (any, error) {
	ctx, span := log.NewIntentContext(ctx, "executor", "invoke")
	defer span.End()
	span.SetAttributes(attribute.String("origin", req.Origin.String()))

	start := time.Now()
	v, err := e.invoke(ctx, req)
	metrics.WorkerDuration.Observe(float64(time.Since(start).Milliseconds()))
	metrics.WorkerInvocations.WithLabelValues(outcomeOf(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

func (e *Executor) invoke(ctx context.Context, req Request) (any, error) {
	logger := e.Logger().With(zap.Stringer("origin", req.Origin))

	wreq, err := newWireRequest(e.cfg.serializer, req, e.cfg.dumpCode)
	if err != nil {
		return nil, err
	}
	var stdin bytes.Buffer
	if err := e.cfg.framer.WriteFrame(&stdin, wreq.marshal()); err != nil {
		return nil, err
	}

	resultR, resultW, err := os.Pipe()
	if err != nil {
		return nil, merr.WrapErrIoFailed("result pipe", err)
	}
	defer resultR.Close()

	p, err := proc.Start(ctx, proc.Spec{
		Path:       e.cfg.executable,
		Args:       e.cfg.args,
		Env:        slices.Concat([]string{EnvRole + "=" + RoleWorker}, log.TraceEnv(ctx), e.cfg.env),
		Stdin:      &stdin,
		Stderr:     e.cfg.stderr,
		StderrTail: e.cfg.stderrTail,
		ExtraFiles: []*os.File{resultW},
	})
	// 写端只属于 worker，父进程必须关闭自己的副本，否则读端永远等不到 EOF。
	resultW.Close()
	if err != nil {
		return nil, merr.WrapErrRuntimeUnavailable(e.cfg.executable, err.Error())
	}
	logger.Debug("worker started", zap.Int("pid", p.Pid()))

	var (
		frame    []byte
		frameErr error
		g        errgroup.Group
	)
	g.Go(func() error {
		frame, frameErr = e.cfg.framer.ReadFrame(resultR)
		// 读完一帧后继续排空，防止 worker 阻塞在写管道上。
		_, _ = io.Copy(io.Discard, resultR)
		return nil
	})
	status := p.Wait()
	// worker 已结束，但它的后代进程可能仍持有写端。
	_ = resultR.SetReadDeadline(time.Now().Add(drainTimeout))
	_ = g.Wait()

	if !status.Success() {
		logger.Warn("worker crashed", zap.Stringer("status", status))
		return nil, newCrashError(status, p.StderrTail())
	}
	if errors.Is(frameErr, io.EOF) {
		return nil, merr.WrapErrNoResultAvailable("worker exited without writing a result")
	}
	if frameErr != nil {
		return nil, merr.WrapErrIoFailed("result pipe", frameErr)
	}

	compat, data, err := unmarshalResult(frame)
	if err != nil {
		return nil, merr.WrapErrDeserializeFailed("result frame", err)
	}
	v, err := e.cfg.serializer.Deserialize(data, serde.Options{Compat: compat, DumpCode: e.cfg.dumpCode})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, merr.WrapErrNoResultAvailable("worker returned nil")
	}
	logger.Debug("worker finished", zap.String("type", fmt.Sprintf("%T", v)))
	return v, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, merr.ErrWorkerCrashed):
		return metrics.OutcomeCrash
	case errors.Is(err, merr.ErrNoResultAvailable):
		return metrics.OutcomeNoResult
	default:
		return metrics.OutcomeFailure
	}
}
