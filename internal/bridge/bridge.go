// Package bridge 让另一个独立启动的运行时产生并序列化 fixture，再把结果交回当前进程。
//
// 一次 Execute 的过程：生成声明式程序文件，以 `<executable> <program>` 启动目标运行时并
// 同步等待其结束；只有在观察到进程退出之后才去读取交接文件，读取后立即删除。
// 方向完全由传入的可执行文件决定，两个运行时之间的交换是对称的。
package bridge

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/lk2023060901/xrt-go/internal/fixture"
	"github.com/lk2023060901/xrt-go/internal/proc"
	"github.com/lk2023060901/xrt-go/pkg/log"
	"github.com/lk2023060901/xrt-go/pkg/metrics"
	"github.com/lk2023060901/xrt-go/pkg/util/conc"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
	"github.com/lk2023060901/xrt-go/pkg/util/retry"
	"github.com/lk2023060901/xrt-go/pkg/util/typeutil"
)

const (
	programPrefix = "xrt_cross_program_"
	programSuffix = ".yaml"
	handoffPrefix = "xrt_cross_handoff_"
)

// Bridge 负责跨运行时执行，可被多个 goroutine 并发使用。
type Bridge struct {
	log.Binder

	cfg config
	// inflight 记录正在使用的名字，即使 uuid 冲突也不会复用同一组文件。
	inflight *typeutil.ConcurrentSet[string]
}

// New 创建 Bridge。
func New(opts ...Option) *Bridge {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Bridge{
		cfg:      cfg,
		inflight: typeutil.NewConcurrentSet[string](),
	}
	b.SetLogger(log.With(log.FieldComponent("bridge")).WithRateGroup("bridge.cleanup", 1, 60))
	return b
}

// paths 返回一组尚未被占用的程序文件与交接文件路径。
func (b *Bridge) paths() (id, program, handoff string) {
	for {
		id = uuid.NewString()
		if b.inflight.Insert(id) {
			break
		}
	}
	dir := b.cfg.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return id,
		filepath.Join(dir, programPrefix+id+programSuffix),
		filepath.Join(dir, handoffPrefix+id)
}

// Execute 在 executable 所代表的运行时中产生 ref 对应的 fixture，返回其 envelope 文本。
// 目标运行时失败或没有留下交接数据时返回 ErrCrossRuntimeExecution，不做重试。
func (b *Bridge) Execute(ctx context.Context, executable string, ref fixture.Ref) (string, error) {
	ctx, span := log.NewIntentContext(ctx, "bridge", "execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("executable", executable),
		attribute.String("fixture", ref.String()))

	start := time.Now()
	text, err := b.execute(ctx, executable, ref)
	metrics.BridgeDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.BridgeExecutions.WithLabelValues(metrics.OutcomeFailure).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	metrics.BridgeExecutions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.HandoffBytes.Observe(float64(len(text)))
	return text, nil
}

func (b *Bridge) execute(ctx context.Context, executable string, ref fixture.Ref) (string, error) {
	if executable == "" {
		return "", merr.WrapErrParameterMissing("executable")
	}
	id, program, handoff := b.paths()
	defer b.inflight.Remove(id)

	logger := b.Logger().With(
		zap.String("executable", executable),
		log.FieldFixture(ref.String()),
		zap.String("id", id))

	content, err := Program{
		Fixture:  ref,
		Handoff:  handoff,
		DumpCode: b.cfg.dumpCode,
		Unlink:   true,
	}.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(program, content, 0o600); err != nil {
		return "", merr.WrapErrIoFailed(program, err)
	}
	// 目标运行时会自行删除程序文件，这里只做兜底。
	defer b.remove(ctx, program)
	defer b.remove(ctx, handoff)

	status, tail, err := proc.Run(ctx, proc.Spec{
		Path:       executable,
		Args:       append(append([]string{}, b.cfg.args...), program),
		Env:        append(log.TraceEnv(ctx), b.cfg.env...),
		Stderr:     b.cfg.stderr,
		StderrTail: b.cfg.stderrTail,
	})
	if err != nil {
		return "", merr.WrapErrCrossRuntimeExecution(executable, "start failed", err.Error())
	}
	if !status.Success() {
		logger.Warn("foreign runtime failed", zap.Stringer("status", status))
		return "", merr.WrapErrCrossRuntimeExecution(executable, status.String(), tail)
	}

	data, err := b.readHandoff(ctx, handoff)
	if err != nil {
		logger.Warn("foreign runtime left no handoff", zap.Error(err))
		return "", merr.WrapErrCrossRuntimeExecution(executable, "no handoff produced", err.Error())
	}
	logger.Debug("handoff received", zap.Int("bytes", len(data)))
	return string(data), nil
}

var errEmptyHandoff = errors.New("handoff file is empty")

// readHandoff 读取交接文件。配置了 handoffSettle 时，在该时间内按指数退避重试，
// 用于目标运行时把写文件交给了自己的后台进程的情况。
func (b *Bridge) readHandoff(ctx context.Context, path string) ([]byte, error) {
	read := func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, errEmptyHandoff
		}
		return data, nil
	}
	if b.cfg.handoffSettle <= 0 {
		return read()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = b.cfg.handoffSettle
	return backoff.RetryWithData(read, backoff.WithContext(policy, ctx))
}

// remove 尽力删除 path，文件不存在视为成功。
func (b *Bridge) remove(ctx context.Context, path string) {
	err := retry.Do(context.WithoutCancel(ctx), func() error {
		err := os.Remove(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}, retry.Attempts(3), retry.Sleep(10*time.Millisecond))
	if err != nil {
		b.Logger().RatedWarn(1, "remove bridge file failed", zap.String("path", path), zap.Error(err))
	}
}

// Job 为 ExecuteAll 的一个任务。
type Job struct {
	Executable string
	Ref        fixture.Ref
}

// Result 为 ExecuteAll 中单个任务的结果，与 Job 一一对应。
type Result struct {
	Job  Job
	Text string
	Err  error
}

// ExecuteAll 以有界并发执行多个互相独立的跨运行时调用。
// 每个调用仍是单次使用的进程，文件名互不相交。
func (b *Bridge) ExecuteAll(ctx context.Context, jobs []Job) []Result {
	pool := conc.NewPool[string](b.cfg.concurrency, conc.WithConcealPanic(true))
	defer pool.Release()

	futures := make([]*conc.Future[string], 0, len(jobs))
	for _, job := range jobs {
		futures = append(futures, pool.Submit(func() (string, error) {
			return b.Execute(ctx, job.Executable, job.Ref)
		}))
	}

	results := make([]Result, len(jobs))
	for i, f := range futures {
		text, err := f.Await()
		results[i] = Result{Job: jobs[i], Text: text, Err: err}
	}
	return results
}
