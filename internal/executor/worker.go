package executor

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/xrt-go/internal/framer"
	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/log"
)

// IsWorker 判断当前进程是否以 worker 角色启动。
func IsWorker() bool {
	return os.Getenv(EnvRole) == RoleWorker
}

// WorkerMain 是 worker 进程的入口，返回值为进程退出码。
func WorkerMain(ctx context.Context) int {
	result := os.NewFile(resultFD, "xrt-result")
	if result == nil {
		fmt.Fprintln(os.Stderr, "xrt worker: result channel (fd 3) is not open")
		return 1
	}
	defer result.Close()
	return ServeWorker(log.WithInheritedTraceID(ctx), os.Stdin, result, os.Stderr)
}

// ServeWorker 从 stdin 读取一个请求，调用后把结果写入 result。
//
// 任何错误都会写到 stderr 并返回非零退出码；调用过程中的 panic 记录后继续向上抛出，
// 使进程以失败状态结束。调用结果为 nil 时不写回任何数据。
func ServeWorker(ctx context.Context, stdin io.Reader, result io.Writer, stderr io.Writer) int {
	logger := log.Ctx(log.WithRole(ctx, RoleWorker))
	if err := serve(ctx, stdin, result, stderr); err != nil {
		logger.Error("worker failed", zap.Error(err))
		fmt.Fprintf(stderr, "xrt worker: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, stdin io.Reader, result io.Writer, stderr io.Writer) error {
	f := framer.NewLengthPrefixedFramer(0)
	frame, err := f.ReadFrame(stdin)
	if err != nil {
		return errors.Wrap(err, "read request")
	}
	wreq, err := unmarshalWireRequest(frame)
	if err != nil {
		return errors.Wrap(err, "decode request")
	}
	target, args, kwargs, wrapper, err := wreq.decode(serde.Default)
	if err != nil {
		return err
	}

	log.Ctx(ctx).Debug("worker invoking",
		zap.Stringer("origin", wreq.origin),
		zap.String("target", fmt.Sprintf("%T", target)),
		zap.Int("args", len(args)))

	v, err := call(stderr, wrapper, target, args, kwargs)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}

	data, err := serde.Default.Serialize(v, serde.Options{Compat: serde.LatestProtocol, DumpCode: wreq.dumpCode})
	if err != nil {
		return err
	}
	return f.WriteFrame(result, marshalResult(serde.LatestProtocol, data))
}

func call(stderr io.Writer, wrapper serde.Wrapper, target any, args []any, kwargs map[string]any) (any, error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker panicked", zap.Any("panic", r))
			fmt.Fprintf(stderr, "xrt worker: panic: %v\n", r)
			panic(r)
		}
	}()
	return serde.Apply(wrapper, target, args, kwargs)
}
