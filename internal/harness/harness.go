// Package harness 编排一次完整的验证：在另一个运行时中产生并序列化 fixture，
// 在当前运行时的隔离 worker 中反序列化并调用，再与直接调用得到的参考值比较。
package harness

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/lk2023060901/xrt-go/internal/bridge"
	"github.com/lk2023060901/xrt-go/internal/envelope"
	"github.com/lk2023060901/xrt-go/internal/executor"
	"github.com/lk2023060901/xrt-go/internal/fixture"
	"github.com/lk2023060901/xrt-go/internal/runtimeinfo"
	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/log"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// Case 为一个验证用例。
type Case struct {
	Ref     fixture.Ref
	Args    []any
	Kwargs  map[string]any
	Wrapper serde.Wrapper
}

func (c Case) request(env envelope.Envelope) executor.Request {
	return executor.Request{
		Payload: env.Payload(),
		Args:    c.Args,
		Kwargs:  c.Kwargs,
		Wrapper: c.Wrapper,
		Origin:  env.Origin(),
	}
}

// Harness 组合 Executor 与 Bridge。
type Harness struct {
	log.Binder

	exec     *executor.Executor
	bridge   *bridge.Bridge
	codec    *envelope.Codec
	dumpCode bool
}

func New(exec *executor.Executor, b *bridge.Bridge, dumpCode bool) *Harness {
	h := &Harness{
		exec:     exec,
		bridge:   b,
		codec:    envelope.NewCodec(nil),
		dumpCode: dumpCode,
	}
	h.SetLogger(log.With(log.FieldComponent("harness")))
	return h
}

// Reference 在当前进程内直接调用 fixture，得到比较用的参考值。
func (h *Harness) Reference(c Case) (any, error) {
	v, err := fixture.Produce(c.Ref)
	if err != nil {
		return nil, err
	}
	out, err := serde.Apply(c.Wrapper, v, c.Args, c.Kwargs)
	if err != nil {
		return nil, merr.WrapErrInvocationFailed(c.Ref.String(), err)
	}
	return out, nil
}

// RoundTrip 在当前运行时中序列化 fixture，并交给隔离 worker 反序列化后调用。
func (h *Harness) RoundTrip(ctx context.Context, c Case) (any, error) {
	v, err := fixture.Produce(c.Ref)
	if err != nil {
		return nil, err
	}
	text, err := h.codec.Seal(v, runtimeinfo.Current(), h.dumpCode)
	if err != nil {
		return nil, err
	}
	return h.invoke(ctx, text, c)
}

// CrossRuntime 让 executable 所代表的运行时产生 fixture，再在当前运行时的隔离 worker 中调用。
func (h *Harness) CrossRuntime(ctx context.Context, executable string, c Case) (any, error) {
	text, err := h.bridge.Execute(ctx, executable, c.Ref)
	if err != nil {
		return nil, err
	}
	return h.invoke(ctx, text, c)
}

func (h *Harness) invoke(ctx context.Context, text string, c Case) (any, error) {
	env, err := envelope.Unpack(text)
	if err != nil {
		return nil, err
	}
	h.Logger().Debug("invoking envelope",
		log.FieldFixture(c.Ref.String()),
		zap.Stringer("origin", env.Origin()))
	return h.exec.Invoke(ctx, c.request(env))
}

// Verify 比较跨运行时调用的结果与参考值，不一致时返回 ErrResultMismatch。
func (h *Harness) Verify(ctx context.Context, executable string, c Case) error {
	want, err := h.Reference(c)
	if err != nil {
		return err
	}
	got, err := h.CrossRuntime(ctx, executable, c)
	if err != nil {
		return err
	}
	if err := Compare(want, got); err != nil {
		return err
	}
	h.Logger().Info("cross runtime result verified",
		log.FieldFixture(c.Ref.String()),
		zap.String("executable", executable))
	return nil
}

// Compare 判断两个结果是否相等。
func Compare(expected, actual any) error {
	if reflect.DeepEqual(expected, actual) {
		return nil
	}
	return merr.WrapErrResultMismatch(describe(expected), describe(actual))
}

func describe(v any) string {
	return fmt.Sprintf("%T(%v)", v, v)
}
