package serde

import (
	"fmt"
	"iter"

	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// Invocable 是可被调用的对象，相当于携带状态的闭包。
// 被捕获的变量以导出字段的形式保存，从而可以随对象一起序列化。
type Invocable interface {
	Call(args []any, kwargs map[string]any) (any, error)
}

// MethodCaller 是可按名字调用方法的对象。
type MethodCaller interface {
	CallMethod(name string, args []any, kwargs map[string]any) (any, error)
}

// Sequence 是惰性序列，只能在产生它的进程内消费，不可序列化。
type Sequence = iter.Seq[any]

// Wrapper 在结果离开 worker 进程之前对被调用对象做后处理。
type Wrapper interface {
	Wrap(target any, args []any, kwargs map[string]any) (any, error)
}

// Invoke 以 args/kwargs 调用 target。
func Invoke(target any, args []any, kwargs map[string]any) (any, error) {
	fn, ok := target.(Invocable)
	if !ok {
		return nil, merr.WrapErrNotInvocable(fmt.Sprintf("%T", target))
	}
	return fn.Call(args, kwargs)
}

// InvokeMethod 调用 target 上名为 name 的方法。
func InvokeMethod(target any, name string, args []any, kwargs map[string]any) (any, error) {
	mc, ok := target.(MethodCaller)
	if !ok {
		return nil, merr.WrapErrNotInvocable(fmt.Sprintf("%T", target), "method "+name)
	}
	return mc.CallMethod(name, args, kwargs)
}

// instantiate 无参调用 target depth 次，模拟“工厂返回工厂”的链式构造。
func instantiate(target any, depth int) (any, error) {
	cur := target
	for i := 0; i < depth; i++ {
		next, err := Invoke(cur, nil, nil)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
