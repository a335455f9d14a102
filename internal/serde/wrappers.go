package serde

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// DirectCall 直接以 args/kwargs 调用目标，是未指定 wrapper 时的默认行为。
type DirectCall struct{}

func (DirectCall) Wrap(target any, args []any, kwargs map[string]any) (any, error) {
	return Invoke(target, args, kwargs)
}

// DrainSum 先无参调用目标 Depth 次，再以 args/kwargs 调用得到 Sequence，
// 最后把序列中的元素求和。元素全部为整数时结果为 int，否则为 float64。
type DrainSum struct {
	Depth int `json:"depth"`
}

func (w DrainSum) Wrap(target any, args []any, kwargs map[string]any) (any, error) {
	fn, err := instantiate(target, w.Depth)
	if err != nil {
		return nil, err
	}
	out, err := Invoke(fn, args, kwargs)
	if err != nil {
		return nil, err
	}
	seq, ok := out.(Sequence)
	if !ok {
		return nil, merr.WrapErrNotInvocable(fmt.Sprintf("%T", out), "expected a sequence")
	}

	var (
		intSum   int
		floatSum float64
		isFloat  bool
	)
	for v := range seq {
		if isIntegral(v) && !isFloat {
			n, err := cast.ToIntE(v)
			if err != nil {
				return nil, merr.WrapErrInvocationFailed("DrainSum", err)
			}
			intSum += n
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, merr.WrapErrInvocationFailed("DrainSum", err)
		}
		if !isFloat {
			isFloat = true
			floatSum = float64(intSum)
		}
		floatSum += f
	}
	if isFloat {
		return floatSum, nil
	}
	return intSum, nil
}

func isIntegral(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

// InstantiateAndCall 先无参调用目标 Depth 次得到实例，再调用实例上的 Method。
type InstantiateAndCall struct {
	Depth  int    `json:"depth"`
	Method string `json:"method"`
}

func (w InstantiateAndCall) Wrap(target any, args []any, kwargs map[string]any) (any, error) {
	if w.Method == "" {
		return nil, merr.WrapErrParameterMissing("method")
	}
	inst, err := instantiate(target, w.Depth)
	if err != nil {
		return nil, err
	}
	return InvokeMethod(inst, w.Method, args, kwargs)
}

// Apply 使用 w 包装调用；w 为 nil 时退化为 DirectCall。
func Apply(w Wrapper, target any, args []any, kwargs map[string]any) (any, error) {
	if w == nil {
		w = DirectCall{}
	}
	return w.Wrap(target, args, kwargs)
}

func init() {
	MustRegister("serde.DirectCall", DirectCall{})
	MustRegister("serde.DrainSum", DrainSum{})
	MustRegister("serde.InstantiateAndCall", InstantiateAndCall{})
}
