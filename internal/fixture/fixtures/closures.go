package fixtures

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xrt-go/internal/serde"
)

// NestedFun 对应“闭包返回闭包”：外层捕获 OutClosure，内层计算 OutClosure + v。
type NestedFun struct {
	OutClosure int `json:"out_closure"`
}

func (f NestedFun) Call(args []any, _ map[string]any) (any, error) {
	v, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	inner := nestedMethod{outClosure: f.OutClosure}
	return inner.call(v), nil
}

type nestedMethod struct {
	outClosure int
}

func (m nestedMethod) call(addVal int) int {
	return m.outClosure + addVal
}

// FormatFun 用捕获的浮点数格式化字符串。
type FormatFun struct {
	OutClosure float64 `json:"out_closure"`
}

func (f FormatFun) Call(args []any, _ map[string]any) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("format_string expects one argument")
	}
	return fmt.Sprintf("Formatted stuff %v: %5.1f", args[0], f.OutClosure), nil
}

// TryExcept 在捕获的 map 上做两次可能失败的查找，失败分支各自修正累加值。
type TryExcept struct {
	OutClosure map[string]float64 `json:"out_closure"`
}

var errKeyNotFound = errors.New("key not found")

func (f TryExcept) lookup(key string) (float64, error) {
	v, ok := f.OutClosure[key]
	if !ok {
		return 0, errors.Wrap(errKeyNotFound, key)
	}
	return v, nil
}

func (f TryExcept) Call(args []any, _ map[string]any) (any, error) {
	arg, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	agg := float64(arg)

	if v, err := f.lookup("not_exist"); err == nil {
		agg *= v
	} else {
		agg += 1
	}

	if v, err := f.lookup("k"); err == nil {
		agg -= v
	} else {
		agg /= 10
	}
	return agg, nil
}

// Matmul 计算捕获的 3x3 矩阵与向量 (9, 5, arg) 的乘积。
type Matmul struct {
	OutClosure [][]int `json:"out_closure"`
}

func (f Matmul) Call(args []any, _ map[string]any) (any, error) {
	arg, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	vec := []int{9, 5, arg}
	out := make([]int, len(f.OutClosure))
	for i, row := range f.OutClosure {
		if len(row) != len(vec) {
			return nil, errors.Newf("row %d has %d columns, want %d", i, len(row), len(vec))
		}
		for j := range row {
			out[i] += row[j] * vec[j]
		}
	}
	return out, nil
}

func init() {
	serde.MustRegister("fixtures.NestedFun", NestedFun{})
	serde.MustRegister("fixtures.FormatFun", FormatFun{})
	serde.MustRegister("fixtures.TryExcept", TryExcept{})
	serde.MustRegister("fixtures.Matmul", Matmul{})
}
