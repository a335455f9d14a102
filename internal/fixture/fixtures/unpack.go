package fixtures

import (
	"maps"
	"slices"
	"strconv"

	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/util/typeutil"
)

const (
	StyleConcat = "concat"
	StyleSpread = "spread"
)

// UnpackResult 为 BuildUnpack 的返回值。
type UnpackResult struct {
	Tuple  []int             `json:"tuple"`
	List   []int             `json:"list"`
	Set    typeutil.Set[int] `json:"set"`
	Map    map[string]int    `json:"map"`
	Kwargs map[string]int    `json:"kwargs"`
}

// BuildUnpack 用捕获的 (1, 2, 3) 拼接出元组、列表、集合与映射。
// Style 只决定拼接的写法，两种写法必须得到相同的结果。
type BuildUnpack struct {
	OutClosure []int  `json:"out_closure"`
	Style      string `json:"style"`
}

func (f BuildUnpack) Call(args []any, _ map[string]any) (any, error) {
	arg, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	if f.Style == StyleSpread {
		return f.spread(arg), nil
	}
	return f.concat(arg), nil
}

func (f BuildUnpack) concat(arg int) UnpackResult {
	t := append(append(append(append([]int{}, f.OutClosure...), 4), 5, 6, 7), arg)
	l := append(append(append([]int{}, f.OutClosure...), 4), 5, 6, 7)

	s := typeutil.NewSet(f.OutClosure...).
		Union(typeutil.NewSet(4)).
		Union(typeutil.NewSet(5, 6, 7))

	m := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5}

	rest := append(append([]int{5}, f.OutClosure...), 1, 2, 3)
	wk := mergeKws(3, 4, rest, map[string]int{"m": 1, "n": 2, "p": 3, "q": 4, "r": 5})

	return UnpackResult{Tuple: t, List: l, Set: s, Map: m, Kwargs: wk}
}

func (f BuildUnpack) spread(arg int) UnpackResult {
	t := slices.Concat(f.OutClosure, []int{4}, []int{5, 6, 7}, []int{arg})
	l := slices.Concat(f.OutClosure, []int{4}, []int{5, 6, 7})

	s := typeutil.NewSet(slices.Concat(f.OutClosure, []int{4}, []int{5, 6, 7})...)

	m := map[string]int{}
	maps.Copy(m, map[string]int{"a": 1, "b": 2})
	maps.Copy(m, map[string]int{"c": 3})
	maps.Copy(m, map[string]int{"d": 4, "e": 5})

	kw := map[string]int{}
	maps.Copy(kw, map[string]int{"m": 1, "n": 2})
	maps.Copy(kw, map[string]int{"p": 3, "q": 4, "r": 5})
	wk := mergeKws(3, 4, slices.Concat([]int{5}, f.OutClosure, []int{1, 2, 3}), kw)

	return UnpackResult{Tuple: t, List: l, Set: s, Map: m, Kwargs: wk}
}

// mergeKws 把固定参数 a、b 与按下标命名的变长参数合并进 kwargs。
func mergeKws(a, b int, rest []int, kwargs map[string]int) map[string]int {
	out := maps.Clone(kwargs)
	out["a"] = a
	out["b"] = b
	for idx, v := range rest {
		out[strconv.Itoa(idx)] = v
	}
	return out
}

func init() {
	serde.MustRegister("fixtures.BuildUnpack", BuildUnpack{})
	serde.MustRegister("fixtures.UnpackResult", UnpackResult{})
}
