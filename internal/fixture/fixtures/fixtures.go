// Package fixtures 提供跨运行时验证所用的全部 fixture，并在 init 阶段注册到
// fixture.Default（模块名 "fixtures"）与 serde.Default。
//
// 每个 fixture 都是零参数的生产函数，返回一个携带“捕获变量”的可调用对象。
package fixtures

import (
	"github.com/lk2023060901/xrt-go/internal/fixture"
	"github.com/lk2023060901/xrt-go/internal/serde"
)

// Module 为本包 fixture 的模块名。
const Module = "fixtures"

// Scenario 描述调用某个 fixture 所用的参数与 wrapper。
type Scenario struct {
	Ref     fixture.Ref
	Args    []any
	Kwargs  map[string]any
	Wrapper serde.Wrapper
}

func ref(symbol string) fixture.Ref {
	return fixture.Ref{Module: Module, Symbol: symbol}
}

var (
	NestedFunRef         = ref("nested_fun")
	NestedYieldObjRef    = ref("nested_yield_obj")
	ClassBuilderRef      = ref("class_builder")
	FormatStringRef      = ref("format_string")
	BuildUnpackRef       = ref("build_unpack")
	BuildUnpackSpreadRef = ref("build_unpack_spread")
	TryExceptRef         = ref("try_except")
	MatmulRef            = ref("matmul")
	FaultyRef            = ref("faulty")
	PanickyRef           = ref("panicky")
	NoResultRef          = ref("no_result")
	ParentStateRef       = ref("parent_state")
)

// Scenarios 为可以成功完成的标准用例，参数取值与原始验证用例一致。
var Scenarios = []Scenario{
	{Ref: NestedFunRef, Args: []any{20}},
	{Ref: NestedYieldObjRef, Args: []any{20}, Wrapper: serde.DrainSum{Depth: 1}},
	{Ref: ClassBuilderRef, Args: []any{5}, Wrapper: serde.InstantiateAndCall{Depth: 2, Method: "b"}},
	{Ref: FormatStringRef, Args: []any{20}},
	{Ref: BuildUnpackRef, Args: []any{20}},
	{Ref: BuildUnpackSpreadRef, Args: []any{20}},
	{Ref: TryExceptRef, Args: []any{20}},
	{Ref: MatmulRef, Args: []any{20}},
}

func constant(v any) fixture.Producer {
	return func() (any, error) { return v, nil }
}

func init() {
	fixture.MustRegister(Module, NestedFunRef.Symbol, constant(NestedFun{OutClosure: 10}))
	fixture.MustRegister(Module, NestedYieldObjRef.Symbol, constant(FuncClassFactory{OutClosure: 10, InnerGain: 5}))
	fixture.MustRegister(Module, ClassBuilderRef.Symbol, constant(ClassBuilder{OutClosure: 10}))
	fixture.MustRegister(Module, FormatStringRef.Symbol, constant(FormatFun{OutClosure: 4.0}))
	fixture.MustRegister(Module, BuildUnpackRef.Symbol, constant(BuildUnpack{OutClosure: []int{1, 2, 3}, Style: StyleConcat}))
	fixture.MustRegister(Module, BuildUnpackSpreadRef.Symbol, constant(BuildUnpack{OutClosure: []int{1, 2, 3}, Style: StyleSpread}))
	fixture.MustRegister(Module, TryExceptRef.Symbol, constant(TryExcept{OutClosure: map[string]float64{"k": 12.0}}))
	fixture.MustRegister(Module, MatmulRef.Symbol, constant(Matmul{OutClosure: [][]int{{4, 9, 2}, {3, 5, 7}, {8, 1, 6}}}))
	fixture.MustRegister(Module, FaultyRef.Symbol, constant(Faulty{Reason: "deliberate failure"}))
	fixture.MustRegister(Module, PanickyRef.Symbol, constant(Panicky{}))
	fixture.MustRegister(Module, NoResultRef.Symbol, constant(NoResult{}))
	fixture.MustRegister(Module, ParentStateRef.Symbol, constant(ParentState{}))
}
