package fixtures

import (
	"iter"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/log"
)

// FuncClassFactory 对应“返回类的工厂”：无参调用得到 FuncClass 实例。
type FuncClassFactory struct {
	OutClosure int `json:"out_closure"`
	InnerGain  int `json:"inner_gain"`
}

func (f FuncClassFactory) Call(_ []any, _ map[string]any) (any, error) {
	return FuncClass{Nest: NestClass{OClosure: f.OutClosure, InnerGain: f.InnerGain}}, nil
}

// FuncClass 调用时返回一个惰性序列，序列只产出一个值。
type FuncClass struct {
	Nest NestClass `json:"nest"`
}

func (f FuncClass) Call(args []any, _ map[string]any) (any, error) {
	addVal, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	var seq iter.Seq[any] = func(yield func(any) bool) {
		yield(f.Nest.NestedMethod(addVal))
	}
	return seq, nil
}

type NestClass struct {
	OClosure  int `json:"o_closure"`
	InnerGain int `json:"inner_gain"`
}

func (n NestClass) NestedMethod(addVal int) int {
	if addVal < 5 {
		return n.OClosure + addVal*2 + n.InnerGain
	}
	return n.OClosure + addVal + n.InnerGain
}

// ClassBuilder 对应“返回类构造器的函数”：
// 第一次调用得到 BuildCls（类），第二次调用得到实例，实例方法 b 计算 a + v + OutClosure。
type ClassBuilder struct {
	OutClosure int `json:"out_closure"`
}

func (b ClassBuilder) Call(_ []any, _ map[string]any) (any, error) {
	return BuildCls{A: b.OutClosure, OutClosure: b.OutClosure}, nil
}

type BuildCls struct {
	A          int `json:"a"`
	OutClosure int `json:"out_closure"`
}

func (c BuildCls) Call(_ []any, _ map[string]any) (any, error) {
	return &BuildInstance{cls: c}, nil
}

type BuildInstance struct {
	cls BuildCls
}

func (i *BuildInstance) CallMethod(name string, args []any, _ map[string]any) (any, error) {
	if name != "b" {
		return nil, errors.Newf("BuildCls has no method %q", name)
	}
	addVal, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	log.Debug("BuildCls.b", log.FieldFixture("fixtures.class_builder"))
	return i.cls.A + addVal + i.cls.OutClosure, nil
}

func init() {
	serde.MustRegister("fixtures.FuncClassFactory", FuncClassFactory{})
	serde.MustRegister("fixtures.FuncClass", FuncClass{})
	serde.MustRegister("fixtures.ClassBuilder", ClassBuilder{})
	serde.MustRegister("fixtures.BuildCls", BuildCls{})
}
