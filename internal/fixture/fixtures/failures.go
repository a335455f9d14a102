package fixtures

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"

	"github.com/lk2023060901/xrt-go/internal/serde"
)

// Faulty 调用时总是返回错误。
type Faulty struct {
	Reason string `json:"reason"`
}

func (f Faulty) Call(_ []any, _ map[string]any) (any, error) {
	return nil, errors.Newf("faulty fixture: %s", f.Reason)
}

// Panicky 调用时直接 panic。
type Panicky struct{}

func (Panicky) Call(_ []any, _ map[string]any) (any, error) {
	panic("panicky fixture invoked")
}

// NoResult 调用成功但不产生任何值。
type NoResult struct{}

func (NoResult) Call(_ []any, _ map[string]any) (any, error) {
	return nil, nil
}

// parentState 是进程级的可变状态，只在设置它的进程内可见。
var parentState = atomic.NewInt64(0)

// SetParentState 设置当前进程的 parentState，返回旧值。
func SetParentState(v int64) int64 {
	return parentState.Swap(v)
}

// ParentState 读取进程级状态而不是捕获它，
// 因此在没有设置过该状态的进程中调用会失败。
type ParentState struct{}

func (ParentState) Call(args []any, _ map[string]any) (any, error) {
	v := parentState.Load()
	if v == 0 {
		return nil, errors.New("parent state is not visible in this process")
	}
	add, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}
	return int(v) + add, nil
}

func init() {
	serde.MustRegister("fixtures.Faulty", Faulty{})
	serde.MustRegister("fixtures.Panicky", Panicky{})
	serde.MustRegister("fixtures.NoResult", NoResult{})
	serde.MustRegister("fixtures.ParentState", ParentState{})
}
