// Package fixture 维护“模块名.符号名 -> 生产函数”的注册表。
//
// 跨运行时执行时，另一个运行时只能通过名字重新找到 fixture，
// 因此所有 fixture 都必须在 init 阶段注册，不能是运行期临时构造的闭包。
package fixture

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// Ref 以模块名与符号名引用一个 fixture。
type Ref struct {
	Module string `json:"module" mapstructure:"module"`
	Symbol string `json:"symbol" mapstructure:"symbol"`
}

func (r Ref) String() string {
	return r.Module + "." + r.Symbol
}

// ParseRef 解析形如 "module.symbol" 的引用，以最后一个点分隔。
func ParseRef(s string) (Ref, error) {
	idx := strings.LastIndexByte(s, '.')
	if idx <= 0 || idx == len(s)-1 {
		return Ref{}, merr.WrapErrParameterInvalidMsg("fixture reference %q is not module.symbol", s)
	}
	return Ref{Module: s[:idx], Symbol: s[idx+1:]}, nil
}

// Producer 是零参数的 fixture 生产函数，返回待序列化的对象。
type Producer func() (any, error)

// Registry 为 fixture 注册表。
type Registry struct {
	mu        sync.RWMutex
	producers map[Ref]Producer
}

func NewRegistry() *Registry {
	return &Registry{producers: make(map[Ref]Producer)}
}

// Register 注册一个 fixture，同一个引用只能注册一次。
func (r *Registry) Register(module, symbol string, producer Producer) error {
	if module == "" || symbol == "" {
		return merr.WrapErrParameterInvalidMsg("fixture module and symbol must not be empty")
	}
	if producer == nil {
		return merr.WrapErrParameterMissing("producer")
	}
	ref := Ref{Module: module, Symbol: symbol}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.producers[ref]; ok {
		return merr.WrapErrFixtureDuplicated(ref)
	}
	r.producers[ref] = producer
	return nil
}

// MustRegister 与 Register 相同，失败时 panic。
func (r *Registry) MustRegister(module, symbol string, producer Producer) {
	if err := r.Register(module, symbol, producer); err != nil {
		panic(err)
	}
}

// Lookup 查找 fixture。
func (r *Registry) Lookup(ref Ref) (Producer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.producers[ref]
	if !ok {
		return nil, merr.WrapErrFixtureNotFound(ref)
	}
	return p, nil
}

// Produce 查找并执行 fixture。
func (r *Registry) Produce(ref Ref) (any, error) {
	p, err := r.Lookup(ref)
	if err != nil {
		return nil, err
	}
	v, err := p()
	if err != nil {
		return nil, merr.WrapErrInvocationFailed(ref.String(), err)
	}
	return v, nil
}

// Names 返回所有已注册 fixture 的完整名字（有序）。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Map(lo.Keys(r.producers), func(ref Ref, _ int) string {
		return ref.String()
	})
	slices.Sort(names)
	return names
}

// Default 为进程级默认注册表。
var Default = NewRegistry()

func Register(module, symbol string, producer Producer) error {
	return Default.Register(module, symbol, producer)
}

func MustRegister(module, symbol string, producer Producer) {
	Default.MustRegister(module, symbol, producer)
}

func Lookup(ref Ref) (Producer, error) {
	return Default.Lookup(ref)
}

func Produce(ref Ref) (any, error) {
	return Default.Produce(ref)
}

func Names() []string {
	return Default.Names()
}
