package serde

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/lk2023060901/xrt-go/internal/json"
	"github.com/lk2023060901/xrt-go/pkg/log"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

const nilTypeName = "nil"

var (
	anySliceType = reflect.TypeOf([]any{})
	anyMapType   = reflect.TypeOf(map[string]any{})
)

// dumpAPI 用于生成调试信息，map key 有序便于人工比对。
var dumpAPI = jsoniter.Config{
	SortMapKeys:   true,
	EscapeHTML:    false,
	UseNumber:     true,
	CaseSensitive: true,
}.Froze()

type document struct {
	Type  string          `json:"type"`
	State json.RawMessage `json:"state,omitempty"`
	Debug *debugInfo      `json:"debug,omitempty"`
}

// debugInfo 仅用于排查问题，反序列化时不参与构造对象。
type debugInfo struct {
	GoType string `json:"go_type"`
	Dump   string `json:"dump"`
}

// Registry 是 Serializer 的默认实现，维护“注册名 <-> Go 类型”的映射。
type Registry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string

	zstdOnce sync.Once
	zstd     *ZstdCompressor
	zstdErr  error
}

var _ Serializer = (*Registry)(nil)

// NewRegistry 创建一个预先注册了内置类型的 Registry。
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
	for name, proto := range builtinTypes {
		r.MustRegister(name, proto)
	}
	return r
}

var builtinTypes = map[string]any{
	"bool":               false,
	"int":                int(0),
	"int64":              int64(0),
	"float64":            float64(0),
	"string":             "",
	"[]any":              []any{},
	"[]int":              []int{},
	"[]float64":          []float64{},
	"[]string":           []string{},
	"map[string]any":     map[string]any{},
	"map[string]int":     map[string]int{},
	"map[string]float64": map[string]float64{},
	"map[string]string":  map[string]string{},
}

// Register 以 name 注册 prototype 的动态类型。
// 同一个名字或同一个类型只能注册一次。
func (r *Registry) Register(name string, prototype any) error {
	if name == "" || name == nilTypeName {
		return merr.WrapErrParameterInvalidMsg("invalid type name %q", name)
	}
	if prototype == nil {
		return merr.WrapErrParameterMissing("prototype")
	}
	t := reflect.TypeOf(prototype)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return merr.WrapErrTypeDuplicated(name)
	}
	if existing, ok := r.byType[t]; ok {
		return merr.WrapErrTypeDuplicated(fmt.Sprintf("%s (already %s)", t, existing))
	}
	r.byName[name] = t
	r.byType[t] = name
	return nil
}

// MustRegister 与 Register 相同，失败时 panic，适合在 init 中调用。
func (r *Registry) MustRegister(name string, prototype any) {
	if err := r.Register(name, prototype); err != nil {
		panic(err)
	}
}

// Names 返回已注册的全部类型名（有序）。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := maps.Keys(r.byName)
	slices.Sort(keys)
	return keys
}

// NameOf 返回 v 的注册名。
func (r *Registry) NameOf(v any) (string, bool) {
	if v == nil {
		return nilTypeName, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byType[reflect.TypeOf(v)]
	return name, ok
}

func (r *Registry) typeOf(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) compressor(c Compat) (Compressor, error) {
	switch c {
	case ProtocolPlain:
		return NopCompressor{}, nil
	case ProtocolZstd:
		r.zstdOnce.Do(func() {
			r.zstd, r.zstdErr = NewZstdCompressor(0)
		})
		return r.zstd, r.zstdErr
	default:
		return nil, merr.WrapErrParameterInvalidMsg("unsupported protocol %d", int(c))
	}
}

// Serialize 实现 Serializer.Serialize。
func (r *Registry) Serialize(v any, opts Options) ([]byte, error) {
	name, ok := r.NameOf(v)
	if !ok {
		return nil, merr.WrapErrTypeNotRegistered(fmt.Sprintf("%T", v), "serialize")
	}

	doc, err := r.encode(name, v)
	if err != nil {
		return nil, err
	}
	if opts.DumpCode {
		dump, err := dumpAPI.MarshalToString(v)
		if err != nil {
			dump = err.Error()
		}
		doc.Debug = &debugInfo{GoType: fmt.Sprintf("%T", v), Dump: dump}
	}

	raw, err := json.Marshal(&doc)
	if err != nil {
		return nil, merr.WrapErrSerializeFailed(name, err)
	}
	c, err := r.compressor(opts.protocol())
	if err != nil {
		return nil, merr.WrapErrSerializeFailed(name, err)
	}
	out, err := c.Compress(nil, raw)
	if err != nil {
		return nil, merr.WrapErrSerializeFailed(name, err)
	}
	return out, nil
}

// Deserialize 实现 Serializer.Deserialize。
func (r *Registry) Deserialize(data []byte, opts Options) (any, error) {
	if len(data) == 0 {
		return nil, merr.WrapErrDeserializeFailed("empty input", nil)
	}
	protocol := opts.protocol()
	c, err := r.compressor(protocol)
	if err != nil {
		return nil, merr.WrapErrDeserializeFailed("protocol", err)
	}
	raw, err := c.Decompress(nil, data)
	if err != nil {
		return nil, merr.WrapErrDeserializeFailed("decompress "+protocol.String(), err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, merr.WrapErrDeserializeFailed("malformed document", err)
	}
	if doc.Debug != nil && opts.DumpCode {
		log.Debug("deserialize debug dump",
			zap.String("type", doc.Type),
			zap.String("goType", doc.Debug.GoType),
			zap.String("dump", doc.Debug.Dump))
	}
	return r.decode(doc)
}

// encode 生成 v 的类型化文档。[]any 与 map[string]any 的元素逐个编码为嵌套文档，
// 以保留元素自身的类型（否则整数会在反序列化后变成 float64）。
func (r *Registry) encode(name string, v any) (document, error) {
	doc := document{Type: name}
	var (
		state []byte
		err   error
	)
	switch x := v.(type) {
	case nil:
		return doc, nil
	case []any:
		var items []document
		if x != nil {
			items = make([]document, 0, len(x))
		}
		for i, elem := range x {
			item, err := r.encodeElem(elem)
			if err != nil {
				return doc, errors.Wrapf(err, "%s[%d]", name, i)
			}
			items = append(items, item)
		}
		state, err = json.Marshal(items)
	case map[string]any:
		var items map[string]document
		if x != nil {
			items = make(map[string]document, len(x))
		}
		for key, elem := range x {
			item, err := r.encodeElem(elem)
			if err != nil {
				return doc, errors.Wrapf(err, "%s[%q]", name, key)
			}
			items[key] = item
		}
		state, err = json.Marshal(items)
	default:
		state, err = json.Marshal(v)
	}
	if err != nil {
		return doc, merr.WrapErrSerializeFailed(name, err)
	}
	doc.State = state
	return doc, nil
}

func (r *Registry) encodeElem(v any) (document, error) {
	name, ok := r.NameOf(v)
	if !ok {
		return document{}, merr.WrapErrTypeNotRegistered(fmt.Sprintf("%T", v), "serialize")
	}
	return r.encode(name, v)
}

// decode 是 encode 的逆过程。
func (r *Registry) decode(doc document) (any, error) {
	if doc.Type == "" {
		return nil, merr.WrapErrDeserializeFailed("missing type", nil)
	}
	if doc.Type == nilTypeName {
		return nil, nil
	}

	t, ok := r.typeOf(doc.Type)
	if !ok {
		return nil, merr.WrapErrTypeNotRegistered(doc.Type, "deserialize")
	}
	switch t {
	case anySliceType:
		var items []document
		if err := unmarshalState(doc, &items); err != nil {
			return nil, err
		}
		if items == nil {
			return []any(nil), nil
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			v, err := r.decode(item)
			if err != nil {
				return nil, errors.Wrapf(err, "%s[%d]", doc.Type, i)
			}
			out = append(out, v)
		}
		return out, nil
	case anyMapType:
		var items map[string]document
		if err := unmarshalState(doc, &items); err != nil {
			return nil, err
		}
		if items == nil {
			return map[string]any(nil), nil
		}
		out := make(map[string]any, len(items))
		for key, item := range items {
			v, err := r.decode(item)
			if err != nil {
				return nil, errors.Wrapf(err, "%s[%q]", doc.Type, key)
			}
			out[key] = v
		}
		return out, nil
	}

	ptr := reflect.New(t)
	if err := unmarshalState(doc, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func unmarshalState(doc document, out any) error {
	if len(doc.State) == 0 {
		return nil
	}
	if err := json.Unmarshal(doc.State, out); err != nil {
		return merr.WrapErrDeserializeFailed("state of "+doc.Type, err)
	}
	return nil
}
