package executor

import (
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/lk2023060901/xrt-go/internal/envelope"
	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// 请求与响应在管道上以 protobuf wire 格式编码，字段号如下。
const (
	fieldPayload       protowire.Number = 1
	fieldOriginMajor   protowire.Number = 2
	fieldOriginMinor   protowire.Number = 3
	fieldOriginRuntime protowire.Number = 4
	fieldDumpCode      protowire.Number = 5
	fieldArg           protowire.Number = 6
	fieldKwarg         protowire.Number = 7
	fieldWrapper       protowire.Number = 8

	fieldKwargKey   protowire.Number = 1
	fieldKwargValue protowire.Number = 2

	fieldResultCompat protowire.Number = 1
	fieldResultValue  protowire.Number = 2
)

// auxOptions 用于参数、kwargs 与 wrapper 的编码。
// 它们由父进程产生、由同一套代码的 worker 消费，因此总是使用通用的纯 JSON 协议。
var auxOptions = serde.Options{Compat: serde.ProtocolPlain}

// wireRequest 为 Request 在管道上的形态，参数均已序列化。
type wireRequest struct {
	payload  []byte
	origin   envelope.OriginTag
	dumpCode bool
	args     [][]byte
	kwargs   map[string][]byte
	wrapper  []byte
}

func newWireRequest(s serde.Serializer, req Request, dumpCode bool) (*wireRequest, error) {
	if len(req.Payload) == 0 {
		return nil, merr.WrapErrParameterMissing("payload")
	}
	w := &wireRequest{
		payload:  req.Payload,
		origin:   req.Origin,
		dumpCode: dumpCode,
		args:     make([][]byte, 0, len(req.Args)),
		kwargs:   make(map[string][]byte, len(req.Kwargs)),
	}
	for _, arg := range req.Args {
		data, err := s.Serialize(arg, auxOptions)
		if err != nil {
			return nil, errors.Wrap(err, "serialize argument")
		}
		w.args = append(w.args, data)
	}
	for key, value := range req.Kwargs {
		data, err := s.Serialize(value, auxOptions)
		if err != nil {
			return nil, errors.Wrapf(err, "serialize kwarg %s", key)
		}
		w.kwargs[key] = data
	}
	if req.Wrapper != nil {
		data, err := s.Serialize(req.Wrapper, auxOptions)
		if err != nil {
			return nil, errors.Wrap(err, "serialize wrapper")
		}
		w.wrapper = data
	}
	return w, nil
}

func (w *wireRequest) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, w.payload)
	b = protowire.AppendTag(b, fieldOriginMajor, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(w.origin.Major))
	b = protowire.AppendTag(b, fieldOriginMinor, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(w.origin.Minor))
	if w.origin.Runtime != "" {
		b = protowire.AppendTag(b, fieldOriginRuntime, protowire.BytesType)
		b = protowire.AppendString(b, w.origin.Runtime)
	}
	if w.dumpCode {
		b = protowire.AppendTag(b, fieldDumpCode, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	for _, arg := range w.args {
		b = protowire.AppendTag(b, fieldArg, protowire.BytesType)
		b = protowire.AppendBytes(b, arg)
	}
	// kwargs 按 key 排序写出，保证同一请求的编码结果稳定。
	keys := make([]string, 0, len(w.kwargs))
	for key := range w.kwargs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldKwargKey, protowire.BytesType)
		entry = protowire.AppendString(entry, key)
		entry = protowire.AppendTag(entry, fieldKwargValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, w.kwargs[key])
		b = protowire.AppendTag(b, fieldKwarg, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	if len(w.wrapper) > 0 {
		b = protowire.AppendTag(b, fieldWrapper, protowire.BytesType)
		b = protowire.AppendBytes(b, w.wrapper)
	}
	return b
}

func unmarshalWireRequest(b []byte) (*wireRequest, error) {
	w := &wireRequest{kwargs: make(map[string][]byte)}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w.payload, b = v, b[n:]
		case num == fieldOriginMajor && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w.origin.Major, b = int(v), b[n:]
		case num == fieldOriginMinor && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w.origin.Minor, b = int(v), b[n:]
		case num == fieldOriginRuntime && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w.origin.Runtime, b = v, b[n:]
		case num == fieldDumpCode && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w.dumpCode, b = protowire.DecodeBool(v), b[n:]
		case num == fieldArg && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w.args, b = append(w.args, v), b[n:]
		case num == fieldKwarg && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			key, value, err := unmarshalKwarg(v)
			if err != nil {
				return nil, err
			}
			w.kwargs[key], b = value, b[n:]
		case num == fieldWrapper && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			w.wrapper, b = v, b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if len(w.payload) == 0 {
		return nil, merr.WrapErrParameterMissing("payload")
	}
	return w, nil
}

func unmarshalKwarg(b []byte) (string, []byte, error) {
	var (
		key   string
		value []byte
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldKwargKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", nil, protowire.ParseError(n)
			}
			key, b = v, b[n:]
		case num == fieldKwargValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", nil, protowire.ParseError(n)
			}
			value, b = v, b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if key == "" {
		return "", nil, merr.WrapErrParameterMissing("kwarg key")
	}
	return key, value, nil
}

// decode 在 worker 一侧还原出可调用对象与调用参数。
func (w *wireRequest) decode(s serde.Serializer) (target any, args []any, kwargs map[string]any, wrapper serde.Wrapper, err error) {
	opts := w.origin.Options()
	opts.DumpCode = w.dumpCode
	target, err = s.Deserialize(w.payload, opts)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	args = make([]any, 0, len(w.args))
	for _, data := range w.args {
		v, err := s.Deserialize(data, auxOptions)
		if err != nil {
			return nil, nil, nil, nil, errors.Wrap(err, "deserialize argument")
		}
		args = append(args, v)
	}
	kwargs = make(map[string]any, len(w.kwargs))
	for key, data := range w.kwargs {
		v, err := s.Deserialize(data, auxOptions)
		if err != nil {
			return nil, nil, nil, nil, errors.Wrapf(err, "deserialize kwarg %s", key)
		}
		kwargs[key] = v
	}
	if len(w.wrapper) > 0 {
		v, err := s.Deserialize(w.wrapper, auxOptions)
		if err != nil {
			return nil, nil, nil, nil, errors.Wrap(err, "deserialize wrapper")
		}
		wr, ok := v.(serde.Wrapper)
		if !ok {
			return nil, nil, nil, nil, merr.WrapErrNotInvocable(fmt.Sprintf("%T", v), "wrapper")
		}
		wrapper = wr
	}
	return target, args, kwargs, wrapper, nil
}

// marshalResult 编码 worker 的返回值，连同所用协议一起写出。
func marshalResult(compat serde.Compat, value []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldResultCompat, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(compat))
	b = protowire.AppendTag(b, fieldResultValue, protowire.BytesType)
	b = protowire.AppendBytes(b, value)
	return b
}

func unmarshalResult(b []byte) (serde.Compat, []byte, error) {
	var (
		compat serde.Compat
		value  []byte
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldResultCompat && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			compat, b = serde.Compat(v), b[n:]
		case num == fieldResultValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			value, b = v, b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if len(value) == 0 {
		return 0, nil, merr.WrapErrParameterMissing("result value")
	}
	return compat, value, nil
}
