package envelope

import (
	"encoding/base64"

	"github.com/lk2023060901/xrt-go/internal/json"
	"github.com/lk2023060901/xrt-go/internal/serde"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

const (
	formatVersion = 1

	layerInner = "inner"
	layerOuter = "outer"
)

var encoding = base64.StdEncoding

// outerDocument 为外层 JSON 文档。
type outerDocument struct {
	Version int        `json:"v"`
	Payload string     `json:"payload"`
	Origin  *OriginTag `json:"origin"`
}

// Codec 负责单层的“对象 <-> 文本”转换。
type Codec struct {
	serializer serde.Serializer
}

// NewCodec 创建 Codec，serializer 为 nil 时使用 serde.Default。
func NewCodec(serializer serde.Serializer) *Codec {
	if serializer == nil {
		serializer = serde.Default
	}
	return &Codec{serializer: serializer}
}

// Serializer 返回底层的 serializer。
func (c *Codec) Serializer() serde.Serializer {
	return c.serializer
}

// Encode 序列化 v 并做 base64 编码。
func (c *Codec) Encode(v any, opts serde.Options) (string, error) {
	data, err := c.serializer.Serialize(v, opts)
	if err != nil {
		return "", err
	}
	return encoding.EncodeToString(data), nil
}

// Decode 为 Encode 的逆过程，任何一步失败都返回 ErrCorruptEnvelope。
func (c *Codec) Decode(text string, opts serde.Options) (any, error) {
	data, err := encoding.DecodeString(text)
	if err != nil || len(data) == 0 {
		return nil, merr.WrapErrCorruptEnvelope(layerInner, err)
	}
	v, err := c.serializer.Deserialize(data, opts)
	if err != nil {
		return nil, merr.WrapErrCorruptEnvelope(layerInner, err)
	}
	return v, nil
}

// Seal 序列化 v 并与 origin 一起打包成两层编码的文本。
func (c *Codec) Seal(v any, origin OriginTag, dumpCode bool) (string, error) {
	opts := origin.Options()
	opts.DumpCode = dumpCode
	payload, err := c.serializer.Serialize(v, opts)
	if err != nil {
		return "", err
	}
	return Pack(payload, origin)
}

// Open 解开两层编码并按 origin 选择的策略反序列化内层 payload。
func (c *Codec) Open(text string, dumpCode bool) (any, OriginTag, error) {
	env, err := Unpack(text)
	if err != nil {
		return nil, OriginTag{}, err
	}
	opts := env.Options()
	opts.DumpCode = dumpCode
	v, err := c.serializer.Deserialize(env.payload, opts)
	if err != nil {
		return nil, env.origin, merr.WrapErrCorruptEnvelope(layerInner, err)
	}
	return v, env.origin, nil
}

// Pack 将 payload 与 origin 打包为单个文本单元：
//
//	base64( JSON{ "v": 1, "payload": base64(payload), "origin": {...} } )
func Pack(payload []byte, origin OriginTag) (string, error) {
	if len(payload) == 0 {
		return "", merr.WrapErrParameterMissing("payload")
	}
	doc := outerDocument{
		Version: formatVersion,
		Payload: encoding.EncodeToString(payload),
		Origin:  &origin,
	}
	raw, err := json.Marshal(&doc)
	if err != nil {
		return "", merr.WrapErrSerializeFailed("envelope", err)
	}
	return encoding.EncodeToString(raw), nil
}

// Unpack 为 Pack 的逆过程，只解开外层，不触碰内层 payload 的版本相关编码。
func Unpack(text string) (Envelope, error) {
	raw, err := encoding.DecodeString(text)
	if err != nil || len(raw) == 0 {
		return Envelope{}, merr.WrapErrCorruptEnvelope(layerOuter, err)
	}
	var doc outerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Envelope{}, merr.WrapErrCorruptEnvelope(layerOuter, err)
	}
	if doc.Version != formatVersion {
		return Envelope{}, merr.WrapErrCorruptEnvelope(layerOuter,
			merr.WrapErrParameterInvalid(formatVersion, doc.Version, "format marker"))
	}
	if doc.Origin == nil {
		return Envelope{}, merr.WrapErrCorruptEnvelope(layerOuter, merr.WrapErrParameterMissing("origin"))
	}
	payload, err := encoding.DecodeString(doc.Payload)
	if err != nil || len(payload) == 0 {
		return Envelope{}, merr.WrapErrCorruptEnvelope(layerInner, err)
	}
	return Envelope{payload: payload, origin: *doc.Origin}, nil
}
