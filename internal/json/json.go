// Package json 对 bytedance/sonic 做一层薄封装，统一项目内的 JSON 编解码入口。
package json

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

// api 与 encoding/json 行为保持一致（排序 key、转义 HTML、校验 UTF-8）。
var api = sonic.ConfigStd

type (
	RawMessage = stdjson.RawMessage
	Encoder    = sonic.Encoder
	Decoder    = sonic.Decoder
)

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

func Valid(data []byte) bool {
	return api.Valid(data)
}

func NewEncoder(w io.Writer) Encoder {
	return api.NewEncoder(w)
}

func NewDecoder(r io.Reader) Decoder {
	return api.NewDecoder(r)
}
