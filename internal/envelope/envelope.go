// Package envelope 实现跨进程、跨运行时交换数据所用的两层编码。
//
// 内层为版本相关的序列化字节（由 serde 产生），外层为任意版本都能解析的 JSON 文档，
// 两层都经过 base64 处理，因此整个单元可以安全地写入文件、管道或命令行参数。
package envelope

import (
	"bytes"
	"fmt"

	"github.com/lk2023060901/xrt-go/internal/serde"
)

// OriginTag 标识 payload 由哪个运行时、哪个版本产生。
type OriginTag struct {
	Major   int    `json:"major"`
	Minor   int    `json:"minor"`
	Runtime string `json:"runtime"`
}

func (o OriginTag) String() string {
	return fmt.Sprintf("%s/%d.%d", o.Runtime, o.Major, o.Minor)
}

// Options 返回解码该来源 payload 时应使用的序列化策略。
func (o OriginTag) Options() serde.Options {
	return serde.OptionsFor(o.Major, o.Minor)
}

// Envelope 是一次交换的数据单元，构造后不可修改。
type Envelope struct {
	payload []byte
	origin  OriginTag
}

// New 构造 Envelope，payload 会被复制。
func New(payload []byte, origin OriginTag) Envelope {
	return Envelope{
		payload: bytes.Clone(payload),
		origin:  origin,
	}
}

// Payload 返回内层 payload 的副本。
func (e Envelope) Payload() []byte {
	return bytes.Clone(e.payload)
}

func (e Envelope) Origin() OriginTag {
	return e.origin
}

// Options 返回该 Envelope 内层 payload 的解码策略。
func (e Envelope) Options() serde.Options {
	return e.origin.Options()
}
