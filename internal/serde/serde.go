// Package serde 提供跨进程、跨运行时传递对象所需的序列化能力。
//
// 值被编码为带类型名的 JSON 文档：
//
//	{"type": "<注册名>", "state": <值的 JSON>, "debug": {...}}
//
// 只有通过 Register 注册过的类型才能被序列化或反序列化；内置基础类型已预先注册。
// 协议版本决定文档外面是否再套一层 zstd 压缩。
package serde

// Compat 表示内层 payload 的协议版本，由产生方的 origin tag 决定。
type Compat int

const (
	// ProtocolPlain 为未压缩的 JSON 文档。
	ProtocolPlain Compat = 1
	// ProtocolZstd 为 zstd 压缩后的 JSON 文档。
	ProtocolZstd Compat = 2

	// LatestProtocol 为当前构建写出时使用的协议。
	LatestProtocol = ProtocolZstd
)

func (c Compat) String() string {
	switch c {
	case ProtocolPlain:
		return "plain"
	case ProtocolZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Options 为单次序列化/反序列化调用的参数。
type Options struct {
	// Compat 为协议版本，零值等价于 LatestProtocol。
	Compat Compat
	// DumpCode 控制是否在文档中附带调试信息；反序列化时则会把调试信息打到日志中。
	DumpCode bool
}

func (o Options) protocol() Compat {
	if o.Compat == 0 {
		return LatestProtocol
	}
	return o.Compat
}

// OptionsFor 根据产生方的版本号选择反序列化策略。
//
// 1.2 之前的运行时只会写出 ProtocolPlain。
func OptionsFor(major, minor int) Options {
	if major > 1 || (major == 1 && minor >= 2) {
		return Options{Compat: ProtocolZstd}
	}
	return Options{Compat: ProtocolPlain}
}

// Serializer 抽象了“对象 <-> 字节”的转换。
type Serializer interface {
	// Serialize 将 v 编码为字节序列。
	Serialize(v any, opts Options) ([]byte, error)

	// Deserialize 将 Serialize 的输出还原为对象。
	// 输入不合法时返回 ErrDeserializeFailed，不会返回构造了一半的对象。
	Deserialize(data []byte, opts Options) (any, error)
}
