// Package framer 提供基于长度前缀的帧读写，用于父进程与 worker 之间的管道通信。
package framer

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

// Framer 抽象了帧的打包/解包能力。
//
// 一帧数据的格式为：4 字节大端无符号整型（表示 body 长度）+ body。
type Framer interface {
	// WriteFrame 将 body 打包为一帧并写入到 w 中。
	WriteFrame(w io.Writer, body []byte) error

	// ReadFrame 从 r 中读取一帧数据并返回 body。
	// 流在帧边界处结束时返回 io.EOF。
	ReadFrame(r io.Reader) ([]byte, error)
}

// LengthPrefixedFramer 使用长度前缀（4 字节大端）作为帧边界。
type LengthPrefixedFramer struct {
	// MaxFrameSize 为允许的最大帧大小，单位字节。
	// 为 0 时使用默认值 defaultMaxFrameSize。
	MaxFrameSize uint32
}

const (
	headerSize                 = 4
	defaultMaxFrameSize uint32 = 64 * 1024 * 1024 // 64MB
)

var _ Framer = (*LengthPrefixedFramer)(nil)

// NewLengthPrefixedFramer 创建一个长度前缀帧编码器。
// maxFrameSize 为 0 时使用默认值。
func NewLengthPrefixedFramer(maxFrameSize uint32) *LengthPrefixedFramer {
	if maxFrameSize == 0 {
		maxFrameSize = defaultMaxFrameSize
	}
	return &LengthPrefixedFramer{
		MaxFrameSize: maxFrameSize,
	}
}

// WriteFrame 将 body 编码为长度前缀帧，并以一次 Write 调用写出。
func (f *LengthPrefixedFramer) WriteFrame(w io.Writer, body []byte) error {
	length := uint32(len(body))
	if len(body) > int(f.effectiveMaxSize()) {
		return merr.WrapErrParameterTooLarge("frame",
			fmt.Sprintf("frame size %d exceeds max %d", len(body), f.effectiveMaxSize()))
	}

	// 头部与 body 合并写出，避免读端看到只有头部的半帧。
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], length)
	_, _ = buf.Write(header[:])
	_, _ = buf.Write(body)

	if _, err := w.Write(buf.B); err != nil {
		return merr.WrapErrIoFailed("frame", err)
	}
	return nil
}

// ReadFrame 从流中读取一帧数据。
func (f *LengthPrefixedFramer) ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, merr.WrapErrIoUnexpectEOF("frame header", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > f.effectiveMaxSize() {
		return nil, merr.WrapErrParameterTooLarge("frame",
			fmt.Sprintf("frame size %d exceeds max %d", length, f.effectiveMaxSize()))
	}
	if length == 0 {
		return []byte{}, nil
	}

	// 使用 ByteBuffer 池降低频繁 make 带来的分配与 GC 压力。
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if cap(buf.B) < int(length) {
		buf.B = make([]byte, int(length))
	} else {
		buf.B = buf.B[:int(length)]
	}
	if _, err := io.ReadFull(r, buf.B); err != nil {
		return nil, merr.WrapErrIoUnexpectEOF("frame body", err)
	}

	out := make([]byte, length)
	copy(out, buf.B)
	return out, nil
}

func (f *LengthPrefixedFramer) effectiveMaxSize() uint32 {
	if f == nil || f.MaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return f.MaxFrameSize
}
