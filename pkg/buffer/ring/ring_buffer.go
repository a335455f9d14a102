// Copyright (c) 2019 The Gnet Authors. All rights reserved.
// Copyright (c) 2019 Chao yuepan, Allen Xu
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package ring 实现了一个固定容量的环形缓冲区。
//
// 缓冲区写满后，新写入的数据会覆盖最早的数据，因此任意时刻保存的都是最近写入的
// Cap() 个字节，适合用来截留子进程输出的尾部。
package ring

import "math/bits"

// DefaultBufferSize 是环形缓冲区的默认容量。
const DefaultBufferSize = 4 * 1024 // 4KB

// Buffer 是覆盖写的环形缓冲区，实现了 io.Writer 接口。
// Buffer 不是并发安全的。
type Buffer struct {
	buf    []byte // 底层字节切片
	size   int    // 缓冲区容量（始终为 2 的幂）
	w      int    // 下一次写入位置
	filled bool   // 是否已经写满过一圈
	total  int64  // 累计写入的字节数
}

// New 创建一个给定容量的 Buffer。
// size 会被向上取整为 2 的幂；size <= 0 时使用 DefaultBufferSize。
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	size = ceilToPowerOfTwo(size)
	return &Buffer{
		buf:  make([]byte, size),
		size: size,
	}
}

// Write 写入 p，总是完整写入并返回 len(p)。
// 超出容量的部分会覆盖最早写入的数据。
func (rb *Buffer) Write(p []byte) (n int, err error) {
	n = len(p)
	rb.total += int64(n)
	if n >= rb.size {
		// 只有最后 size 个字节会被保留。
		copy(rb.buf, p[n-rb.size:])
		rb.w = 0
		rb.filled = true
		return n, nil
	}

	c := copy(rb.buf[rb.w:], p)
	if c < n {
		copy(rb.buf, p[c:])
	}
	next := rb.w + n
	if next >= rb.size {
		rb.filled = true
	}
	rb.w = next & (rb.size - 1)
	return n, nil
}

// WriteString 写入字符串 s。
func (rb *Buffer) WriteString(s string) (int, error) {
	return rb.Write([]byte(s))
}

// Buffered 返回当前保存的字节数。
func (rb *Buffer) Buffered() int {
	if rb.filled {
		return rb.size
	}
	return rb.w
}

// Cap 返回缓冲区容量。
func (rb *Buffer) Cap() int {
	return rb.size
}

// Overwritten 返回已经被覆盖掉的字节数。
func (rb *Buffer) Overwritten() int64 {
	return rb.total - int64(rb.Buffered())
}

// Bytes 按写入顺序返回当前保存的数据副本。
func (rb *Buffer) Bytes() []byte {
	if !rb.filled {
		out := make([]byte, rb.w)
		copy(out, rb.buf[:rb.w])
		return out
	}
	out := make([]byte, 0, rb.size)
	out = append(out, rb.buf[rb.w:]...)
	return append(out, rb.buf[:rb.w]...)
}

// Reset 清空缓冲区，容量保持不变。
func (rb *Buffer) Reset() {
	rb.w = 0
	rb.filled = false
	rb.total = 0
}

func ceilToPowerOfTwo(n int) int {
	if n <= 2 {
		return 2
	}
	return 1 << (bits.Len(uint(n - 1)))
}
