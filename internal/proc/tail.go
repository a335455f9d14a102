package proc

import (
	"sync"

	"github.com/lk2023060901/xrt-go/pkg/buffer/ring"
)

const defaultTailSize = 4096

// TailBuffer 是只保留最后 N 个字节的 io.Writer，用于截留子进程的诊断输出。
type TailBuffer struct {
	mu  sync.Mutex
	max int
	rb  *ring.Buffer
}

// NewTailBuffer 创建容量为 max 字节的 TailBuffer，max <= 0 时使用 4KB。
func NewTailBuffer(max int) *TailBuffer {
	if max <= 0 {
		max = defaultTailSize
	}
	return &TailBuffer{max: max, rb: ring.New(max)}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rb.Write(p)
}

func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	// ring 的容量会向上取整为 2 的幂，这里再截到 max。
	b := t.rb.Bytes()
	if len(b) > t.max {
		b = b[len(b)-t.max:]
	}
	return string(b)
}

// Truncated 判断是否有输出因超出容量而被丢弃。
func (t *TailBuffer) Truncated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rb.Overwritten() > 0 || t.rb.Buffered() > t.max
}
