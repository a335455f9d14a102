package executor

import (
	"io"

	"github.com/lk2023060901/xrt-go/internal/framer"
	"github.com/lk2023060901/xrt-go/internal/serde"
)

type config struct {
	executable string
	args       []string
	env        []string
	stderr     io.Writer
	stderrTail int
	dumpCode   bool
	serializer serde.Serializer
	framer     framer.Framer
}

func defaultConfig() config {
	return config{
		stderrTail: defaultStderrTail,
		serializer: serde.Default,
		framer:     framer.NewLengthPrefixedFramer(0),
	}
}

// Option 为 Executor 的可选配置。
type Option func(*config)

// WithExecutable 指定 worker 可执行文件。
func WithExecutable(path string) Option {
	return func(c *config) {
		c.executable = path
	}
}

// WithArgs 指定启动 worker 时附加的命令行参数。
func WithArgs(args ...string) Option {
	return func(c *config) {
		c.args = append(c.args, args...)
	}
}

// WithEnv 追加 worker 的环境变量，格式为 KEY=VALUE。
func WithEnv(env ...string) Option {
	return func(c *config) {
		c.env = append(c.env, env...)
	}
}

// WithStderr 指定 worker stderr 的去向，默认为当前进程的 stderr。
func WithStderr(w io.Writer) Option {
	return func(c *config) {
		c.stderr = w
	}
}

// WithStderrTail 指定崩溃时保留的 stderr 尾部字节数。
func WithStderrTail(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.stderrTail = n
		}
	}
}

func WithDumpCode(dump bool) Option {
	return func(c *config) {
		c.dumpCode = dump
	}
}

func WithSerializer(s serde.Serializer) Option {
	return func(c *config) {
		if s != nil {
			c.serializer = s
		}
	}
}
