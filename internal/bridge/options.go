package bridge

import (
	"io"
	"runtime"
	"time"
)

const defaultStderrTail = 4096

type config struct {
	tempDir       string
	dumpCode      bool
	args          []string
	env           []string
	stderr        io.Writer
	stderrTail    int
	handoffSettle time.Duration
	concurrency   int
}

func defaultConfig() config {
	return config{
		stderrTail:  defaultStderrTail,
		concurrency: runtime.NumCPU(),
	}
}

// Option 为 Bridge 的可选配置。
type Option func(*config)

// WithTempDir 指定程序文件与交接文件所在目录，默认为 os.TempDir()。
func WithTempDir(dir string) Option {
	return func(c *config) {
		c.tempDir = dir
	}
}

// WithDumpCode 让目标运行时在 payload 中附带调试信息。
func WithDumpCode(dump bool) Option {
	return func(c *config) {
		c.dumpCode = dump
	}
}

// WithArgs 指定放在程序文件之前的命令行参数。
func WithArgs(args ...string) Option {
	return func(c *config) {
		c.args = append(c.args, args...)
	}
}

// WithEnv 追加目标运行时的环境变量，格式为 KEY=VALUE。
func WithEnv(env ...string) Option {
	return func(c *config) {
		c.env = append(c.env, env...)
	}
}

func WithStderr(w io.Writer) Option {
	return func(c *config) {
		c.stderr = w
	}
}

func WithStderrTail(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.stderrTail = n
		}
	}
}

// WithHandoffSettle 允许在目标运行时退出后的 d 时间内等待交接文件出现，默认不等待。
func WithHandoffSettle(d time.Duration) Option {
	return func(c *config) {
		c.handoffSettle = d
	}
}

// WithConcurrency 指定 ExecuteAll 的最大并发数。
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}
