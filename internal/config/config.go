// Package config 加载验证工具的运行配置。
//
// 配置文件可选，YAML 或 JSON 均可；形如 XRT_SECTION_KEY 的环境变量覆盖 section.key。
//
//	temp_dir: /tmp
//	dump_code: false
//	worker:
//	  executable: ""
//	  args: []
//	  stderr_tail: 4096
//	bridge:
//	  handoff_settle: 0s
//	  concurrency: 8
//	runtimes:
//	  legacy: ${XRT_LEGACY_RUNTIME}
//	log:
//	  level: info
package config

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/lk2023060901/xrt-go/internal/bridge"
	"github.com/lk2023060901/xrt-go/internal/executor"
	"github.com/lk2023060901/xrt-go/pkg/log"
	"github.com/lk2023060901/xrt-go/pkg/util/merr"
	"github.com/lk2023060901/xrt-go/pkg/util/viper"
)

// EnvPrefix 为环境变量前缀。
const EnvPrefix = "XRT"

type WorkerConfig struct {
	// Executable 为空时使用当前可执行文件。
	Executable string   `mapstructure:"executable"`
	Args       []string `mapstructure:"args"`
	StderrTail int      `mapstructure:"stderr_tail"`
}

type BridgeConfig struct {
	HandoffSettle time.Duration `mapstructure:"handoff_settle"`
	Concurrency   int           `mapstructure:"concurrency"`
}

// Config 为完整配置。
type Config struct {
	TempDir  string            `mapstructure:"temp_dir"`
	DumpCode bool              `mapstructure:"dump_code"`
	Worker   WorkerConfig      `mapstructure:"worker"`
	Bridge   BridgeConfig      `mapstructure:"bridge"`
	Runtimes map[string]string `mapstructure:"runtimes"`
	Log      log.Config        `mapstructure:"log"`
	// Loggers 为按模块命名的附加 logger。
	Loggers map[string]log.Config `mapstructure:"logging"`

	v *viper.Config
}

func setDefaults(v *viper.Config) {
	v.SetDefault("temp_dir", "")
	v.SetDefault("dump_code", false)
	v.SetDefault("worker.executable", "")
	v.SetDefault("worker.stderr_tail", 4096)
	v.SetDefault("bridge.handoff_settle", time.Duration(0))
	v.SetDefault("bridge.concurrency", runtime.NumCPU())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.stderr", true)
	v.SetDefault("log.stdout", false)
	v.SetDefault("log.file.rootpath", "")
	v.SetDefault("log.file.filename", "")
}

// Load 加载配置。path 为空时只使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New(EnvPrefix)
	setDefaults(v)
	if path != "" {
		if err := v.LoadFile(path); err != nil {
			return nil, merr.WrapErrIoFailed(path, err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("config %s: %s", path, err.Error())
	}
	if cfg.Worker.StderrTail < 0 {
		return nil, merr.WrapErrParameterInvalidMsg("worker.stderr_tail must be >= 0, got %d", cfg.Worker.StderrTail)
	}
	if cfg.Bridge.Concurrency <= 0 {
		return nil, merr.WrapErrParameterInvalidMsg("bridge.concurrency must be > 0, got %d", cfg.Bridge.Concurrency)
	}
	return cfg, nil
}

// RuntimeExecutable 返回名为 name 的备用运行时可执行文件路径，值中的 $VAR 会被展开。
// 也可以通过 XRT_RUNTIMES_<NAME> 环境变量指定。
func (c *Config) RuntimeExecutable(name string) (string, error) {
	key := strings.ToLower(name)
	raw := c.Runtimes[key]
	if raw == "" && c.v != nil {
		raw = c.v.GetString("runtimes." + key)
	}
	path := strings.TrimSpace(os.ExpandEnv(raw))
	if path == "" {
		return "", merr.WrapErrRuntimeUnavailable(name, "not configured")
	}
	return path, nil
}

// ExecutorOptions 将 worker 配置转换为 executor.Option。
func (c *Config) ExecutorOptions() []executor.Option {
	opts := []executor.Option{
		executor.WithDumpCode(c.DumpCode),
		executor.WithStderrTail(c.Worker.StderrTail),
	}
	if c.Worker.Executable != "" {
		opts = append(opts, executor.WithExecutable(os.ExpandEnv(c.Worker.Executable)))
	}
	if len(c.Worker.Args) > 0 {
		opts = append(opts, executor.WithArgs(c.Worker.Args...))
	}
	return opts
}

// BridgeOptions 将 bridge 配置转换为 bridge.Option。
func (c *Config) BridgeOptions() []bridge.Option {
	return []bridge.Option{
		bridge.WithTempDir(c.TempDir),
		bridge.WithDumpCode(c.DumpCode),
		bridge.WithStderrTail(c.Worker.StderrTail),
		bridge.WithHandoffSettle(c.Bridge.HandoffSettle),
		bridge.WithConcurrency(c.Bridge.Concurrency),
	}
}
