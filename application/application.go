package application

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lk2023060901/xrt-go/internal/bridge"
	"github.com/lk2023060901/xrt-go/internal/config"
	"github.com/lk2023060901/xrt-go/internal/executor"
	"github.com/lk2023060901/xrt-go/internal/harness"
	zlog "github.com/lk2023060901/xrt-go/pkg/log"
	"github.com/lk2023060901/xrt-go/pkg/metrics"
)

const (
	defaultConfigPath = "./xrt.yaml"
	envConfigPath     = "XRT_CONFIG_FILE_PATH"
)

// Application is the runtime container of an xrt process.
// It owns configuration and the components built from it.
type Application struct {
	cfg     *config.Config
	args    []string
	loggers map[string]*zlog.MLogger
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// Run parses command-line arguments and loads configuration using the
// following priority:
//  1. Default: ./xrt.yaml, only if it exists
//  2. Env: XRT_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
//
// Remaining positional arguments are available through Args.
func (a *Application) Run(args []string) error {
	configPath, rest, err := parseArgs(args)
	if err != nil {
		return err
	}
	a.args = rest

	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrapf(err, "failed to load config file %q", configPath)
	}
	a.cfg = cfg

	return a.initLogging()
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Args returns the positional arguments left after option parsing.
func (a *Application) Args() []string {
	return a.args
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.With(zlog.FieldModule(name))
}

// RegisterMetrics registers the xrt metrics on r, or the default registerer if r is nil.
func (a *Application) RegisterMetrics(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	metrics.Register(r)
}

// Executor builds an isolated executor from the worker section.
func (a *Application) Executor() (*executor.Executor, error) {
	exec, err := executor.New(a.cfg.ExecutorOptions()...)
	if err != nil {
		return nil, err
	}
	exec.SetLogger(a.Logger("executor"))
	return exec, nil
}

// Bridge builds a cross-runtime bridge from the bridge section.
func (a *Application) Bridge() *bridge.Bridge {
	b := bridge.New(a.cfg.BridgeOptions()...)
	b.SetLogger(a.Logger("bridge"))
	return b
}

// Harness builds a verification harness from the configured executor and bridge.
func (a *Application) Harness() (*harness.Harness, error) {
	exec, err := a.Executor()
	if err != nil {
		return nil, err
	}
	h := harness.New(exec, a.Bridge(), a.cfg.DumpCode)
	h.SetLogger(a.Logger("harness"))
	return h, nil
}

// RunProgram executes the bridge program named by the single positional argument.
func (a *Application) RunProgram(ctx context.Context) int {
	return bridge.ProgramMain(ctx, a.args)
}

func parseArgs(args []string) (string, []string, error) {
	configPath := ""
	if _, err := os.Stat(defaultConfigPath); err == nil {
		configPath = defaultConfigPath
	}
	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath = envPath
	}

	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return "", nil, errors.New("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			if val := strings.TrimPrefix(arg, "--config="); val != "" {
				configPath = val
			}
			continue
		}
		rest = append(rest, arg)
	}
	return configPath, rest, nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	logger, props, err := zlog.InitLogger(&a.cfg.Log)
	if err != nil {
		return errors.Wrap(err, "init global logger")
	}
	zlog.ReplaceGlobals(logger, props)

	if len(a.cfg.Loggers) == 0 {
		return nil
	}
	// Example:
	//   logging:
	//     bridge:
	//       level: debug
	//       file:
	//         rootpath: ./logs
	//         filename: bridge.log
	a.loggers = make(map[string]*zlog.MLogger, len(a.cfg.Loggers))
	for name, lc := range a.cfg.Loggers {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.WithOptions(zap.AddCallerSkip(-1)).With(zlog.FieldModule(name))}
	}
	return nil
}
