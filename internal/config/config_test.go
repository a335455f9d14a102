package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.Worker.StderrTail)
	assert.Positive(t, cfg.Bridge.Concurrency)
	assert.Equal(t, time.Duration(0), cfg.Bridge.HandoffSettle)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Stderr)
	assert.Len(t, cfg.ExecutorOptions(), 2)
	assert.Len(t, cfg.BridgeOptions(), 5)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("XRT_TEST_LEGACY", "/opt/legacy/xrt-runtime")
	dir := t.TempDir()
	path := filepath.Join(dir, "xrt.yaml")
	content := `
temp_dir: /var/tmp
dump_code: true
worker:
  executable: /usr/local/bin/xrt-runtime
  args: ["-v"]
  stderr_tail: 1024
bridge:
  handoff_settle: 250ms
  concurrency: 3
runtimes:
  legacy: ${XRT_TEST_LEGACY}
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp", cfg.TempDir)
	assert.True(t, cfg.DumpCode)
	assert.Equal(t, "/usr/local/bin/xrt-runtime", cfg.Worker.Executable)
	assert.Equal(t, []string{"-v"}, cfg.Worker.Args)
	assert.Equal(t, 1024, cfg.Worker.StderrTail)
	assert.Equal(t, 250*time.Millisecond, cfg.Bridge.HandoffSettle)
	assert.Equal(t, 3, cfg.Bridge.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Len(t, cfg.ExecutorOptions(), 4)

	exe, err := cfg.RuntimeExecutable("Legacy")
	require.NoError(t, err)
	assert.Equal(t, "/opt/legacy/xrt-runtime", exe)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("XRT_DUMP_CODE", "true")
	t.Setenv("XRT_BRIDGE_CONCURRENCY", "7")
	t.Setenv("XRT_RUNTIMES_NEXT", "/opt/next/xrt-runtime")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.DumpCode)
	assert.Equal(t, 7, cfg.Bridge.Concurrency)

	exe, err := cfg.RuntimeExecutable("next")
	require.NoError(t, err)
	assert.Equal(t, "/opt/next/xrt-runtime", exe)
}

func TestRuntimeNotConfigured(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	_, err = cfg.RuntimeExecutable("missing")
	assert.ErrorIs(t, err, merr.ErrRuntimeUnavailable)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, merr.ErrIoFailed)

	path := filepath.Join(t.TempDir(), "xrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bridge:\n  concurrency: 0\n"), 0o600))
	_, err = Load(path)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestLoadNegativeStderrTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xrt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker:\n  stderr_tail: -1\n"), 0o600))
	_, err := Load(path)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
	assert.Contains(t, err.Error(), "worker.stderr_tail")
}
