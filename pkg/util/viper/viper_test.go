package viper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "conf.yaml", "worker:\n  stderr_tail: 2048\nbridge:\n  handoff_settle: 50ms\nruntimes:\n  alt: /usr/bin/alt\n")
	c := New("")
	require.NoError(t, c.LoadFile(path))

	assert.Equal(t, 2048, c.GetInt("worker.stderr_tail"))
	assert.Equal(t, 50*time.Millisecond, c.GetDuration("bridge.handoff_settle"))
	assert.Equal(t, map[string]string{"alt": "/usr/bin/alt"}, c.GetStringMapString("runtimes"))

	var worker struct {
		StderrTail int `mapstructure:"stderr_tail"`
	}
	require.NoError(t, c.UnmarshalKey("worker", &worker))
	assert.Equal(t, 2048, worker.StderrTail)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "conf.json", `{"dump_code": true}`)
	c := New("")
	require.NoError(t, c.LoadFile(path))
	assert.True(t, c.GetBool("dump_code"))
	assert.True(t, c.IsSet("dump_code"))
	assert.False(t, c.IsSet("missing"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("XRTTEST_WORKER_EXECUTABLE", "/opt/bin/worker")
	c := New("XRTTEST")
	c.SetDefault("worker.executable", "")
	assert.Equal(t, "/opt/bin/worker", c.GetString("worker.executable"))
}

func TestLoadMissing(t *testing.T) {
	c := New("")
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "nope.yaml")))
}
