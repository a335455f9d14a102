package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	t.Setenv(envConfigPath, "")

	path, rest, err := parseArgs([]string{"--config", "a.yaml", "program.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "a.yaml", path)
	assert.Equal(t, []string{"program.yaml"}, rest)

	path, rest, err = parseArgs([]string{"program.yaml", "--config=b.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "b.yaml", path)
	assert.Equal(t, []string{"program.yaml"}, rest)

	_, _, err = parseArgs([]string{"--config"})
	assert.Error(t, err)
}

func TestParseArgsEnv(t *testing.T) {
	t.Setenv(envConfigPath, "/etc/xrt.yaml")
	path, rest, err := parseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/xrt.yaml", path)
	assert.Empty(t, rest)
}

func TestRun(t *testing.T) {
	t.Setenv(envConfigPath, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "xrt.yaml")
	content := `
temp_dir: ` + dir + `
worker:
  stderr_tail: 512
log:
  level: warn
logging:
  bridge:
    level: debug
    stderr: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	app := New()
	require.NoError(t, app.Run([]string{"--config", path, "program.yaml"}))
	assert.Equal(t, dir, app.Config().TempDir)
	assert.Equal(t, []string{"program.yaml"}, app.Args())
	assert.NotNil(t, app.Logger("bridge"))
	assert.NotNil(t, app.Logger("unknown"))

	h, err := app.Harness()
	require.NoError(t, err)
	assert.NotNil(t, h)
}

func TestRunMissingConfig(t *testing.T) {
	t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, New().Run(nil))
}
