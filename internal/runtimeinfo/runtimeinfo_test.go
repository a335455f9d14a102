package runtimeinfo

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xrt-go/internal/serde"
)

func TestParse(t *testing.T) {
	tag, err := Parse("v1.1")
	require.NoError(t, err)
	assert.Equal(t, 1, tag.Major)
	assert.Equal(t, 1, tag.Minor)
	assert.Equal(t, runtime.Compiler, tag.Runtime)
	assert.Equal(t, serde.ProtocolPlain, tag.Options().Compat)

	_, err = Parse("not-a-version")
	assert.Error(t, err)
}

func TestCurrent(t *testing.T) {
	t.Setenv(EnvRuntimeVersion, "")
	tag := Current()
	assert.Equal(t, 1, tag.Major)
	assert.Equal(t, 2, tag.Minor)
	assert.Equal(t, serde.ProtocolZstd, tag.Options().Compat)

	t.Setenv(EnvRuntimeVersion, "1.1.7")
	assert.Equal(t, 1, Current().Minor)

	t.Setenv(EnvRuntimeVersion, "garbage")
	assert.Equal(t, 2, Current().Minor)
}
