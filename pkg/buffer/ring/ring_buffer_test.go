package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRoundsUp(t *testing.T) {
	assert.Equal(t, DefaultBufferSize, New(0).Cap())
	assert.Equal(t, 8, New(5).Cap())
	assert.Equal(t, 2, New(1).Cap())
}

func TestWriteWithinCapacity(t *testing.T) {
	rb := New(8)
	n, err := rb.WriteString("abc")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("abc"), rb.Bytes())
	assert.Equal(t, 3, rb.Buffered())
	assert.Zero(t, rb.Overwritten())
}

func TestWriteWraps(t *testing.T) {
	rb := New(8)
	_, _ = rb.WriteString("abcdef")
	_, _ = rb.WriteString("ghij")
	assert.Equal(t, []byte("cdefghij"), rb.Bytes())
	assert.Equal(t, 8, rb.Buffered())
	assert.Equal(t, int64(2), rb.Overwritten())

	_, _ = rb.WriteString("kl")
	assert.Equal(t, []byte("efghijkl"), rb.Bytes())
}

func TestWriteExactlyFull(t *testing.T) {
	rb := New(4)
	_, _ = rb.WriteString("ab")
	_, _ = rb.WriteString("cd")
	assert.Equal(t, []byte("abcd"), rb.Bytes())
	_, _ = rb.WriteString("e")
	assert.Equal(t, []byte("bcde"), rb.Bytes())
}

func TestWriteLargerThanCapacity(t *testing.T) {
	rb := New(4)
	_, _ = rb.WriteString("x")
	n, _ := rb.WriteString("0123456789")
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte("6789"), rb.Bytes())
	assert.Equal(t, int64(7), rb.Overwritten())
}

func TestReset(t *testing.T) {
	rb := New(4)
	_, _ = rb.WriteString("abcdef")
	rb.Reset()
	assert.Empty(t, rb.Bytes())
	assert.Equal(t, 4, rb.Cap())
}
