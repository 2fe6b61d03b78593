package httpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_FixedClampsToCapacity(t *testing.T) {
	b := NewFixed(10)
	require.True(t, b.Fixed())

	p := b.Reserve(6)
	require.Len(t, p, 6)
	copy(p, "abcdef")
	b.Commit(6)

	p = b.Reserve(6)
	require.Len(t, p, 4)
	copy(p, "ghij")
	b.Commit(4)

	assert.Empty(t, b.Reserve(1))
	assert.Equal(t, "abcdefghij", string(b.Bytes()))
	assert.Equal(t, 10, b.Cap())
}

func TestBuffer_GrowableKeepsContent(t *testing.T) {
	b := NewGrowable()
	require.False(t, b.Fixed())

	for _, s := range []string{"hello", " ", "growable", " world"} {
		p := b.Reserve(len(s))
		require.Len(t, p, len(s))
		copy(p, s)
		b.Commit(len(s))
	}

	assert.Equal(t, "hello growable world", string(b.Bytes()))
	assert.Equal(t, 20, b.Len())
}

func TestBuffer_ResetKeepsAllocation(t *testing.T) {
	b := NewFixed(4)
	copy(b.Reserve(4), "abcd")
	b.Commit(4)

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Bytes())
	assert.Len(t, b.Reserve(8), 4)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "inflight", Inflight.String())
	assert.Equal(t, "done", Done.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestRequest_DeliverAndReset(t *testing.T) {
	req := NewRequest(NewFixed(4))
	assert.Equal(t, 3, req.Deliver([]byte("abc")))
	assert.Equal(t, 1, req.Deliver([]byte("def")))
	assert.Equal(t, "abcd", string(req.Body()))
	assert.Equal(t, int64(4), req.Received())

	req.Complete(Success, 200)
	req.Reset()
	assert.Empty(t, req.Body())
	assert.Equal(t, 0, req.HTTPStatus())
	assert.Equal(t, Success, req.Status())
}
