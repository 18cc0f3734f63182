package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SingleConnection(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsOnline(1))

	assert.Equal(t, WentOnline, r.MarkOnline(1, "a"))
	assert.True(t, r.IsOnline(1))
	assert.Equal(t, 1, r.Online())

	assert.Equal(t, WentOffline, r.MarkOffline(1, "a"))
	assert.False(t, r.IsOnline(1))
	assert.Equal(t, 0, r.Online())
}

func TestRegistry_MultiDevice(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, WentOnline, r.MarkOnline(1, "phone"))
	assert.Equal(t, Unchanged, r.MarkOnline(1, "laptop"))
	assert.Equal(t, 2, r.Connections(1))

	// first device leaving keeps the user online
	assert.Equal(t, Unchanged, r.MarkOffline(1, "phone"))
	assert.True(t, r.IsOnline(1))

	assert.Equal(t, WentOffline, r.MarkOffline(1, "laptop"))
	assert.False(t, r.IsOnline(1))
}

func TestRegistry_IdempotentAndUnknown(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, WentOnline, r.MarkOnline(1, "a"))
	assert.Equal(t, Unchanged, r.MarkOnline(1, "a"))
	assert.Equal(t, 1, r.Connections(1))

	assert.Equal(t, Unchanged, r.MarkOffline(1, "zzz"))
	assert.Equal(t, Unchanged, r.MarkOffline(2, "a"))
	assert.True(t, r.IsOnline(1))

	assert.Equal(t, WentOffline, r.MarkOffline(1, "a"))
	// a second disconnect for the same handle never emits again
	assert.Equal(t, Unchanged, r.MarkOffline(1, "a"))
}
