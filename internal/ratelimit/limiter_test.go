package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryAcquire(t *testing.T) {
	l := New(time.Second)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAcquire(1, t0))
	assert.False(t, l.TryAcquire(1, t0.Add(999*time.Millisecond)))
	// boundary is inclusive
	assert.True(t, l.TryAcquire(1, t0.Add(time.Second)))
}

func TestTryAcquire_RejectionDoesNotExtend(t *testing.T) {
	l := New(time.Second)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAcquire(1, t0))
	assert.False(t, l.TryAcquire(1, t0.Add(500*time.Millisecond)))
	assert.True(t, l.TryAcquire(1, t0.Add(1000*time.Millisecond)))
}

func TestTryAcquire_PerUser(t *testing.T) {
	l := New(time.Second)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAcquire(1, t0))
	assert.True(t, l.TryAcquire(2, t0))
	assert.False(t, l.TryAcquire(2, t0.Add(time.Millisecond)))

}

func TestRelease(t *testing.T) {
	l := New(time.Second)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAcquire(1, t0))

	// still cooling down, history is kept
	l.Release(1, t0.Add(200*time.Millisecond))
	assert.Equal(t, 1, l.Len())
	assert.False(t, l.TryAcquire(1, t0.Add(300*time.Millisecond)))

	l.Release(1, t0.Add(2*time.Second))
	assert.Equal(t, 0, l.Len())
	l.Release(99, t0)
}

func TestNew_Default(t *testing.T) {
	assert.Equal(t, DefaultInterval, New(0).Interval())
	assert.Equal(t, 250*time.Millisecond, New(250*time.Millisecond).Interval())
}
