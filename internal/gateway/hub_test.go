package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devmatch/internal/logger"
	"github.com/oggyb/devmatch/internal/metrics"
	"github.com/oggyb/devmatch/internal/protocol"
	"github.com/oggyb/devmatch/internal/ratelimit"
)

func TestPresence_OnlineBroadcast(t *testing.T) {
	h := newHarness(t)

	a := h.connect(t, 10)
	got := h.drain(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.EventUserOnline, got[0].Event)
	assert.Equal(t, "10", decode[string](t, got[0]))

	b := h.connect(t, 20)
	got = h.drain(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, "20", decode[string](t, got[0]))
	assert.Equal(t, []string{protocol.EventUserOnline}, events(h.drain(t, b)))

	assert.True(t, h.hub.IsOnline(20))
	assert.Equal(t, float64(2), testutil.ToFloat64(h.metrics.OnlineUsers))
}

func TestPresence_MultiDeviceOfflineOnce(t *testing.T) {
	h := newHarness(t)

	a := h.connect(t, 10)
	b1 := h.connect(t, 20)
	h.drain(t, a)

	// second device: no second user-online
	b2 := h.connect(t, 20)
	assert.Empty(t, h.drain(t, a))
	assert.Equal(t, 3, h.hub.Stats().Connections)
	assert.Equal(t, 2, h.hub.Stats().OnlineUsers)

	h.hub.unregister(b1)
	assert.Empty(t, h.drain(t, a))
	assert.True(t, h.hub.IsOnline(20))

	h.hub.unregister(b2)
	got := h.drain(t, a)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.EventUserOffline, got[0].Event)
	assert.Equal(t, "20", decode[string](t, got[0]))
	assert.False(t, h.hub.IsOnline(20))

	// a repeated disconnect never emits again
	h.hub.unregister(b2)
	assert.Empty(t, h.drain(t, a))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Connections))
}

func TestUnregister_ClosesSendAndLeavesRooms(t *testing.T) {
	h := newHarness(t)

	a := h.connect(t, 10)
	h.send(a, protocol.EventJoinRoom, "1")
	h.sync()
	assert.Equal(t, 1, h.hub.roomSize(matchRoom(1)))

	h.hub.unregister(a)
	h.drain(t, a)
	_, ok := <-a.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.hub.roomSize(matchRoom(1)))
	assert.Equal(t, 0, h.hub.Stats().Rooms)
}

func TestNotifyUser_AllDevices(t *testing.T) {
	h := newHarness(t)

	b1 := h.connect(t, 20)
	b2 := h.connect(t, 20)
	other := h.connect(t, 30)
	h.drain(t, b1)
	h.drain(t, b2)
	h.drain(t, other)

	h.hub.NotifyUser(20, protocol.EventNewConnectionRequest, protocol.ConnectionRequest{RequestID: "5", SenderID: "10", Status: "PENDING"})

	for _, c := range []*Client{b1, b2} {
		got := h.drain(t, c)
		require.Len(t, got, 1)
		assert.Equal(t, protocol.EventNewConnectionRequest, got[0].Event)
		assert.Equal(t, "5", decode[protocol.ConnectionRequest](t, got[0]).RequestID)
	}
	assert.Empty(t, h.drain(t, other))

	// offline user: no-op
	h.hub.NotifyUser(99, protocol.EventConnectionRejected, protocol.ConnectionRejected{})
	h.sync()
}

func TestSlowConsumerEvicted(t *testing.T) {
	h := newHarness(t)

	slow := newClient(h.hub, nil, 40, 1)
	require.True(t, h.hub.register(slow)) // own user-online fills the buffer

	a := h.connect(t, 10) // broadcast overflows slow
	h.sync()

	assert.False(t, h.hub.IsOnline(40))
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.Evictions))

	got := h.drain(t, a)
	assert.Equal(t, []string{protocol.EventUserOnline, protocol.EventUserOffline}, events(got))
	assert.Equal(t, "40", decode[string](t, got[1]))

	// buffered frame then closed
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHub_StoppedIsInert(t *testing.T) {
	clock := quartz.NewMock(t)
	hub := NewHub(logger.Discard(), metrics.New(nil), clock, ratelimit.New(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c := newClient(hub, nil, 1, 4)
	require.True(t, hub.register(c))

	cancel()
	<-hub.Done()

	// shutdown closed the client
	for range c.send {
	}

	assert.False(t, hub.register(newClient(hub, nil, 2, 4)))
	assert.False(t, hub.IsOnline(1))
	assert.False(t, hub.tryAcquire(1))
	assert.NotPanics(t, func() {
		hub.NotifyUser(1, protocol.EventUserOnline, "1")
		hub.NotifyMatch(1, protocol.EventUserOnline, "1")
		hub.unregister(c)
	})
	assert.Equal(t, Stats{}, hub.Stats())
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock(1)
	unlock2 := k.Lock(2)
	assert.Equal(t, 2, k.size())
	unlock()
	unlock2()
	assert.Equal(t, 0, k.size())
}
