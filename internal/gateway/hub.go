// Package gateway is the realtime websocket layer: connection lifecycle,
// presence, room fan-out and the chat event router.
//
// All gateway state (connections, rooms, presence, send cooldowns) is owned
// by the Hub goroutine. Everything else talks to it by submitting closures
// on the command channel, so no state is ever touched from two goroutines.
package gateway

import (
	"context"
	"log/slog"

	"github.com/coder/quartz"

	"github.com/oggyb/devmatch/internal/metrics"
	"github.com/oggyb/devmatch/internal/presence"
	"github.com/oggyb/devmatch/internal/protocol"
	"github.com/oggyb/devmatch/internal/ratelimit"
)

// Hub maintains the set of active clients and broadcasts frames to rooms.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	clock   quartz.Clock

	cmds chan func()
	done chan struct{}

	// owned by Run
	clients  map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	presence *presence.Registry
	limiter  *ratelimit.Limiter
	slow     []*Client
}

// NewHub creates a Hub. Call Run to start it.
func NewHub(log *slog.Logger, m *metrics.Metrics, clock quartz.Clock, limiter *ratelimit.Limiter) *Hub {
	return &Hub{
		log:      log,
		metrics:  m,
		clock:    clock,
		cmds:     make(chan func()),
		done:     make(chan struct{}),
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		presence: presence.NewRegistry(),
		limiter:  limiter,
	}
}

// Run processes commands until ctx is done. On exit every client's send
// channel is closed, which makes its write pump close the socket.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("hub running")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case fn := <-h.cmds:
			fn()
			h.evictSlow()
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) shutdown() {
	for c := range h.clients {
		close(c.send)
	}
	h.clients = map[*Client]struct{}{}
	h.rooms = map[string]map[*Client]struct{}{}
	h.presence = presence.NewRegistry()
	h.metrics.Connections.Set(0)
	h.metrics.OnlineUsers.Set(0)
	h.log.Info("hub stopped")
}

// exec hands fn to the hub goroutine without waiting for it to run.
// Commands from one goroutine run in submission order. Returns false once the hub has stopped.
func (h *Hub) exec(fn func()) bool {
	select {
	case h.cmds <- fn:
		return true
	case <-h.done:
		return false
	}
}

// call runs fn on the hub goroutine and waits for it. Never call it from
// inside a command.
func (h *Hub) call(fn func()) bool {
	ran := make(chan struct{})
	if !h.exec(func() { fn(); close(ran) }) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-h.done:
		return false
	}
}

// register admits c, subscribes it to its user's personal channel and
// announces the user if this is their first connection.
func (h *Hub) register(c *Client) bool {
	return h.call(func() {
		h.clients[c] = struct{}{}
		h.join(c, userRoom(c.userID))
		h.metrics.Connections.Inc()

		if h.presence.MarkOnline(c.userID, c.id) == presence.WentOnline {
			h.metrics.OnlineUsers.Set(float64(h.presence.Online()))
			h.broadcastAll(protocol.EventUserOnline, h.frame(protocol.EventUserOnline, protocol.FormatID(c.userID)))
		}
		c.log.Debug("client registered", "connections", h.presence.Connections(c.userID))
	})
}

// unregister removes c. Safe to call more than once.
func (h *Hub) unregister(c *Client) {
	h.call(func() { h.drop(c) })
}

// drop is the hub-side removal shared by unregister and slow-consumer eviction.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leave(c, room)
	}
	close(c.send)
	h.metrics.Connections.Dec()

	if h.presence.MarkOffline(c.userID, c.id) == presence.WentOffline {
		h.metrics.OnlineUsers.Set(float64(h.presence.Online()))
		h.limiter.Release(c.userID, h.clock.Now())
		h.broadcastAll(protocol.EventUserOffline, h.frame(protocol.EventUserOffline, protocol.FormatID(c.userID)))
	}
	c.log.Debug("client unregistered")
}

func (h *Hub) join(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// enqueue queues a frame without blocking. A full buffer marks the client for
// eviction after the current command.
func (h *Hub) enqueue(c *Client, event string, frame []byte) {
	if frame == nil {
		return
	}
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- frame:
		h.metrics.Deliveries.WithLabelValues(event).Inc()
	default:
		h.slow = append(h.slow, c)
	}
}

func (h *Hub) evictSlow() {
	for len(h.slow) > 0 {
		c := h.slow[0]
		h.slow = h.slow[1:]
		if _, ok := h.clients[c]; !ok {
			continue
		}
		c.log.Warn("evicting slow client")
		h.metrics.Evictions.Inc()
		h.drop(c)
	}
}

func (h *Hub) broadcastAll(event string, frame []byte) {
	for c := range h.clients {
		h.enqueue(c, event, frame)
	}
}

// broadcastRoom fans frame out to every member of room except skip (may be nil).
func (h *Hub) broadcastRoom(room string, skip *Client, event string, frame []byte) {
	for c := range h.rooms[room] {
		if c == skip {
			continue
		}
		h.enqueue(c, event, frame)
	}
}

func (h *Hub) frame(event string, data any) []byte {
	b, err := protocol.Encode(event, data)
	if err != nil {
		h.log.Error("failed to encode frame", "event", event, "err", err)
		return nil
	}
	return b
}

// admit joins c to the match room and replies with the peer's presence.
// Repeated joins reply each time and never duplicate membership.
func (h *Hub) admit(c *Client, matchID, peer uint64) {
	h.exec(func() {
		if _, ok := h.clients[c]; !ok {
			return
		}
		h.join(c, matchRoom(matchID))
		status := protocol.UserStatus{UserID: protocol.FormatID(peer), Online: h.presence.IsOnline(peer)}
		h.enqueue(c, protocol.EventOtherUserStatus, h.frame(protocol.EventOtherUserStatus, status))
	})
}

// tryAcquire consults the send cooldown. A stopped hub refuses every send.
func (h *Hub) tryAcquire(userID uint64) bool {
	var ok bool
	h.call(func() { ok = h.limiter.TryAcquire(userID, h.clock.Now()) })
	return ok
}

// NotifyUser pushes an event to every connection of userID. No-op when the
// user is offline or the hub has stopped.
func (h *Hub) NotifyUser(userID uint64, event string, data any) {
	frame := h.frame(event, data)
	h.exec(func() { h.broadcastRoom(userRoom(userID), nil, event, frame) })
}

// NotifyMatch pushes an event to every connection that joined the match room.
func (h *Hub) NotifyMatch(matchID uint64, event string, data any) {
	frame := h.frame(event, data)
	h.exec(func() { h.broadcastRoom(matchRoom(matchID), nil, event, frame) })
}

// IsOnline reports the user's live presence. A stopped hub reports everyone offline.
func (h *Hub) IsOnline(userID uint64) bool {
	var online bool
	h.call(func() { online = h.presence.IsOnline(userID) })
	return online
}

// Stats is a point-in-time snapshot of hub state.
type Stats struct {
	Connections int
	OnlineUsers int
	Rooms       int
}

func (h *Hub) Stats() Stats {
	var s Stats
	h.call(func() {
		s = Stats{Connections: len(h.clients), OnlineUsers: h.presence.Online(), Rooms: len(h.rooms)}
	})
	return s
}

// roomSize is used by tests.
func (h *Hub) roomSize(room string) int {
	var n int
	h.call(func() { n = len(h.rooms[room]) })
	return n
}
