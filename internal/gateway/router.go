package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/coder/quartz"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
	"github.com/oggyb/devmatch/internal/metrics"
	"github.com/oggyb/devmatch/internal/protocol"
)

// MembershipOracle answers who participates in a match. It is consulted on
// every room event; membership is never cached.
type MembershipOracle interface {
	Participants(ctx context.Context, matchID uint64) ([2]uint64, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	Create(ctx context.Context, msg *db.Message) error
}

// RouterConfig tunes the router.
type RouterConfig struct {
	// MaxContentLength caps message length in runes; zero disables the cap.
	MaxContentLength int
	// StoreTimeout bounds each oracle or store call.
	StoreTimeout time.Duration
}

// Router handles the client events of one connection at a time. Handle runs
// in the connection's read goroutine; room events fail silently.
type Router struct {
	hub     *Hub
	oracle  MembershipOracle
	store   MessageStore
	decoder *protocol.Decoder
	locks   *keyedMutex
	clock   quartz.Clock
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewRouter(hub *Hub, oracle MembershipOracle, store MessageStore, cfg RouterConfig) *Router {
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Router{
		hub:     hub,
		oracle:  oracle,
		store:   store,
		decoder: protocol.NewDecoder(cfg.MaxContentLength),
		locks:   newKeyedMutex(),
		clock:   hub.clock,
		log:     hub.log,
		metrics: hub.metrics,
		timeout: timeout,
	}
}

// Handle decodes one frame and dispatches it.
func (r *Router) Handle(c *Client, raw []byte) {
	ev, err := r.decoder.Decode(raw)
	if err != nil {
		r.metrics.InboundEvents.WithLabelValues("invalid").Inc()
		r.drop(c, "invalid", metrics.ReasonMalformed, err)
		return
	}
	r.metrics.InboundEvents.WithLabelValues(ev.Name()).Inc()

	switch e := ev.(type) {
	case protocol.JoinRoom:
		r.joinRoom(c, e.MatchID)
	case protocol.Typing:
		r.relayTyping(c, e.MatchID, protocol.EventTyping, protocol.EventUserTyping)
	case protocol.StopTyping:
		r.relayTyping(c, e.MatchID, protocol.EventStopTyping, protocol.EventUserStopTyping)
	case protocol.SendMessage:
		r.sendMessage(c, e)
	}
}

// joinRoom admits c to the match room and replies with the peer's presence.
func (r *Router) joinRoom(c *Client, matchID uint64) {
	peer, ok := r.peerOf(c, protocol.EventJoinRoom, matchID)
	if !ok {
		return
	}
	r.hub.admit(c, matchID, peer)
}

func (r *Router) relayTyping(c *Client, matchID uint64, event, relay string) {
	if _, ok := r.peerOf(c, event, matchID); !ok {
		return
	}
	data := protocol.TypingIndicator{UserID: protocol.FormatID(c.userID), MatchID: protocol.FormatID(matchID)}
	frame := r.hub.frame(relay, data)
	r.hub.exec(func() { r.hub.broadcastRoom(matchRoom(matchID), c, relay, frame) })
}

// sendMessage gates on cooldown, then content, then membership; persists;
// then broadcasts to the whole room including the sender. The per-match lock
// spans persist and enqueue so room order equals store order.
func (r *Router) sendMessage(c *Client, e protocol.SendMessage) {
	const event = protocol.EventSendMessage

	if !r.hub.tryAcquire(c.userID) {
		r.drop(c, event, metrics.ReasonRateLimited, nil)
		return
	}

	content := strings.TrimSpace(e.Content)
	if content == "" {
		r.drop(c, event, metrics.ReasonEmpty, nil)
		return
	}

	if _, ok := r.peerOf(c, event, e.MatchID); !ok {
		return
	}

	unlock := r.locks.Lock(e.MatchID)
	defer unlock()

	msg := db.Message{
		MatchID:  e.MatchID,
		SenderID: c.userID,
		Content:  content,
		// store precision is milliseconds
		CreatedAt: r.clock.Now().UTC().Truncate(time.Millisecond),
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Create(ctx, &msg); err != nil {
		c.log.Error("failed to persist message", "match_id", e.MatchID, "err", err)
		r.drop(c, event, metrics.ReasonStoreError, err)
		return
	}

	r.hub.NotifyMatch(e.MatchID, protocol.EventReceiveMessage, protocol.MessageFromModel(msg))
}

// peerOf returns the other participant when c's user belongs to matchID.
// The store call is detached from the connection so a disconnect mid-handler
// does not abort persistence.
func (r *Router) peerOf(c *Client, event string, matchID uint64) (uint64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	users, err := r.oracle.Participants(ctx, matchID)
	switch {
	case svcErr.IsKind(err, svcErr.KindNotFound):
		r.drop(c, event, metrics.ReasonNotMember, err)
		return 0, false
	case err != nil:
		c.log.Error("membership lookup failed", "match_id", matchID, "err", err)
		r.drop(c, event, metrics.ReasonStoreError, err)
		return 0, false
	}

	switch c.userID {
	case users[0]:
		return users[1], true
	case users[1]:
		return users[0], true
	}
	r.drop(c, event, metrics.ReasonNotMember, nil)
	return 0, false
}

func (r *Router) drop(c *Client, event, reason string, err error) {
	r.metrics.Drop(event, reason)
	c.log.Debug("event dropped", "event", event, "reason", reason, "err", err)
}
