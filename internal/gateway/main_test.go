package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
	"github.com/oggyb/devmatch/internal/logger"
	"github.com/oggyb/devmatch/internal/metrics"
	"github.com/oggyb/devmatch/internal/protocol"
	"github.com/oggyb/devmatch/internal/ratelimit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeOracle struct {
	mu      sync.Mutex
	matches map[uint64][2]uint64
	err     error
}

func (f *fakeOracle) Participants(_ context.Context, matchID uint64) ([2]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return [2]uint64{}, f.err
	}
	users, ok := f.matches[matchID]
	if !ok {
		return [2]uint64{}, svcErr.NotFound("match not found")
	}
	return users, nil
}

type fakeStore struct {
	mu     sync.Mutex
	nextID uint64
	saved  []db.Message
	err    error
}

func (f *fakeStore) Create(_ context.Context, msg *db.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	msg.ID = f.nextID
	f.saved = append(f.saved, *msg)
	return nil
}

func (f *fakeStore) messages() []db.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.Message(nil), f.saved...)
}

type harness struct {
	hub     *Hub
	router  *Router
	clock   *quartz.Mock
	oracle  *fakeOracle
	store   *fakeStore
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := quartz.NewMock(t)
	m := metrics.New(nil)
	hub := NewHub(logger.Discard(), m, clock, ratelimit.New(time.Second))
	oracle := &fakeOracle{matches: map[uint64][2]uint64{
		1: {10, 20}, // A=10, B=20
		2: {20, 30},
	}}
	store := &fakeStore{}
	router := NewRouter(hub, oracle, store, RouterConfig{MaxContentLength: 50, StoreTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return &harness{hub: hub, router: router, clock: clock, oracle: oracle, store: store, metrics: m}
}

// connect registers a socketless client; frames are read straight off send.
func (h *harness) connect(t *testing.T, userID uint64) *Client {
	t.Helper()
	c := newClient(h.hub, nil, userID, 16)
	require.True(t, h.hub.register(c))
	return c
}

func (h *harness) send(c *Client, event string, data any) {
	raw, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		panic(err)
	}
	h.router.Handle(c, raw)
}

// sync waits until every command submitted so far has run.
func (h *harness) sync() { h.hub.call(func() {}) }

type frame struct {
	Event string
	Data  json.RawMessage
}

// drain returns every frame currently queued for c.
func (h *harness) drain(t *testing.T, c *Client) []frame {
	t.Helper()
	h.sync()
	var out []frame
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				return out
			}
			var env protocol.Envelope
			require.NoError(t, json.Unmarshal(b, &env))
			out = append(out, frame{Event: env.Event, Data: env.Data})
		default:
			return out
		}
	}
}

func events(frames []frame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Event)
	}
	return out
}

func decode[T any](t *testing.T, f frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

var errBoom = errors.New("boom")
