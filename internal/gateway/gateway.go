package gateway

import (
	"log/slog"
	"time"

	"github.com/coder/quartz"

	"github.com/oggyb/devmatch/internal/config"
	"github.com/oggyb/devmatch/internal/metrics"
	"github.com/oggyb/devmatch/internal/ratelimit"
)

// Config gathers the gateway tunables.
type Config struct {
	SendCooldown   time.Duration
	SendBuffer     int
	AllowedOrigins []string
	Router         RouterConfig
}

// ConfigFrom maps the process configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SendCooldown:   cfg.Chat.SendCooldown,
		SendBuffer:     cfg.Chat.SendBuffer,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Router: RouterConfig{
			MaxContentLength: cfg.Chat.MaxContentLength,
			StoreTimeout:     cfg.Chat.StoreTimeout,
		},
	}
}

// Gateway bundles the hub, the router and the websocket handler.
type Gateway struct {
	Hub     *Hub
	Router  *Router
	Handler *Handler
}

// Deps are the gateway's collaborators.
type Deps struct {
	Log      *slog.Logger
	Metrics  *metrics.Metrics
	Clock    quartz.Clock
	Oracle   MembershipOracle
	Store    MessageStore
	Verifier TokenVerifier
}

// New wires a Gateway. The caller must run g.Hub.Run.
func New(cfg Config, d Deps) *Gateway {
	if d.Clock == nil {
		d.Clock = quartz.NewReal()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	hub := NewHub(d.Log, d.Metrics, d.Clock, ratelimit.New(cfg.SendCooldown))
	router := NewRouter(hub, d.Oracle, d.Store, cfg.Router)
	return &Gateway{
		Hub:     hub,
		Router:  router,
		Handler: NewHandler(hub, router, d.Verifier, cfg.AllowedOrigins, cfg.SendBuffer),
	}
}
