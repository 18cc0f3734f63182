package gateway

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/oggyb/devmatch/internal/auth"
)

// TokenVerifier is the connection authenticator.
type TokenVerifier interface {
	Verify(token string) (uint64, error)
}

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub        *Hub
	router     *Router
	verifier   TokenVerifier
	upgrader   websocket.Upgrader
	sendBuffer int

	pumps sync.WaitGroup
}

// NewHandler builds the /ws handler. An empty origin list, or one containing
// "*", accepts any origin.
func NewHandler(hub *Hub, router *Router, verifier TokenVerifier, allowedOrigins []string, sendBuffer int) *Handler {
	return &Handler{
		hub:      hub,
		router:   router,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		sendBuffer: sendBuffer,
	}
}

// ServeHTTP verifies the credential before the upgrade, so a rejected client
// never reaches the hub or the presence registry.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "Not authorised", http.StatusUnauthorized)
		return
	}
	userID, err := h.verifier.Verify(token)
	if err != nil {
		h.hub.log.Debug("handshake rejected", "remote", r.RemoteAddr, "err", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.hub.log.Debug("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := newClient(h.hub, conn, userID, h.sendBuffer)
	if !h.hub.register(c) {
		conn.Close()
		return
	}
	c.log.Info("user connected")

	h.pumps.Add(2)
	go func() {
		defer h.pumps.Done()
		c.writePump()
	}()
	go func() {
		defer h.pumps.Done()
		c.readPump(h.router)
		c.log.Info("user disconnected")
	}()
}

// Wait blocks until every connection's pumps have exited.
func (h *Handler) Wait() { h.pumps.Wait() }

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
