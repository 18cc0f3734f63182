package gateway

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	// connection handle, unique per socket
	id     string
	userID uint64
	log    *slog.Logger

	hub  *Hub
	conn *websocket.Conn
	// Buffered channel of outbound frames. Closed by the hub.
	send chan []byte

	// owned by the hub goroutine
	rooms map[string]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint64, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	id := uuid.NewString()
	return &Client{
		id:     id,
		userID: userID,
		log:    hub.log.With("user_id", userID, "conn_id", id),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, buffer),
		rooms:  make(map[string]struct{}),
	}
}

// UserID returns the authenticated user bound at handshake.
func (c *Client) UserID() uint64 { return c.userID }

// readPump pumps frames from the websocket connection to the router.
//
// The application runs readPump in a per-connection goroutine. Frames are
// handled one at a time, so a connection's events are processed in the order
// the transport delivered them.
func (c *Client) readPump(r *Router) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", "err", err)
			}
			return
		}
		r.Handle(c, message)
	}
}

// writePump pumps frames from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("write failed", "err", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
