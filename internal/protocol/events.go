// Package protocol defines the websocket wire format.
//
// Every frame is a JSON envelope {"event": "<name>", "data": <payload>}.
// Client events decode into one of the Inbound variants; server events are
// built with Encode from the payload types below.
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/devmatch/internal/db"
)

// Event names in both directions.
const (
	EventJoinRoom    = "join-room"
	EventTyping      = "typing"
	EventStopTyping  = "stop-typing"
	EventSendMessage = "send-message"

	EventUserOnline           = "user-online"
	EventUserOffline          = "user-offline"
	EventOtherUserStatus      = "other-user-status"
	EventUserTyping           = "user-typing"
	EventUserStopTyping       = "user-stop-typing"
	EventReceiveMessage       = "receive-message"
	EventMessageDeleted       = "message-deleted"
	EventNewConnectionRequest = "new-connection-request"
	EventConnectionAccepted   = "connection-accepted"
	EventConnectionRejected   = "connection-rejected"
	EventCompatibilityReady   = "compatibility-ready"
)

// Envelope is the frame shape shared by both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Encode renders a server event frame.
func Encode(event string, data any) ([]byte, error) {
	b, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return b, nil
}

// FormatID renders a numeric ID the way it travels on the wire.
func FormatID(id uint64) string { return strconv.FormatUint(id, 10) }

// UserStatus is the unicast reply to join-room.
type UserStatus struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// TypingIndicator is relayed for typing and stop-typing.
type TypingIndicator struct {
	UserID  string `json:"userId"`
	MatchID string `json:"matchId"`
}

// Message is a persisted chat message as clients see it.
type Message struct {
	ID        string    `json:"_id"`
	MatchID   string    `json:"matchId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageFromModel converts a stored message.
func MessageFromModel(m db.Message) Message {
	return Message{
		ID:        FormatID(m.ID),
		MatchID:   FormatID(m.MatchID),
		SenderID:  FormatID(m.SenderID),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type MessageDeleted struct {
	MessageID string `json:"messageId"`
	MatchID   string `json:"matchId"`
}

// ConnectionRequest is pushed to the receiver's personal channel.
type ConnectionRequest struct {
	RequestID string `json:"requestId"`
	SenderID  string `json:"senderId"`
	Status    string `json:"status"`
}

// ConnectionAccepted is pushed to the requester once the receiver accepts.
type ConnectionAccepted struct {
	MatchID   string `json:"matchId"`
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
}

type ConnectionRejected struct {
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
}

type CompatibilityReady struct {
	MatchID              string `json:"matchId"`
	CompatibilityScore   int    `json:"compatibilityScore"`
	CompatibilitySummary string `json:"compatibilitySummary"`
}
