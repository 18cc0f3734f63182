package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "BEGINNER"
	ExperienceIntermediate ExperienceLevel = "INTERMEDIATE"
	ExperienceAdvanced     ExperienceLevel = "ADVANCED"
)

type Availability string

const (
	AvailabilityFullTime  Availability = "FULL_TIME"
	AvailabilityPartTime  Availability = "PART_TIME"
	AvailabilityHackathon Availability = "HACKATHON"
)

// User table
type User struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement"`
	Name            string          `gorm:"size:128;not null"`
	Email           string          `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash    string          `gorm:"size:255;not null"`
	Bio             string          `gorm:"type:text"`
	Skills          []string        `gorm:"serializer:json;type:text"`
	ExperienceLevel ExperienceLevel `gorm:"size:16;not null;default:BEGINNER"`
	Availability    Availability    `gorm:"size:16;not null;default:PART_TIME"`
	GithubLink      string          `gorm:"size:255"`
	Avatar          string          `gorm:"size:512"`
	IsVerified      bool            `gorm:"default:false"`
	RefreshToken    *string         `gorm:"size:512"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
}

// Decision represents an actor's swipe on a recipient.
//
// Composite PK: (ActorID, RecipientID)
//   - Ensures a single row per pair (overwrite guarantee).
//
// Fields:
//   - Liked: true for a right swipe, false for a left swipe.
type Decision struct {
	ActorID     uint64    `gorm:"primaryKey;index:idx_actor_recipient_liked,priority:1"`
	RecipientID uint64    `gorm:"primaryKey;index:idx_actor_recipient_liked,priority:2"`
	Liked       bool      `gorm:"not null;index:idx_actor_recipient_liked,priority:3"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// ConnectionRequest is a directed interest signal created by a right swipe.
//
// Invariant: at most one PENDING row per (SenderID, ReceiverID). PendingKey
// holds "sender:receiver" while the row is PENDING and NULL once it is
// terminal, so its unique index enforces the invariant in the database.
//
// Indexes:
//   - idx_receiver_status_created(receiver_id, status, created_at DESC, id)
//     Optimizes the "requests I received" list and pending counter.
//   - idx_sender_status_created(sender_id, status, created_at DESC, id)
//     Optimizes the "requests I sent" list.
//   - idx_request_pending_key(pending_key) UNIQUE
type ConnectionRequest struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement"`
	SenderID   uint64        `gorm:"not null;index:idx_sender_status_created,priority:1"`
	ReceiverID uint64        `gorm:"not null;index:idx_receiver_status_created,priority:1"`
	Status     RequestStatus `gorm:"size:16;not null;default:PENDING;index:idx_sender_status_created,priority:2;index:idx_receiver_status_created,priority:2"`
	PendingKey *string       `gorm:"size:48;uniqueIndex:idx_request_pending_key"`
	CreatedAt  time.Time     `gorm:"autoCreateTime;index:idx_sender_status_created,priority:3,sort:desc;index:idx_receiver_status_created,priority:3,sort:desc"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime"`
}

// PendingKeyFor is the PendingKey of a PENDING request sender -> receiver.
func PendingKeyFor(senderID, receiverID uint64) string {
	return fmt.Sprintf("%d:%d", senderID, receiverID)
}

// BeforeCreate fills PendingKey for rows inserted as PENDING.
func (r *ConnectionRequest) BeforeCreate(*gorm.DB) error {
	if r.PendingKey == nil && (r.Status == "" || r.Status == RequestPending) {
		k := PendingKeyFor(r.SenderID, r.ReceiverID)
		r.PendingKey = &k
	}
	return nil
}

// Match is a confirmed pair. UserA < UserB always holds so the unique index
// covers the unordered pair.
type Match struct {
	ID                   uint64    `gorm:"primaryKey;autoIncrement"`
	UserA                uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	UserB                uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index"`
	CompatibilityScore   *int
	CompatibilitySummary *string   `gorm:"type:text"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

// Users returns both participants.
func (m Match) Users() [2]uint64 { return [2]uint64{m.UserA, m.UserB} }

// Has reports whether userID participates in the match.
func (m Match) Has(userID uint64) bool { return m.UserA == userID || m.UserB == userID }

// Other returns the participant that is not userID.
func (m Match) Other(userID uint64) uint64 {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

// OrderedPair normalizes two user IDs into (low, high).
func OrderedPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

// Message is a chat line owned by a match.
//
// Index idx_match_created(match_id, created_at, id) backs ascending history reads.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement;index:idx_match_created,priority:3"`
	MatchID   uint64    `gorm:"not null;index:idx_match_created,priority:1"`
	SenderID  uint64    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_match_created,priority:2"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&User{}, &Decision{}, &ConnectionRequest{}, &Match{}, &Message{}}
}
