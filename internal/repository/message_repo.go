package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
)

// MessageRepository is the chat message store.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create persists msg and fills in its ID. CreatedAt must already be set by
// the caller; it is the authoritative room order.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindByID loads a message or returns a NotFound domain error.
func (r *MessageRepository) FindByID(ctx context.Context, id uint64) (*db.Message, error) {
	var m db.Message
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("message not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByMatch returns the full history of a match ordered by (created_at, id) ascending.
//
// Example:
//
//	repo.ListByMatch(ctx, 7) // oldest first
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// Delete removes a message by ID.
func (r *MessageRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&db.Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return svcErr.NotFound("message not found")
	}
	return nil
}
