package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
)

// DecisionRepository stores swipes. One row per (actor, recipient); a later
// swipe overwrites the earlier one.
type DecisionRepository struct {
	db *gorm.DB
}

func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// Record stores actor's swipe on recipient and reports whether the two have
// now both swiped right.
//
// Behavior:
//   - actor == recipient → Invalid.
//   - Upsert on the composite PK; liked and updated_at are overwritten.
//   - The reverse lookup runs in the same transaction as the write.
//   - A left swipe is never mutual.
//
// Example:
//
//	mutual, err := repo.Record(ctx, 1, 2, true) // user 1 swiped right on user 2
func (r *DecisionRepository) Record(ctx context.Context, actorID, recipientID uint64, liked bool) (bool, error) {
	if actorID == recipientID {
		return false, svcErr.Invalid("cannot swipe on yourself")
	}

	var mutual bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d := db.Decision{ActorID: actorID, RecipientID: recipientID, Liked: liked}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "recipient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
		}).Create(&d).Error; err != nil {
			return err
		}
		if !liked {
			return nil
		}
		var err error
		mutual, err = hasLiked(tx, recipientID, actorID)
		return err
	})
	return mutual, err
}

func hasLiked(tx *gorm.DB, actorID, recipientID uint64) (bool, error) {
	var count int64
	err := tx.Model(&db.Decision{}).
		Where("actor_id = ? AND recipient_id = ? AND liked = ?", actorID, recipientID, true).
		Count(&count).Error
	return count > 0, err
}
