package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
)

// MatchRepository owns Match rows. It also acts as the membership oracle the
// realtime gateway consults on every room event.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Create stores a match for the unordered pair {a, b}.
//
// Behavior:
//   - a == b → Invalid.
//   - The pair is normalized so UserA < UserB.
//   - An existing match for the pair → Conflict.
func (r *MatchRepository) Create(ctx context.Context, a, b uint64) (*db.Match, error) {
	var m *db.Match
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = createMatch(tx, a, b)
		return err
	})
	return m, err
}

func createMatch(tx *gorm.DB, a, b uint64) (*db.Match, error) {
	if a == b {
		return nil, svcErr.Invalid("a match needs two distinct users")
	}
	low, high := db.OrderedPair(a, b)

	var existing int64
	if err := tx.Model(&db.Match{}).Where("user_a = ? AND user_b = ?", low, high).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, svcErr.Conflict("users are already matched")
	}

	m := db.Match{UserA: low, UserB: high}
	if err := tx.Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.Conflict("users are already matched")
		}
		return nil, err
	}
	return &m, nil
}

// FindByID loads a match or returns a NotFound domain error.
func (r *MatchRepository) FindByID(ctx context.Context, id uint64) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("match not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByPair loads the match between a and b in either order.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	low, high := db.OrderedPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).Where("user_a = ? AND user_b = ?", low, high).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("match not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Participants returns both user IDs of a match. Always read from the store,
// never cached, so REST-side mutations are seen immediately.
func (r *MatchRepository) Participants(ctx context.Context, matchID uint64) ([2]uint64, error) {
	m, err := r.FindByID(ctx, matchID)
	if err != nil {
		return [2]uint64{}, err
	}
	return m.Users(), nil
}

// ListForUser returns every match the user belongs to, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// UpdateCompatibility stores the scoring result. Only the compatibility
// workflow calls this.
func (r *MatchRepository) UpdateCompatibility(ctx context.Context, matchID uint64, score int, summary string) error {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", matchID).
		Updates(map[string]any{
			"compatibility_score":   score,
			"compatibility_summary": summary,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return svcErr.NotFound("match not found")
	}
	return nil
}
