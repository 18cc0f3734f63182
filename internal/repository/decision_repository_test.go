package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
	"github.com/oggyb/devmatch/internal/repository"
)

func TestRecord_OverwritesEarlierSwipe(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewDecisionRepository(dbase)

	_, err := repo.Record(ctx, 1, 2, true)
	require.NoError(t, err)
	_, err = repo.Record(ctx, 1, 2, false)
	require.NoError(t, err)

	var rows []db.Decision
	require.NoError(t, dbase.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Liked)
}

func TestRecord_Mutual(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDecisionRepository(setupTestDB(t))

	mutual, err := repo.Record(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.False(t, mutual, "first right swipe")

	mutual, err = repo.Record(ctx, 2, 1, true)
	require.NoError(t, err)
	assert.True(t, mutual)

	// a left swipe is never mutual, even if the other side liked
	mutual, err = repo.Record(ctx, 2, 1, false)
	require.NoError(t, err)
	assert.False(t, mutual)

	// and it withdraws the like
	mutual, err = repo.Record(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.False(t, mutual)
}

func TestRecord_Self(t *testing.T) {
	_, err := repository.NewDecisionRepository(setupTestDB(t)).Record(context.Background(), 3, 3, true)
	assert.True(t, svcErr.IsKind(err, svcErr.KindInvalid))
}

// Only a right swipe from the other side counts as mutual.
func TestRecord_MutualNeedsReciprocalLike(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewDecisionRepository(setupTestDB(t))

	_, _ = repo.Record(ctx, 2, 3, false)
	mutual, err := repo.Record(ctx, 3, 2, true)
	require.NoError(t, err)
	assert.False(t, mutual, "a pass is not a like")

	_, _ = repo.Record(ctx, 1, 2, true)
	mutual, err = repo.Record(ctx, 3, 1, true)
	require.NoError(t, err)
	assert.False(t, mutual, "a like for someone else does not count")
}
