package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/devmatch/internal/db"
	svcErr "github.com/oggyb/devmatch/internal/errors"
	"github.com/oggyb/devmatch/internal/repository"
)

func TestMessageListByMatch_Ascending(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMessageRepository(setupTestDB(t))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	// inserted out of order; two share a timestamp
	for _, m := range []db.Message{
		{MatchID: 1, SenderID: 1, Content: "third", CreatedAt: base.Add(2 * time.Second)},
		{MatchID: 1, SenderID: 2, Content: "first", CreatedAt: base},
		{MatchID: 1, SenderID: 1, Content: "second", CreatedAt: base},
		{MatchID: 2, SenderID: 3, Content: "other room", CreatedAt: base},
	} {
		msg := m
		require.NoError(t, repo.Create(ctx, &msg))
		assert.NotZero(t, msg.ID)
	}

	msgs, err := repo.ListByMatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "third", msgs[2].Content)
	assert.True(t, msgs[0].ID < msgs[1].ID)
}

func TestMessageFindAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMessageRepository(setupTestDB(t))

	msg := db.Message{MatchID: 1, SenderID: 1, Content: "hello", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Create(ctx, &msg))

	got, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	require.NoError(t, repo.Delete(ctx, msg.ID))

	_, err = repo.FindByID(ctx, msg.ID)
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	err = repo.Delete(ctx, msg.ID)
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
}
