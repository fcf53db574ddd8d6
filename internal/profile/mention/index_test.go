package mention_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fedcore/internal/profile/mention"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/store"
	dErrors "fedcore/pkg/domain-errors"
)

const (
	alice = models.Entity("https://alice.example.com")
	bob   = models.Entity("https://bob.example.com")
	carol = models.Entity("https://carol.example.com")
)

func seed(t *testing.T, mem *store.Memory, owner models.Entity, targets ...models.Entity) {
	t.Helper()
	ctx := context.Background()
	post := models.Post{ID: uuid.New(), Entity: owner, Original: true}
	require.NoError(t, mem.Posts().Create(ctx, &post))
	for _, target := range targets {
		require.NoError(t, mem.Mentions().Create(ctx, &models.Mention{ID: uuid.New(), PostID: post.ID, Entity: target}))
	}
}

func TestIndexRewrite(t *testing.T) {
	ctx := context.Background()

	t.Run("moves every mention of the old entity", func(t *testing.T) {
		mem := store.NewMemory()
		seed(t, mem, bob, alice, carol)
		seed(t, mem, carol, alice)
		idx := mention.NewIndex(mem.Mentions())

		n, err := idx.Rewrite(ctx, alice, "https://alice.example.net")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		left, err := idx.FindByEntity(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, left)
		moved, err := idx.FindByEntity(ctx, "https://alice.example.net")
		require.NoError(t, err)
		assert.Len(t, moved, 2)
	})

	t.Run("same entity is a no-op", func(t *testing.T) {
		mem := store.NewMemory()
		seed(t, mem, bob, alice)
		idx := mention.NewIndex(mem.Mentions())

		n, err := idx.Rewrite(ctx, alice, alice)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("empty entity is rejected", func(t *testing.T) {
		idx := mention.NewIndex(store.NewMemory().Mentions())

		_, err := idx.Rewrite(ctx, "", alice)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestIndexMentionedBy(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seed(t, mem, alice, carol, bob)
	seed(t, mem, alice, bob)
	seed(t, mem, bob, alice)
	idx := mention.NewIndex(mem.Mentions())

	targets, err := idx.MentionedBy(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []models.Entity{bob, carol}, targets)

	targets, err = idx.MentionedBy(ctx, carol)
	require.NoError(t, err)
	assert.Empty(t, targets)
}
