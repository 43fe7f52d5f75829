package repo_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/deskroute/internal/model"
	"github.com/xxxsen/deskroute/internal/repo"
	"github.com/xxxsen/deskroute/test/testutil"
)

func TestEmbeddingCacheRepo_SaveGetDelete(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cache := repo.NewEmbeddingCacheRepo(conn)
	hash := fmt.Sprintf("hash-%d", time.Now().UnixNano())
	item := &model.EmbeddingCache{
		ModelName:   "test-model",
		TaskType:    "RETRIEVAL_DOCUMENT",
		ContentHash: hash,
		Embedding:   []float32{0.1, 0.2, 0.3},
		Ctime:       time.Now().Unix(),
	}
	require.NoError(t, cache.Save(ctx, item))

	values, ok, err := cache.Get(ctx, "test-model", "RETRIEVAL_DOCUMENT", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, values, 3)
	require.InDelta(t, 0.2, values[1], 1e-6)

	// upsert replaces the vector
	item.Embedding = []float32{1, 1, 1}
	require.NoError(t, cache.Save(ctx, item))
	values, ok, err = cache.Get(ctx, "test-model", "RETRIEVAL_DOCUMENT", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 1.0, values[0], 1e-6)

	deleted, err := cache.DeleteBefore(ctx, time.Now().Unix()+1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))

	_, ok, err = cache.Get(ctx, "test-model", "RETRIEVAL_DOCUMENT", hash)
	require.NoError(t, err)
	require.False(t, ok)
}
