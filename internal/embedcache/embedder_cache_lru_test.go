package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls      int
	batchCalls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	c.batchCalls++
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float32{float32(len(text)), 1})
	}
	return out, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-model"
}

func TestLruEmbedder_CachesSecondCall(t *testing.T) {
	inner := &countingEmbedder{}
	wrapped := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	first, err := wrapped.Embed(context.Background(), "급여 문의", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	second, err := wrapped.Embed(context.Background(), "급여 문의", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)
}

func TestLruEmbedder_BatchOnlyComputesMisses(t *testing.T) {
	inner := &countingEmbedder{}
	wrapped := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := wrapped.Embed(context.Background(), "a", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)

	res, err := wrapped.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"}, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Len(t, res, 3)
	for i, want := range []float32{1, 2, 3} {
		require.Equal(t, want, res[i][0])
	}
	require.Equal(t, 1, inner.batchCalls)
}

func TestLruEmbedder_TaskTypeSeparatesEntries(t *testing.T) {
	inner := &countingEmbedder{}
	wrapped := WrapLruCacheToEmbedder(inner, 16, time.Minute)

	_, err := wrapped.Embed(context.Background(), "x", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	_, err = wrapped.Embed(context.Background(), "x", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}
