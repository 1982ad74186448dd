package retrieval_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"patriotpilot/internal/retrieval"
	"patriotpilot/internal/vectorstore"
	vectorstore_mocks "patriotpilot/internal/vectorstore/mocks"
)

func TestDistanceSimilarityConversion(t *testing.T) {
	for _, sim := range []float64{-1, -0.3, 0, 0.5, 0.7, 1} {
		d := retrieval.DistanceForSimilarity(sim)
		assert.InDelta(t, sim, retrieval.SimilarityForDistance(d), 1e-12)
	}
	assert.Equal(t, 0.0, retrieval.DistanceForSimilarity(1))
	assert.InDelta(t, 2.0, retrieval.DistanceForSimilarity(-1), 1e-12)
	assert.Equal(t, 0.0, retrieval.DistanceForSimilarity(1.2))
}

func TestQdrantSearcher_Nearest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := []float32{1, 0}
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Nearest(gomock.Any(), "chunks", query, 2).Return([]vectorstore.SearchResult{
		{Ordinal: 3, Distance: 0},
		{Ordinal: 1, Distance: math.Sqrt2},
	}, nil)

	matches, err := retrieval.NewQdrantSearcher(store, "chunks").Nearest(context.Background(), query, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 3, matches[0].Ordinal)
	assert.InDelta(t, 1, matches[0].Similarity, 1e-9)
	assert.Equal(t, 1, matches[1].Ordinal)
	assert.InDelta(t, 0, matches[1].Similarity, 1e-9)
}

func TestQdrantSearcher_Within(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	query := []float32{0, 1}
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	store.EXPECT().
		Within(gomock.Any(), "chunks", query, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ []float32, maxDistance float64) ([]vectorstore.SearchResult, error) {
			assert.InDelta(t, math.Sqrt(0.6), maxDistance, 1e-9)
			return []vectorstore.SearchResult{
				{Ordinal: 0, Distance: 0.2},
				{Ordinal: 4, Distance: 0.7},
				// Rounding on the server side can let a point slip past the bound.
				{Ordinal: 2, Distance: 0.78},
			}, nil
		})

	matches, err := retrieval.NewQdrantSearcher(store, "chunks").Within(context.Background(), query, 0.7)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Ordinal)
	assert.Equal(t, 4, matches[1].Ordinal)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.7)
	}
}

func TestQdrantSearcher_ZeroQueryHasNoSimilarity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	store.EXPECT().Nearest(gomock.Any(), "chunks", gomock.Any(), 1).Return([]vectorstore.SearchResult{{Ordinal: 0, Distance: 1}}, nil)

	matches, err := retrieval.NewQdrantSearcher(store, "chunks").Nearest(context.Background(), []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.0, matches[0].Similarity)
}
