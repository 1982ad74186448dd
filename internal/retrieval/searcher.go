package retrieval

import (
	"context"
	"math"

	"patriotpilot/internal/vectorindex"
	"patriotpilot/internal/vectorstore"
)

// Match is a raw search result before chunk text is attached.
type Match struct {
	Ordinal    int
	Distance   float64
	Similarity float64
}

// LocalSearcher searches the in-process flat index.
type LocalSearcher struct {
	index *vectorindex.Flat
}

// NewLocalSearcher creates a searcher over index. The index must not be
// modified while the searcher is in use.
func NewLocalSearcher(index *vectorindex.Flat) *LocalSearcher {
	return &LocalSearcher{index: index}
}

// Nearest returns the k nearest stored vectors.
func (s *LocalSearcher) Nearest(_ context.Context, query []float32, k int) ([]Match, error) {
	neighbors, err := s.index.Search(query, k)
	if err != nil {
		return nil, err
	}
	return fromNeighbors(neighbors), nil
}

// Within returns every stored vector with cosine similarity >= minSimilarity.
func (s *LocalSearcher) Within(_ context.Context, query []float32, minSimilarity float64) ([]Match, error) {
	neighbors, err := s.index.Within(query, minSimilarity)
	if err != nil {
		return nil, err
	}
	return fromNeighbors(neighbors), nil
}

func fromNeighbors(neighbors []vectorindex.Neighbor) []Match {
	out := make([]Match, len(neighbors))
	for i, n := range neighbors {
		out[i] = Match{Ordinal: n.Ordinal, Distance: n.Distance, Similarity: n.Similarity}
	}
	return out
}

// QdrantSearcher searches the Qdrant mirror of the index. Stored vectors are
// unit length, so similarity is recovered from distance as 1 - d²/2.
type QdrantSearcher struct {
	store      vectorstore.VectorStore
	collection string
}

// NewQdrantSearcher creates a searcher over the given collection.
func NewQdrantSearcher(store vectorstore.VectorStore, collection string) *QdrantSearcher {
	return &QdrantSearcher{store: store, collection: collection}
}

// Nearest returns the k nearest points.
func (s *QdrantSearcher) Nearest(ctx context.Context, query []float32, k int) ([]Match, error) {
	results, err := s.store.Nearest(ctx, s.collection, query, k)
	if err != nil {
		return nil, err
	}
	return fromResults(results, query), nil
}

// Within converts the similarity threshold into the equivalent distance bound
// and re-checks each hit against the threshold.
func (s *QdrantSearcher) Within(ctx context.Context, query []float32, minSimilarity float64) ([]Match, error) {
	results, err := s.store.Within(ctx, s.collection, query, DistanceForSimilarity(minSimilarity))
	if err != nil {
		return nil, err
	}
	matches := fromResults(results, query)
	kept := matches[:0]
	for _, m := range matches {
		if m.Similarity >= minSimilarity {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

func fromResults(results []vectorstore.SearchResult, query []float32) []Match {
	unit := vectorindex.Norm(query) > 0
	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = Match{Ordinal: r.Ordinal, Distance: r.Distance}
		if unit {
			out[i].Similarity = SimilarityForDistance(r.Distance)
		}
	}
	return out
}

// DistanceForSimilarity returns the Euclidean distance between unit vectors
// whose cosine similarity is sim.
func DistanceForSimilarity(sim float64) float64 {
	return math.Sqrt(max(0, 2-2*sim))
}

// SimilarityForDistance is the inverse of DistanceForSimilarity.
func SimilarityForDistance(d float64) float64 {
	return 1 - d*d/2
}
