package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks patriotpilot/internal/vectorstore VectorStore

import "context"

// Point is one indexed chunk vector, identified by its chunk ordinal.
type Point struct {
	Ordinal int
	Vec     []float32
}

// SearchResult is one hit from a vector search. Distance is Euclidean.
type SearchResult struct {
	Ordinal  int
	Distance float64
}

// VectorStore mirrors a built index into an external vector database and
// searches it with the same geometry as the local index.
type VectorStore interface {
	// Replace drops the collection and recreates it holding exactly points,
	// each tagged with buildID.
	Replace(ctx context.Context, collection, buildID string, dim int, points []Point) error

	// Nearest returns the k points closest to query, nearest first.
	Nearest(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Within returns every point no farther than maxDistance from query, nearest first.
	Within(ctx context.Context, collection string, query []float32, maxDistance float64) ([]SearchResult, error)

	// Count returns the exact number of points in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// CountBuild returns the exact number of points tagged with buildID.
	CountBuild(ctx context.Context, collection, buildID string) (int, error)
}
