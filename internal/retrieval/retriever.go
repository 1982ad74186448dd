// Package retrieval turns a query into a ranked subset of indexed chunks.
package retrieval

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retrieval.go -package=mocks patriotpilot/internal/retrieval Embedder,Searcher

import (
	"context"
	"fmt"
	"strings"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/service"
	"patriotpilot/internal/vectorindex"
)

// Embedder embeds a single query with the model the index was built with.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher finds stored vectors near a unit-length query.
type Searcher interface {
	Nearest(ctx context.Context, query []float32, k int) ([]Match, error)
	Within(ctx context.Context, query []float32, minSimilarity float64) ([]Match, error)
}

// Hit is one retrieved chunk. Distance is Euclidean between unit vectors and
// Similarity is cosine; on unit vectors they rank identically.
type Hit struct {
	Ordinal    int     `json:"ordinal"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// Retriever answers retrieval queries against one loaded index. It holds no
// mutable state and is safe for concurrent use.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	chunks   []string
	dim      int
}

// NewRetriever creates a Retriever. chunks is the metadata aligned with the
// searched index and dim its vector dimension.
func NewRetriever(embedder Embedder, searcher Searcher, chunks []string, dim int) *Retriever {
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		chunks:   chunks,
		dim:      dim,
	}
}

// Size returns the number of retrievable chunks.
func (r *Retriever) Size() int {
	return len(r.chunks)
}

// Retrieve embeds query and returns the chunks selected by policy, best first.
// Ties keep the lower ordinal first. No match is a valid, empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, policy Policy) ([]Hit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(query) == "" {
		return nil, &service.ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return nil, service.WrapError(service.Classify(service.ErrEmbeddingFailure, err), "failed to embed query")
	}
	if len(vec) != r.dim {
		return nil, fmt.Errorf("%w: %w", service.ErrEmbeddingFailure,
			&service.DimensionMismatchError{Ordinal: 0, Want: r.dim, Got: len(vec)})
	}
	vec = vectorindex.Normalize(vec)

	var matches []Match
	switch policy.Kind {
	case TopK:
		matches, err = r.searcher.Nearest(ctx, vec, policy.K)
	case Threshold:
		matches, err = r.searcher.Within(ctx, vec, policy.Threshold)
	}
	if err != nil {
		logger.ErrorContext(ctx, "search failed", "policy", policy.String(), "error", err)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		if m.Ordinal < 0 || m.Ordinal >= len(r.chunks) {
			return nil, fmt.Errorf("%w: search returned ordinal %d, metadata holds %d chunks", service.ErrIndexLoad, m.Ordinal, len(r.chunks))
		}
		hits = append(hits, Hit{
			Ordinal:    m.Ordinal,
			Text:       r.chunks[m.Ordinal],
			Distance:   m.Distance,
			Similarity: m.Similarity,
		})
	}

	logger.DebugContext(ctx, "retrieval completed", "policy", policy.String(), "hits", len(hits))
	return hits, nil
}
