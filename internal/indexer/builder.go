package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/service"
	"patriotpilot/internal/storage"
	"patriotpilot/internal/vectorindex"
)

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Dimension is the expected embedding dimension. Zero takes the dimension
	// of the first vector; an empty build then has no dimension and fails.
	Dimension int
	// BatchSize is the number of chunks sent per embedding call.
	BatchSize int
	// Concurrency bounds the embedding calls in flight.
	Concurrency int
	// ChunkSize is recorded in the manifest.
	ChunkSize int
	// Tokens, when set, adds token length stats to the manifest.
	Tokens TokenCounter
}

// Builder turns an ordered chunk sequence into an aligned (index, metadata) snapshot.
type Builder struct {
	embedder Embedder
	opts     BuilderOptions
	now      func() time.Time
}

// NewBuilder creates a Builder. Non-positive batch size and concurrency default to 1.
func NewBuilder(embedder Embedder, opts BuilderOptions) *Builder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Builder{
		embedder: embedder,
		opts:     opts,
		now:      time.Now,
	}
}

// Build embeds every chunk and returns the snapshot holding vector i for chunk i.
// Any embedding failure or dimension disagreement aborts the whole build; no
// partial snapshot is ever returned.
func (b *Builder) Build(ctx context.Context, chunks []string) (*storage.Snapshot, error) {
	logger := contextutil.LoggerFromContext(ctx)

	for i, c := range chunks {
		if c == "" {
			return nil, &service.ValidationError{Field: "chunks", Message: fmt.Sprintf("chunk %d is empty", i)}
		}
	}

	vectors, err := b.embedAll(ctx, chunks)
	if err != nil {
		logger.ErrorContext(ctx, "index build aborted", "chunks", len(chunks), "error", err)
		return nil, err
	}

	dim := b.opts.Dimension
	if dim <= 0 {
		if len(vectors) == 0 {
			return nil, &service.ValidationError{Field: "dimension", Message: "unknown for an empty build"}
		}
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			err := &service.DimensionMismatchError{Ordinal: i, Want: dim, Got: len(v)}
			logger.ErrorContext(ctx, "index build aborted", "error", err)
			return nil, err
		}
	}

	index, err := vectorindex.NewFlat(dim)
	if err != nil {
		return nil, err
	}
	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized[i] = vectorindex.Normalize(v)
	}
	if err := index.Add(normalized...); err != nil {
		return nil, err
	}

	snap := &storage.Snapshot{
		Index:  index,
		Chunks: append([]string(nil), chunks...),
		Manifest: storage.Manifest{
			BuildID:        uuid.NewString(),
			EmbeddingModel: b.embedder.ModelName(),
			Dimension:      dim,
			ChunkCount:     len(chunks),
			ChunkSize:      b.opts.ChunkSize,
			Metric:         storage.MetricL2Normalized,
			CreatedAt:      b.now().UTC(),
			Stats:          ComputeLengthStats(chunks, b.opts.Tokens),
		},
	}
	if snap.Chunks == nil {
		snap.Chunks = []string{}
	}

	logger.InfoContext(ctx, "index built", "build_id", snap.Manifest.BuildID, "chunks", len(chunks), "dimension", dim)
	return snap, nil
}

// embedAll embeds chunks in batches, with up to Concurrency batches in flight,
// and places each vector at its chunk's position.
func (b *Builder) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	for start := 0; start < len(chunks); start += b.opts.BatchSize {
		end := min(start+b.opts.BatchSize, len(chunks))
		g.Go(func() error {
			batch := chunks[start:end]
			got, err := b.embedder.EmbedTexts(gctx, batch)
			if err != nil {
				return service.WrapError(service.Classify(service.ErrEmbeddingFailure, err),
					fmt.Sprintf("failed to embed chunks %d-%d", start, end-1))
			}
			if len(got) != len(batch) {
				return fmt.Errorf("%w: requested %d embeddings, got %d", service.ErrEmbeddingFailure, len(batch), len(got))
			}
			copy(vectors[start:end], got)
			logger.DebugContext(gctx, "embedded batch", "start", start, "size", len(batch))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
