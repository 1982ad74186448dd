package indexer

import (
	"context"
	"fmt"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/corpus"
	"patriotpilot/internal/normalizer"
	"patriotpilot/internal/storage"
	"patriotpilot/internal/vectorstore"
)

// Report summarizes one pipeline run.
type Report struct {
	BuildID         string
	Records         int
	Rejected        int
	RecordsNoChunks int
	Skips           int
	Chunks          int
	Dimension       int
	Mirrored        bool
}

// Pipeline rebuilds the persisted pair from a data directory:
// scan, normalize, build, save, and optionally mirror into a vector store.
type Pipeline struct {
	scanner    *corpus.Scanner
	normalizer *normalizer.Normalizer
	builder    *Builder
	store      storage.PairStore
	mirror     vectorstore.VectorStore
	collection string
}

// NewPipeline creates a new indexing pipeline. mirror may be nil.
func NewPipeline(
	scanner *corpus.Scanner,
	norm *normalizer.Normalizer,
	builder *Builder,
	store storage.PairStore,
	mirror vectorstore.VectorStore,
	collection string,
) *Pipeline {
	return &Pipeline{
		scanner:    scanner,
		normalizer: norm,
		builder:    builder,
		store:      store,
		mirror:     mirror,
		collection: collection,
	}
}

// Run rebuilds the index from scratch. Records are normalized in scan order and
// their chunks concatenated, so the same inputs always yield the same ordinals.
// The previous pair is replaced only after the new build has fully succeeded.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	logger := contextutil.LoggerFromContext(ctx)

	records, rejected, err := p.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}

	report := &Report{Records: len(records), Rejected: len(rejected)}
	chunks, err := p.Chunks(ctx, records, report)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "starting index build", "records", len(records), "chunks", len(chunks))

	snap, err := p.builder.Build(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	snap.Manifest.SourceFiles = len(records)

	if err := p.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}

	report.BuildID = snap.Manifest.BuildID
	report.Chunks = len(snap.Chunks)
	report.Dimension = snap.Index.Dim()

	if p.mirror != nil {
		if err := p.mirrorSnapshot(ctx, snap); err != nil {
			return report, err
		}
		report.Mirrored = true
	}

	logger.InfoContext(ctx, "index build completed",
		"build_id", report.BuildID,
		"records", report.Records,
		"rejected", report.Rejected,
		"chunks", report.Chunks,
		"mirrored", report.Mirrored,
	)
	return report, nil
}

// Chunks normalizes records in order and concatenates their chunks. report may be nil.
func (p *Pipeline) Chunks(ctx context.Context, records []corpus.Record, report *Report) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var chunks []string
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := p.normalizer.Process(ctx, rec.Value)
		if len(res.Chunks) == 0 {
			logger.WarnContext(ctx, "record produced no chunks", "path", rec.RelPath)
			if report != nil {
				report.RecordsNoChunks++
			}
		}
		if report != nil {
			report.Skips += len(res.Skips)
		}
		chunks = append(chunks, res.Chunks...)
	}
	return chunks, nil
}

func (p *Pipeline) mirrorSnapshot(ctx context.Context, snap *storage.Snapshot) error {
	vectors := snap.Index.ReconstructAll()
	points := make([]vectorstore.Point, len(vectors))
	for i, v := range vectors {
		points[i] = vectorstore.Point{Ordinal: i, Vec: v}
	}
	if err := p.mirror.Replace(ctx, p.collection, snap.Manifest.BuildID, snap.Index.Dim(), points); err != nil {
		return fmt.Errorf("index saved but mirroring to %s failed: %w", p.collection, err)
	}
	return nil
}
