// Package storage persists the vector index and its positionally aligned chunk
// metadata as one unit.
package storage

import (
	"context"
	"fmt"
	"time"

	"patriotpilot/internal/service"
	"patriotpilot/internal/vectorindex"
)

// MetricL2Normalized names the geometry of a persisted index: unit-length
// vectors searched by Euclidean distance, equivalent to cosine ranking.
const MetricL2Normalized = "l2-normalized"

// Summary describes a distribution of chunk lengths.
type Summary struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// LengthStats holds chunk length distributions in characters and, when a token
// counter was available at build time, in tokens.
type LengthStats struct {
	Chars  Summary  `json:"chars"`
	Tokens *Summary `json:"tokens,omitempty"`
}

// Manifest describes one index build.
type Manifest struct {
	BuildID        string      `json:"build_id"`
	EmbeddingModel string      `json:"embedding_model"`
	Dimension      int         `json:"dimension"`
	ChunkCount     int         `json:"chunk_count"`
	ChunkSize      int         `json:"chunk_size"`
	Metric         string      `json:"metric"`
	SourceFiles    int         `json:"source_files"`
	CreatedAt      time.Time   `json:"created_at"`
	Stats          LengthStats `json:"stats"`

	// Checksums is set by FileStore, which writes the pair as separate files.
	Checksums *Checksums `json:"checksums,omitempty"`
}

// Checksums are hex SHA-256 digests of the index and metadata files of one build.
type Checksums struct {
	Index    string `json:"index_sha256"`
	Metadata string `json:"metadata_sha256"`
}

// Snapshot is the persisted pair: vector i of Index belongs to Chunks[i].
type Snapshot struct {
	Index    *vectorindex.Flat
	Chunks   []string
	Manifest Manifest
}

// Validate checks that the index and the chunk metadata are aligned and agree
// with the manifest. expectedDim > 0 additionally pins the vector dimension.
// Failures are ErrIndexLoad: a misaligned pair must never be served.
func (s *Snapshot) Validate(expectedDim int) error {
	if s == nil || s.Index == nil {
		return fmt.Errorf("%w: no index", service.ErrIndexLoad)
	}
	if s.Index.Len() != len(s.Chunks) {
		return fmt.Errorf("%w: index holds %d vectors but metadata holds %d chunks", service.ErrIndexLoad, s.Index.Len(), len(s.Chunks))
	}
	if s.Manifest.ChunkCount != len(s.Chunks) {
		return fmt.Errorf("%w: manifest records %d chunks, metadata holds %d", service.ErrIndexLoad, s.Manifest.ChunkCount, len(s.Chunks))
	}
	if s.Manifest.Dimension != s.Index.Dim() {
		return fmt.Errorf("%w: manifest records dimension %d, index has %d", service.ErrIndexLoad, s.Manifest.Dimension, s.Index.Dim())
	}
	if expectedDim > 0 && s.Index.Dim() != expectedDim {
		return fmt.Errorf("%w: index dimension %d does not match embedding dimension %d", service.ErrIndexLoad, s.Index.Dim(), expectedDim)
	}
	return nil
}

// Chunk returns the text stored at ordinal.
func (s *Snapshot) Chunk(ordinal int) (string, bool) {
	if ordinal < 0 || ordinal >= len(s.Chunks) {
		return "", false
	}
	return s.Chunks[ordinal], true
}

// PairStore saves and loads snapshots. Save replaces any previous snapshot.
type PairStore interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}

// loadFailure classifies err as ErrIndexLoad.
func loadFailure(err error, msg string) error {
	return service.WrapError(service.Classify(service.ErrIndexLoad, err), msg)
}
