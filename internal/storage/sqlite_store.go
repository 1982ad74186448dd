package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/vectorindex"
)

// SQLiteStore keeps the pair in two tables: one builds row and one chunks row
// per ordinal holding the text and the embedding blob together, so the pair
// cannot drift apart.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore. The schema must already be migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save replaces the stored snapshot in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) (err error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := snap.Validate(0); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}

	stats, err := json.Marshal(snap.Manifest.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM builds"); err != nil {
		return fmt.Errorf("failed to clear builds: %w", err)
	}

	m := snap.Manifest
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO builds (id, embedding_model, dimension, chunk_count, chunk_size, metric, source_files, stats, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.BuildID, m.EmbeddingModel, m.Dimension, m.ChunkCount, m.ChunkSize, m.Metric, m.SourceFiles, string(stats), createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert build: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks (ordinal, build_id, text, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, text := range snap.Chunks {
		vec, rerr := snap.Index.Reconstruct(i)
		if rerr != nil {
			return fmt.Errorf("failed to read vector %d: %w", i, rerr)
		}
		if _, err = stmt.ExecContext(ctx, i, m.BuildID, text, vectorindex.EncodeEmbedding(vec)); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	logger.InfoContext(ctx, "snapshot saved", "backend", "sqlite", "build_id", m.BuildID, "chunks", len(snap.Chunks))
	return nil
}

// Load reads the stored snapshot and rebuilds the in-memory index.
// Ordinals must be contiguous from 0 and every blob must match the build dimension.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	var (
		m         Manifest
		stats     string
		createdAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, embedding_model, dimension, chunk_count, chunk_size, metric, source_files, stats, created_at
		 FROM builds ORDER BY created_at DESC LIMIT 1`,
	).Scan(&m.BuildID, &m.EmbeddingModel, &m.Dimension, &m.ChunkCount, &m.ChunkSize, &m.Metric, &m.SourceFiles, &stats, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loadFailure(errors.New("no index has been built"), "failed to load snapshot")
	}
	if err != nil {
		return nil, loadFailure(err, "failed to query build")
	}
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time
	}
	if err := json.Unmarshal([]byte(stats), &m.Stats); err != nil {
		return nil, loadFailure(err, "failed to decode build stats")
	}

	index, err := vectorindex.NewFlat(m.Dimension)
	if err != nil {
		return nil, loadFailure(err, "invalid build dimension")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT ordinal, text, embedding FROM chunks WHERE build_id = ? ORDER BY ordinal", m.BuildID)
	if err != nil {
		return nil, loadFailure(err, "failed to query chunks")
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := []string{}
	for rows.Next() {
		var (
			ordinal int
			text    string
			blob    []byte
		)
		if err := rows.Scan(&ordinal, &text, &blob); err != nil {
			return nil, loadFailure(err, "failed to scan chunk")
		}
		if ordinal != len(chunks) {
			return nil, loadFailure(fmt.Errorf("expected ordinal %d, found %d", len(chunks), ordinal), "chunk ordinals are not contiguous")
		}
		vec, err := vectorindex.DecodeEmbedding(blob)
		if err != nil {
			return nil, loadFailure(err, fmt.Sprintf("failed to decode embedding %d", ordinal))
		}
		if err := index.Add(vec); err != nil {
			return nil, loadFailure(err, "failed to rebuild index")
		}
		chunks = append(chunks, text)
	}
	if err := rows.Err(); err != nil {
		return nil, loadFailure(err, "row iteration error")
	}

	snap := &Snapshot{Index: index, Chunks: chunks, Manifest: m}
	if err := snap.Validate(0); err != nil {
		return nil, err
	}
	return snap, nil
}
