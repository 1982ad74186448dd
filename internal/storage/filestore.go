package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/fsutil"
	"patriotpilot/internal/service"
	"patriotpilot/internal/vectorindex"
)

// FileStore keeps the pair as an index file and a JSON array of chunk strings,
// plus a manifest next to the metadata file.
type FileStore struct {
	IndexPath    string
	MetadataPath string
}

// NewFileStore creates a FileStore.
func NewFileStore(indexPath, metadataPath string) *FileStore {
	return &FileStore{IndexPath: indexPath, MetadataPath: metadataPath}
}

// ManifestPath returns the manifest location: metadata.json -> metadata.manifest.json.
func (s *FileStore) ManifestPath() string {
	ext := filepath.Ext(s.MetadataPath)
	return strings.TrimSuffix(s.MetadataPath, ext) + ".manifest.json"
}

// Save writes the manifest first, carrying checksums of the new index and
// metadata, then the index, then the metadata. Each file is replaced
// atomically. Until all three agree Load rejects the pair.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := snap.Validate(0); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	indexData, err := snap.Index.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	chunks := snap.Chunks
	if chunks == nil {
		chunks = []string{}
	}
	metadataData, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	manifest := snap.Manifest
	manifest.Checksums = &Checksums{Index: checksum(indexData), Metadata: checksum(metadataData)}
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.ManifestPath(), manifestData); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.IndexPath, indexData); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.MetadataPath, metadataData); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	logger.InfoContext(ctx, "snapshot saved",
		"build_id", manifest.BuildID,
		"index_path", s.IndexPath,
		"metadata_path", s.MetadataPath,
		"chunks", len(snap.Chunks),
		"dimension", snap.Index.Dim(),
	)
	return nil
}

// Load reads and validates the pair. When a manifest is present both files
// must match its checksums. A missing manifest is tolerated: one is derived
// from the index and metadata so pairs produced by other tools still load.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	logger := contextutil.LoggerFromContext(ctx)

	indexData, err := os.ReadFile(s.IndexPath)
	if err != nil {
		return nil, loadFailure(err, "failed to read index "+s.IndexPath)
	}
	metadataData, err := os.ReadFile(s.MetadataPath)
	if err != nil {
		return nil, loadFailure(err, "failed to read metadata "+s.MetadataPath)
	}

	var manifest Manifest
	switch err := readJSON(s.ManifestPath(), &manifest); {
	case err == nil:
		if err := verifyChecksums(manifest, indexData, metadataData); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		logger.WarnContext(ctx, "manifest missing, deriving from index", "path", s.ManifestPath())
	default:
		return nil, loadFailure(err, "failed to read manifest "+s.ManifestPath())
	}

	index := &vectorindex.Flat{}
	if err := index.UnmarshalBinary(indexData); err != nil {
		return nil, loadFailure(err, "failed to read index "+s.IndexPath)
	}
	var chunks []string
	if err := json.Unmarshal(metadataData, &chunks); err != nil {
		return nil, loadFailure(fmt.Errorf("decode %s: %w", filepath.Base(s.MetadataPath), err), "failed to read metadata "+s.MetadataPath)
	}
	if chunks == nil {
		chunks = []string{}
	}

	if manifest.Checksums == nil {
		manifest.Dimension = index.Dim()
		manifest.ChunkCount = len(chunks)
	}

	snap := &Snapshot{Index: index, Chunks: chunks, Manifest: manifest}
	if err := snap.Validate(0); err != nil {
		return nil, err
	}
	return snap, nil
}

// verifyChecksums rejects files that were not written by the manifest's build,
// such as a pair left half-replaced by an interrupted Save.
func verifyChecksums(m Manifest, indexData, metadataData []byte) error {
	if m.Checksums == nil {
		return fmt.Errorf("%w: manifest for build %s carries no checksums", service.ErrIndexLoad, m.BuildID)
	}
	if got := checksum(indexData); got != m.Checksums.Index {
		return fmt.Errorf("%w: index file does not belong to build %s (sha256 %s, want %s)", service.ErrIndexLoad, m.BuildID, got, m.Checksums.Index)
	}
	if got := checksum(metadataData); got != m.Checksums.Metadata {
		return fmt.Errorf("%w: metadata file does not belong to build %s (sha256 %s, want %s)", service.ErrIndexLoad, m.BuildID, got, m.Checksums.Metadata)
	}
	return nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
