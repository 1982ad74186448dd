// Package corpus finds the source records an index is built from.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/normalizer"
)

// Source record formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Record is one decoded source file.
type Record struct {
	RelPath string // relative to the scan root, forward slashes
	Format  string
	Value   normalizer.Value
}

// Rejected is a file that matched the scan but could not be decoded.
type Rejected struct {
	RelPath string
	Err     error
}

// Scanner walks a data directory for .json and .md records.
type Scanner struct {
	root     string
	markdown *normalizer.MarkdownParser
}

// NewScanner creates a scanner rooted at root.
func NewScanner(root string) *Scanner {
	return &Scanner{
		root:     root,
		markdown: normalizer.NewMarkdownParser(),
	}
}

// Root returns the scanned directory.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the root in lexical order and decodes every record it finds.
// Hidden directories are skipped. A file that cannot be decoded is reported in
// the rejected list and does not stop the scan; an unreadable directory does.
func (s *Scanner) Scan(ctx context.Context) ([]Record, []Rejected, error) {
	logger := contextutil.LoggerFromContext(ctx)

	info, err := os.Stat(s.root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to access data directory %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("data directory %s is not a directory", s.root)
	}

	var records []Record
	var rejected []Rejected

	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to access path %s: %w", path, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		format := formatOf(path)
		if format == "" {
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		value, err := s.decode(path, format)
		if err != nil {
			logger.WarnContext(ctx, "skipping undecodable record", "path", relPath, "error", err)
			rejected = append(rejected, Rejected{RelPath: relPath, Err: err})
			return nil
		}

		records = append(records, Record{RelPath: relPath, Format: format, Value: value})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}

	logger.InfoContext(ctx, "corpus scanned", "root", s.root, "records", len(records), "rejected", len(rejected))
	return records, rejected, nil
}

func (s *Scanner) decode(path, format string) (normalizer.Value, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return normalizer.Value{}, fmt.Errorf("failed to read file: %w", err)
	}
	if format == FormatMarkdown {
		return s.markdown.Parse(content, filepath.Base(path)), nil
	}
	return normalizer.DecodeJSON(content)
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".md", ".markdown":
		return FormatMarkdown
	}
	return ""
}
