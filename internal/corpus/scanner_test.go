package corpus

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"patriotpilot/internal/normalizer"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
}

func relPaths(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.RelPath
	}
	return out
}

func TestScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"people/faculty.json":    `{"name": "Ada", "contact": {"email": "ada@gmu.edu"}}`,
		"courses.json":           `[{"code": "CS 110"}]`,
		"faq/grad.md":            "# Admissions\n\nApply early.\n",
		"a-first.json":           `{"z": "last key", "a": "first key"}`,
		"notes.txt":              "not a record",
		".cache/ignored.json":    `{"x": "y"}`,
		"people/.hidden/no.json": `{"x": "y"}`,
	})

	records, rejected, err := NewScanner(root).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(rejected) != 0 {
		t.Errorf("Scan() rejected %v, want none", rejected)
	}

	want := []string{"a-first.json", "courses.json", "faq/grad.md", "people/faculty.json"}
	if got := relPaths(records); !slices.Equal(got, want) {
		t.Errorf("Scan() paths = %v, want %v", got, want)
	}

	if records[0].Format != FormatJSON || records[2].Format != FormatMarkdown {
		t.Errorf("formats = %q, %q", records[0].Format, records[2].Format)
	}

	// Key order from the file is preserved.
	entries := records[0].Value.Entries()
	if len(entries) != 2 || entries[0].Key != "z" || entries[1].Key != "a" {
		t.Errorf("entries = %+v, want keys z then a", entries)
	}

	if got := records[3].Value.Lookup("contact", "email").Text(); got != "ada@gmu.edu" {
		t.Errorf("Lookup(contact, email) = %q", got)
	}
	if got := records[2].Value.Lookup("Admissions").Kind(); got != normalizer.KindSequence {
		t.Errorf("markdown section kind = %v, want sequence", got)
	}
}

func TestScanner_Scan_RejectsUndecodable(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"bad.json":   `{"unterminated": `,
		"good.json":  `{"ok": "yes"}`,
		"empty.json": "",
	})

	records, rejected, err := NewScanner(root).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if got := relPaths(records); !slices.Equal(got, []string{"good.json"}) {
		t.Errorf("Scan() paths = %v, want [good.json]", got)
	}
	if len(rejected) != 2 {
		t.Fatalf("Scan() rejected %d files, want 2", len(rejected))
	}
	if rejected[0].RelPath != "bad.json" || rejected[1].RelPath != "empty.json" {
		t.Errorf("rejected = %+v", rejected)
	}
	for _, r := range rejected {
		if r.Err == nil {
			t.Errorf("rejected %s without an error", r.RelPath)
		}
	}
}

func TestScanner_Scan_MissingRoot(t *testing.T) {
	_, _, err := NewScanner(filepath.Join(t.TempDir(), "nope")).Scan(context.Background())
	if err == nil {
		t.Error("Scan() of a missing directory should return error")
	}

	file := filepath.Join(t.TempDir(), "file.json")
	writeFiles(t, filepath.Dir(file), map[string]string{"file.json": "{}"})
	if _, _, err := NewScanner(file).Scan(context.Background()); err == nil {
		t.Error("Scan() of a regular file should return error")
	}
}

func TestScanner_Scan_ContextCancellation(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.json": `{"a": "b"}`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := NewScanner(root).Scan(ctx); err == nil {
		t.Error("Scan() with cancelled context should return error")
	}
}

func TestScanner_Scan_EmptyDirectory(t *testing.T) {
	records, rejected, err := NewScanner(t.TempDir()).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(records) != 0 || len(rejected) != 0 {
		t.Errorf("Scan() = %d records, %d rejected, want none", len(records), len(rejected))
	}
}
