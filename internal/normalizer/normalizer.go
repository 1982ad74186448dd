package normalizer

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Result is the output of normalizing one record.
type Result struct {
	Fragments []Fragment // one per string leaf, before cleaning
	Skips     []Skip     // leaves dropped during flattening
	Text      string     // cleaned text stream
	Chunks    []string   // Text cut into windows of at most ChunkSize runes
}

// Normalizer flattens, cleans and chunks structured records. It holds no state
// beyond its configuration and is safe for concurrent use.
type Normalizer struct {
	chunkSize int
}

// New creates a Normalizer with the given chunk window. Non-positive sizes use DefaultChunkSize.
func New(chunkSize int) *Normalizer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Normalizer{chunkSize: chunkSize}
}

// ChunkSize returns the configured chunk window in characters.
func (n *Normalizer) ChunkSize() int {
	return n.chunkSize
}

// Normalize returns the ordered chunk strings for record.
func (n *Normalizer) Normalize(ctx context.Context, record Value) []string {
	return n.Process(ctx, record).Chunks
}

// Process runs the full flatten, clean and chunk pipeline and keeps the intermediate results.
func (n *Normalizer) Process(ctx context.Context, record Value) Result {
	fragments, skips := Flatten(ctx, record)
	cleaned := CleanText(fragments)
	return Result{
		Fragments: fragments,
		Skips:     skips,
		Text:      cleaned,
		Chunks:    Chunk(cleaned, n.chunkSize),
	}
}

// Rejoin concatenates chunks back into the text they were cut from.
func Rejoin(chunks []string) string {
	return strings.Join(chunks, "")
}

// Length returns the length of s in characters, the unit chunk windows are measured in.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
