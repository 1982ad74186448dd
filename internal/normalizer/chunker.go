package normalizer

// DefaultChunkSize is the default chunk window in characters.
const DefaultChunkSize = 512

// Chunk slices s into consecutive, non-overlapping windows of at most size characters
// (runes). The last window may be shorter. An empty s yields no chunks.
// Windows are hard cuts: joining the result and chunking again gives the same windows.
func Chunk(s string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if s == "" {
		return nil
	}

	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
