package indexer

import (
	"math"
	"slices"

	"patriotpilot/internal/normalizer"
	"patriotpilot/internal/storage"
)

// ComputeLengthStats summarizes chunk lengths in characters and, when tokens
// is non-nil, in tokens.
func ComputeLengthStats(chunks []string, tokens TokenCounter) storage.LengthStats {
	chars := make([]int, len(chunks))
	for i, c := range chunks {
		chars[i] = normalizer.Length(c)
	}
	stats := storage.LengthStats{Chars: summarize(chars)}

	if tokens != nil {
		counts := make([]int, len(chunks))
		for i, c := range chunks {
			counts[i] = tokens.CountTokens(c)
		}
		s := summarize(counts)
		stats.Tokens = &s
	}
	return stats
}

// summarize computes min, max, mean, and p95 from counts.
func summarize(counts []int) storage.Summary {
	if len(counts) == 0 {
		return storage.Summary{}
	}

	sorted := slices.Clone(counts)
	slices.Sort(sorted)

	sum := 0
	for _, c := range sorted {
		sum += c
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95Index = max(0, min(p95Index, len(sorted)-1))

	return storage.Summary{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
