package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used to measure token budgets.
const DefaultEncoding = "cl100k_base"

// TokenCounter counts and truncates text in tokens.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter loads the named tiktoken encoding.
// The encoding file is fetched once and cached under TIKTOKEN_CACHE_DIR.
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TokenCounter{encoding: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *TokenCounter) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// TrimToTokenLimit returns the longest token prefix of text with at most maxTokens tokens.
func (t *TokenCounter) TrimToTokenLimit(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.encoding.Decode(tokens[:maxTokens])
}
