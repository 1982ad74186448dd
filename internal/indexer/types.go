package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks patriotpilot/internal/indexer Embedder

import "context"

// Embedder is the embedding capability used at build time. EmbedTexts must
// return one vector per input text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

// TokenCounter measures chunk lengths in tokens for build stats.
type TokenCounter interface {
	CountTokens(text string) int
}
