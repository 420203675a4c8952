// Package embedding provides text embedding via hosted providers.
package embedding

import (
	"context"
	"fmt"

	"github.com/arielhalevy123/revsearch/internal/config"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// NewEmbedder creates the embedder named by cfg.Provider.
// Supported providers: "openai" (default), "mock".
func NewEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIEmbedder(cfg)
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", cfg.Provider)
	}
}
