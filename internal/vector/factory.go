package vector

import (
	"context"
	"fmt"

	"github.com/arielhalevy123/revsearch/internal/config"
)

// Backend identifies a vector index implementation.
type Backend string

const (
	// BackendLocal uses a file-persisted brute-force index. Good for small
	// corpora and zero-infrastructure setups.
	BackendLocal Backend = "local"
	// BackendQdrant uses a qdrant collection over gRPC.
	BackendQdrant Backend = "qdrant"
	// BackendPgvector uses a Postgres table with the pgvector extension.
	BackendPgvector Backend = "pgvector"
)

// NewIndex creates the index backend named by cfg.Backend.
// Supported backends: "local" (default), "qdrant", "pgvector".
func NewIndex(ctx context.Context, cfg *config.IndexConfig, dimensions int) (Index, error) {
	switch Backend(cfg.Backend) {
	case BackendLocal, "":
		return NewLocalIndex(dimensions, cfg.Local.Path)
	case BackendQdrant:
		return NewQdrantIndex(&cfg.Qdrant, cfg.Collection, dimensions)
	case BackendPgvector:
		return NewPgvectorIndex(ctx, &cfg.Postgres, cfg.Collection, dimensions)
	default:
		return nil, fmt.Errorf("unknown index backend: %s (supported: local, qdrant, pgvector)", cfg.Backend)
	}
}
