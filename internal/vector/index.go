package vector

import (
	"context"

	"github.com/arielhalevy123/revsearch/internal/models"
)

// Candidate is a single hit returned by an index query. Score is the
// backend's own similarity estimate; callers that need exact similarity
// recompute it from Vector.
type Candidate struct {
	ID     string
	Text   string
	Vector []float32
	Score  float32
}

// Index is a vector search backend holding embedded documents. All backends
// are configured for cosine distance.
type Index interface {
	// Ensure prepares the backing collection or schema. It is a no-op when a
	// collection with matching distance metric and dimensionality already
	// exists; on mismatch the collection is dropped and recreated.
	Ensure(ctx context.Context) error

	// Upsert stores documents with their embeddings, overwriting entries
	// that share an ID. docs and embeddings must have equal length.
	Upsert(ctx context.Context, docs []models.Document, embeddings [][]float32) error

	// Existing reports which of the given document IDs are already stored.
	Existing(ctx context.Context, ids []string) (map[string]bool, error)

	// Query returns up to n candidates ordered by the backend's similarity,
	// best first. Fewer than n results is normal for a small corpus.
	Query(ctx context.Context, vector []float32, n int) ([]Candidate, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (uint64, error)

	// Health verifies the backend is reachable.
	Health(ctx context.Context) error

	Close() error
}
