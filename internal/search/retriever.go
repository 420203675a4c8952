// Package search implements semantic retrieval over an embedded corpus.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/embedding"
	"github.com/arielhalevy123/revsearch/internal/models"
	"github.com/arielhalevy123/revsearch/internal/vector"
	"github.com/arielhalevy123/revsearch/pkg/utils"
)

// Retriever answers search queries against a vector index. It holds no
// per-query state: every call embeds the query, fetches candidates, and
// scores them from scratch, so identical corpus and query give identical
// results.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
	config   *config.SearchConfig
}

// NewRetriever creates a retriever with the given dependencies.
func NewRetriever(embedder embedding.Embedder, index vector.Index, cfg *config.SearchConfig) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		config:   cfg,
	}
}

// Retrieve embeds the query, over-fetches candidates from the index, scores
// them with exact cosine similarity, and returns the top results at or above
// the similarity threshold. The trimmed query text is embedded; the response
// echoes the query exactly as given. An empty result set is a normal outcome,
// not an error.
func (r *Retriever) Retrieve(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	text := strings.TrimSpace(query.Query)
	if text == "" {
		return nil, &InvalidQueryError{Reason: "query must not be empty"}
	}

	topK := query.TopK
	if topK <= 0 {
		topK = r.config.DefaultTopK
	}
	if topK > r.config.MaxTopK {
		topK = r.config.MaxTopK
	}
	threshold := r.config.DefaultThreshold
	if query.SimilarityThreshold != nil {
		threshold = *query.SimilarityThreshold
	}

	// Fetch more than topK so threshold filtering still leaves a full page
	// when some candidates fall below the cutoff.
	fetchCount := topK + r.config.OverfetchMargin
	if fetchCount > r.config.FetchCap {
		fetchCount = r.config.FetchCap
	}

	queryVector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	candidates, err := r.index.Query(ctx, queryVector, fetchCount)
	if err != nil {
		return nil, &IndexUnavailableError{Err: err}
	}

	// Re-score with the full cosine formula. Backend scores may be
	// approximate or scaled differently, and stored vectors need not be
	// normalized.
	scored := make([]models.SearchResult, len(candidates))
	for i, c := range candidates {
		scored[i] = models.SearchResult{
			ID:         c.ID,
			Similarity: vector.CosineSimilarity(queryVector, c.Vector),
			Text:       c.Text,
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })

	filtered := scored[:0]
	for _, s := range scored {
		if s.Similarity >= threshold {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	for i := range filtered {
		filtered[i].Similarity = utils.RoundTo(filtered[i].Similarity, 4)
	}

	return &models.SearchResponse{
		Query:   query.Query,
		Results: filtered,
	}, nil
}
