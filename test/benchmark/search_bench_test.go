package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/embedding"
	"github.com/arielhalevy123/revsearch/internal/models"
	"github.com/arielhalevy123/revsearch/internal/search"
	"github.com/arielhalevy123/revsearch/internal/vector"
)

const benchDimensions = 384

// benchIndex returns a memory-only local index preloaded with n embedded
// reviews.
func benchIndex(n int) (*vector.LocalIndex, embedding.Embedder) {
	embedder := embedding.NewMockEmbedder(benchDimensions)
	idx, _ := vector.NewLocalIndex(benchDimensions, "")
	ctx := context.Background()
	docs := make([]models.Document, n)
	texts := make([]string, n)
	for i := range docs {
		docs[i] = models.Document{
			ID:   fmt.Sprintf("rev-%04d", i),
			Text: fmt.Sprintf("Review %d: the fries were fine but the line was long.", i),
		}
		texts[i] = docs[i].Text
	}
	embeddings, _ := embedder.EmbedBatch(ctx, texts)
	_ = idx.Upsert(ctx, docs, embeddings)
	return idx, embedder
}

func BenchmarkCosineSimilarity(b *testing.B) {
	x := make([]float32, 1536)
	y := make([]float32, 1536)
	for i := range x {
		x[i] = float32(i%7) * 0.1
		y[i] = float32(i%5) * 0.1
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vector.CosineSimilarity(x, y)
	}
}

func BenchmarkLocalIndexQuery(b *testing.B) {
	idx, embedder := benchIndex(1000)
	ctx := context.Background()
	query, _ := embedder.Embed(ctx, "how long is the drive thru line")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Query(ctx, query, 15)
	}
}

func BenchmarkRetrieve(b *testing.B) {
	idx, embedder := benchIndex(1000)
	retriever := search.NewRetriever(embedder, idx, &config.SearchConfig{
		DefaultTopK:      5,
		MaxTopK:          50,
		DefaultThreshold: 0.3,
		OverfetchMargin:  10,
		FetchCap:         60,
	})
	ctx := context.Background()
	query := &models.SearchQuery{Query: "how long is the drive thru line", TopK: 10}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = retriever.Retrieve(ctx, query)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(1536)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
