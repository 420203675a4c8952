package e2e

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/arielhalevy123/revsearch/pkg/utils"
)

// termHashEmbedder embeds text as an L2-normalized bag of hashed words.
// Texts that share words get a higher cosine similarity, so retrieval
// quality is observable end to end without a hosted embedding provider.
// Deterministic across runs and platforms.
type termHashEmbedder struct {
	dimensions int
}

func newTermHashEmbedder(dimensions int) *termHashEmbedder {
	return &termHashEmbedder{dimensions: dimensions}
}

func (e *termHashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(e.dimensions)]++
	}
	utils.NormalizeL2(vec)
	return vec, nil
}

func (e *termHashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (e *termHashEmbedder) Dimensions() int { return e.dimensions }

func (e *termHashEmbedder) Close() error { return nil }
