package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/arielhalevy123/revsearch/internal/config"
)

// maxBatchInputs caps how many texts go into one embeddings request.
const maxBatchInputs = 128

// modelDimensions maps known OpenAI embedding models to their native vector size.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder produces embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder for the configured model. Dimensions
// may be left 0 for known models; unknown models require it.
func NewOpenAIEmbedder(cfg *config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY or embedding.api_key)")
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = modelDimensions[model]
	}
	if dims <= 0 {
		return nil, fmt.Errorf("unknown embedding model %q: set embedding.dimensions", model)
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(clientOptions...)

	return &OpenAIEmbedder{
		client:     &client,
		model:      model,
		dimensions: dims,
	}, nil
}

// Embed returns the embedding for a single text.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in request-sized chunks, preserving input order.
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	embeddings := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += maxBatchInputs {
		end := start + maxBatchInputs
		if end > len(texts) {
			end = len(texts)
		}
		if err := o.embedChunk(ctx, texts[start:end], embeddings[start:end]); err != nil {
			return nil, err
		}
	}
	return embeddings, nil
}

func (o *OpenAIEmbedder) embedChunk(ctx context.Context, texts []string, out [][]float32) error {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	// Models with adjustable output sizes need the reduced size requested
	// explicitly.
	if native, ok := modelDimensions[o.model]; ok && native != o.dimensions {
		params.Dimensions = openai.Int(int64(o.dimensions))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return fmt.Errorf("embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return fmt.Errorf("embeddings response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	for _, item := range resp.Data {
		if item.Index < 0 || int(item.Index) >= len(out) {
			return fmt.Errorf("embeddings response index %d out of range", item.Index)
		}
		if len(item.Embedding) != o.dimensions {
			return fmt.Errorf("embedding has %d dimensions, expected %d", len(item.Embedding), o.dimensions)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		out[item.Index] = vec
	}
	return nil
}

// Dimensions returns the embedding vector size.
func (o *OpenAIEmbedder) Dimensions() int {
	return o.dimensions
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (o *OpenAIEmbedder) Close() error {
	return nil
}
