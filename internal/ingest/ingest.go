// Package ingest loads JSON Lines corpora into the vector index.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/embedding"
	"github.com/arielhalevy123/revsearch/internal/models"
	"github.com/arielhalevy123/revsearch/internal/vector"
)

// Ingester embeds documents and writes them to the vector index.
type Ingester struct {
	embedder embedding.Embedder
	index    vector.Index
	config   *config.IngestConfig
	logger   *zap.Logger // optional; when set, logs progress events
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(ing *Ingester) { ing.logger = l }
}

// NewIngester creates an ingester with the given dependencies.
func NewIngester(embedder embedding.Embedder, index vector.Index, cfg *config.IngestConfig, opts ...Option) *Ingester {
	ing := &Ingester{
		embedder: embedder,
		index:    index,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Result summarizes one ingestion run.
type Result struct {
	Total    int // documents in the corpus file
	Skipped  int // already present in the index
	Ingested int // embedded and upserted this run
}

// ReadDocuments parses a JSON Lines corpus file. Blank lines are skipped.
// Every document needs a non-empty id and text, and IDs must be unique
// within the file.
func ReadDocuments(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	var docs []models.Document
	seen := make(map[string]int)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc models.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if doc.ID == "" {
			return nil, fmt.Errorf("line %d: missing id", line)
		}
		if strings.TrimSpace(doc.Text) == "" {
			return nil, fmt.Errorf("line %d: missing text for %q", line, doc.ID)
		}
		if first, ok := seen[doc.ID]; ok {
			return nil, fmt.Errorf("line %d: duplicate id %q (first seen on line %d)", line, doc.ID, first)
		}
		seen[doc.ID] = line
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return docs, nil
}

// IngestFile loads the corpus at path, skips documents already present in
// the index, and embeds and upserts the rest in batches. Re-running on an
// unchanged corpus is a cheap no-op.
func (ing *Ingester) IngestFile(ctx context.Context, path string) (*Result, error) {
	docs, err := ReadDocuments(path)
	if err != nil {
		return nil, err
	}

	if err := ing.index.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare index: %w", err)
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	existing, err := ing.index.Existing(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing documents: %w", err)
	}

	pending := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if !existing[d.ID] {
			pending = append(pending, d)
		}
	}
	result := &Result{Total: len(docs), Skipped: len(docs) - len(pending)}

	batchSize := ing.config.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}
		embeddings, err := ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}
		if err := ing.index.Upsert(ctx, batch, embeddings); err != nil {
			return nil, fmt.Errorf("failed to upsert batch: %w", err)
		}
		result.Ingested += len(batch)
		if ing.logger != nil {
			ing.logger.Debug("batch ingested",
				zap.Int("size", len(batch)),
				zap.Int("done", result.Ingested),
				zap.Int("remaining", len(pending)-result.Ingested))
		}
	}

	if ing.logger != nil {
		ing.logger.Info("corpus ingested",
			zap.String("path", path),
			zap.Int("total", result.Total),
			zap.Int("skipped", result.Skipped),
			zap.Int("ingested", result.Ingested))
	}
	return result, nil
}
