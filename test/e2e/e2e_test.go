package e2e

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/ingest"
	"github.com/arielhalevy123/revsearch/internal/models"
	"github.com/arielhalevy123/revsearch/internal/search"
	"github.com/arielhalevy123/revsearch/internal/vector"
)

const (
	e2eDimensions = 256
	e2eTopK       = 10
	e2eThreshold  = 0.15
)

// newPipeline assembles embedder, index, ingester, and retriever the way the
// server entrypoint wires them, backed by a snapshot file under dir.
func newPipeline(t *testing.T, dir string) (*ingest.Ingester, *search.Retriever, vector.Index) {
	t.Helper()

	embedder := newTermHashEmbedder(e2eDimensions)
	index, err := vector.NewLocalIndex(e2eDimensions, filepath.Join(dir, "index.bin"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { index.Close() })
	if err := index.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}

	ingester := ingest.NewIngester(embedder, index, &config.IngestConfig{BatchSize: 8})
	retriever := search.NewRetriever(embedder, index, &config.SearchConfig{
		DefaultTopK:      5,
		MaxTopK:          50,
		DefaultThreshold: e2eThreshold,
		OverfetchMargin:  10,
		FetchCap:         60,
	})
	return ingester, retriever, index
}

func ingestCorpus(t *testing.T, ingester *ingest.Ingester, corpus *Corpus, dir string) *ingest.Result {
	t.Helper()

	dataPath := filepath.Join(dir, "documents.jsonl")
	if err := corpus.WriteJSONL(dataPath); err != nil {
		t.Fatal(err)
	}
	result, err := ingester.IngestFile(context.Background(), dataPath)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func resultIDs(resp *models.SearchResponse) []string {
	ids := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		ids[i] = r.ID
	}
	return ids
}

func containsAny(got, want []string) bool {
	for _, w := range want {
		for _, g := range got {
			if g == w {
				return true
			}
		}
	}
	return false
}

func TestE2E_IngestAndRetrieve(t *testing.T) {
	corpus := BuildCorpus()
	dir := t.TempDir()
	ingester, retriever, _ := newPipeline(t, dir)

	result := ingestCorpus(t, ingester, corpus, dir)
	if result.Ingested != len(corpus.Documents) {
		t.Fatalf("ingested %d documents, want %d", result.Ingested, len(corpus.Documents))
	}
	t.Logf("ingested %d documents, running %d query cases", result.Ingested, len(corpus.TestCases))

	ctx := context.Background()
	for _, tc := range corpus.TestCases {
		t.Run(tc.Description, func(t *testing.T) {
			resp, err := retriever.Retrieve(ctx, &models.SearchQuery{Query: tc.Query, TopK: e2eTopK})
			if err != nil {
				t.Fatalf("search %q failed: %v", tc.Query, err)
			}
			if resp.Query != tc.Query {
				t.Errorf("response echoes query %q, want %q", resp.Query, tc.Query)
			}
			ids := resultIDs(resp)
			if !containsAny(ids, tc.ExpectedDocIDs) {
				t.Errorf("query %q: expected one of %v in results, got %v", tc.Query, tc.ExpectedDocIDs, ids)
			}
			for i := 1; i < len(resp.Results); i++ {
				if resp.Results[i].Similarity > resp.Results[i-1].Similarity {
					t.Errorf("query %q: results out of order at rank %d (%.4f > %.4f)",
						tc.Query, i+1, resp.Results[i].Similarity, resp.Results[i-1].Similarity)
				}
			}
			t.Logf("query %q -> %v", tc.Query, ids)
		})
	}
}

func TestE2E_PaddedQueryStillMatches(t *testing.T) {
	corpus := BuildCorpus()
	dir := t.TempDir()
	ingester, retriever, _ := newPipeline(t, dir)
	ingestCorpus(t, ingester, corpus, dir)

	padded := "   milkshake machine broken \n"
	resp, err := retriever.Retrieve(context.Background(), &models.SearchQuery{Query: padded, TopK: e2eTopK})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Query != padded {
		t.Errorf("response query = %q, want the original input %q", resp.Query, padded)
	}
	if !containsAny(resultIDs(resp), []string{"rev-001"}) {
		t.Errorf("padded query missed rev-001, got %v", resultIDs(resp))
	}
}

func TestE2E_ThresholdControlsResultSet(t *testing.T) {
	corpus := BuildCorpus()
	dir := t.TempDir()
	ingester, retriever, _ := newPipeline(t, dir)
	ingestCorpus(t, ingester, corpus, dir)

	ctx := context.Background()

	strict := 0.95
	resp, err := retriever.Retrieve(ctx, &models.SearchQuery{
		Query:               "milkshake machine broken",
		TopK:                e2eTopK,
		SimilarityThreshold: &strict,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("threshold %.2f: expected no results, got %d", strict, len(resp.Results))
	}

	permissive := -1.0
	resp, err = retriever.Retrieve(ctx, &models.SearchQuery{
		Query:               "milkshake machine broken",
		TopK:                e2eTopK,
		SimilarityThreshold: &permissive,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != e2eTopK {
		t.Errorf("threshold %.2f: expected a full page of %d results, got %d", permissive, e2eTopK, len(resp.Results))
	}
}

func TestE2E_ReopenedIndexServesQueries(t *testing.T) {
	corpus := BuildCorpus()
	dir := t.TempDir()
	ingester, _, _ := newPipeline(t, dir)
	first := ingestCorpus(t, ingester, corpus, dir)
	if first.Ingested != len(corpus.Documents) {
		t.Fatalf("first run ingested %d, want %d", first.Ingested, len(corpus.Documents))
	}

	// A fresh component set over the same snapshot path simulates a process
	// restart.
	ingester2, retriever2, index2 := newPipeline(t, dir)

	count, err := index2.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != uint64(len(corpus.Documents)) {
		t.Fatalf("reopened index holds %d documents, want %d", count, len(corpus.Documents))
	}

	second := ingestCorpus(t, ingester2, corpus, dir)
	if second.Ingested != 0 {
		t.Errorf("re-ingest embedded %d documents, want 0", second.Ingested)
	}
	if second.Skipped != len(corpus.Documents) {
		t.Errorf("re-ingest skipped %d documents, want %d", second.Skipped, len(corpus.Documents))
	}

	resp, err := retriever2.Retrieve(context.Background(), &models.SearchQuery{Query: "sticky playground", TopK: e2eTopK})
	if err != nil {
		t.Fatal(err)
	}
	if !containsAny(resultIDs(resp), []string{"rev-005"}) {
		t.Errorf("reopened index missed rev-005, got %v", resultIDs(resp))
	}
}
