package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arielhalevy123/revsearch/internal/models"
)

func TestLocalIndex_UpsertQuery(t *testing.T) {
	idx, err := NewLocalIndex(3, "")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	docs := []models.Document{
		{ID: "a", Text: "alpha"},
		{ID: "b", Text: "beta"},
		{ID: "c", Text: "gamma"},
	}
	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Upsert(ctx, docs, vecs); err != nil {
		t.Fatal(err)
	}
	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("Count=%d, want 3", count)
	}

	results, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("top result should be a, got %s", results[0].ID)
	}
	if results[0].Text != "alpha" {
		t.Errorf("top result text=%q, want alpha", results[0].Text)
	}
	if results[1].ID != "b" {
		t.Errorf("second result should be b, got %s", results[1].ID)
	}
}

func TestLocalIndex_QueryTiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewLocalIndex(2, "")
	ctx := context.Background()

	docs := []models.Document{{ID: "first", Text: "f"}, {ID: "second", Text: "s"}}
	vecs := [][]float32{{1, 0}, {2, 0}} // same direction, same similarity
	if err := idx.Upsert(ctx, docs, vecs); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "first" || results[1].ID != "second" {
		t.Errorf("tied results reordered: got %s, %s", results[0].ID, results[1].ID)
	}
}

func TestLocalIndex_QueryBounds(t *testing.T) {
	idx, _ := NewLocalIndex(2, "")
	ctx := context.Background()
	_ = idx.Upsert(ctx, []models.Document{{ID: "x", Text: "x"}}, [][]float32{{1, 0}})

	results, err := idx.Query(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result when n exceeds corpus, got %d", len(results))
	}

	results, err = idx.Query(ctx, []float32{1, 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for n=0, got %d", len(results))
	}
}

func TestLocalIndex_UpsertOverwrite(t *testing.T) {
	idx, _ := NewLocalIndex(2, "")
	ctx := context.Background()

	_ = idx.Upsert(ctx, []models.Document{{ID: "x", Text: "old"}, {ID: "y", Text: "other"}},
		[][]float32{{1, 0}, {0, 1}})
	if err := idx.Upsert(ctx, []models.Document{{ID: "x", Text: "new"}}, [][]float32{{0, 1}}); err != nil {
		t.Fatal(err)
	}

	count, _ := idx.Count(ctx)
	if count != 2 {
		t.Errorf("Count=%d, want 2", count)
	}
	// x and y now tie on the query; x keeps its original slot and comes first.
	results, err := idx.Query(ctx, []float32{0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "x" || results[0].Text != "new" {
		t.Errorf("overwritten doc: got ID=%s Text=%q, want x/new", results[0].ID, results[0].Text)
	}
}

func TestLocalIndex_Existing(t *testing.T) {
	idx, _ := NewLocalIndex(2, "")
	ctx := context.Background()
	_ = idx.Upsert(ctx, []models.Document{{ID: "a", Text: "a"}, {ID: "b", Text: "b"}},
		[][]float32{{1, 0}, {0, 1}})

	found, err := idx.Existing(ctx, []string{"a", "missing", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if !found["a"] || !found["b"] {
		t.Errorf("expected a and b to exist, got %v", found)
	}
	if found["missing"] {
		t.Error("missing should not be reported as existing")
	}
}

func TestLocalIndex_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	ctx := context.Background()

	idx, err := NewLocalIndex(3, path)
	if err != nil {
		t.Fatal(err)
	}
	docs := []models.Document{{ID: "a", Text: "alpha"}, {ID: "b", Text: "beta"}}
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}}
	if err := idx.Upsert(ctx, docs, vecs); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewLocalIndex(3, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	count, _ := reopened.Count(ctx)
	if count != 2 {
		t.Fatalf("Count after reload=%d, want 2", count)
	}
	results, err := reopened.Query(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "b" || results[0].Text != "beta" {
		t.Errorf("reloaded doc: got ID=%s Text=%q, want b/beta", results[0].ID, results[0].Text)
	}
}

func TestLocalIndex_EnsureDiscardsStaleSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	ctx := context.Background()

	idx, _ := NewLocalIndex(3, path)
	if err := idx.Upsert(ctx, []models.Document{{ID: "a", Text: "alpha"}}, [][]float32{{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}

	// Reopen with different dimensionality: the old snapshot is unusable.
	reopened, _ := NewLocalIndex(4, path)
	if err := reopened.Ensure(ctx); err != nil {
		t.Fatal(err)
	}
	count, _ := reopened.Count(ctx)
	if count != 0 {
		t.Errorf("Count=%d, want 0 after stale snapshot discard", count)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale snapshot file should have been removed")
	}
}

func TestLocalIndex_EnsureMissingFile(t *testing.T) {
	idx, _ := NewLocalIndex(2, filepath.Join(t.TempDir(), "never-written.bin"))
	if err := idx.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure on missing file: %v", err)
	}
}

func TestLocalIndex_Errors(t *testing.T) {
	idx, _ := NewLocalIndex(2, "")
	ctx := context.Background()

	if err := idx.Upsert(ctx, []models.Document{{ID: "a", Text: "a"}}, nil); err == nil {
		t.Error("expected error for docs/embeddings length mismatch")
	}
	if err := idx.Upsert(ctx, []models.Document{{ID: "a", Text: "a"}}, [][]float32{{1, 2, 3}}); err == nil {
		t.Error("expected error for wrong vector dimensions")
	}
	if _, err := idx.Query(ctx, []float32{1, 2, 3}, 1); err == nil {
		t.Error("expected error for wrong query dimensions")
	}
}

func TestNewLocalIndex_InvalidDimension(t *testing.T) {
	if _, err := NewLocalIndex(0, ""); err == nil {
		t.Error("expected error for zero dimension")
	}
}
