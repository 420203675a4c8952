package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/arielhalevy123/revsearch/internal/models"
)

// LocalIndex is a brute-force index over an in-memory document set, persisted
// to a binary snapshot file. It computes full cosine similarity on every
// query, so its ordering is exact. Suitable for small corpora, local
// development, and deterministic tests. An empty path disables persistence.
type LocalIndex struct {
	path       string
	dimensions int

	mu      sync.RWMutex
	ids     []string
	texts   []string
	vectors [][]float32
	pos     map[string]int // id -> slot in the slices above
}

// NewLocalIndex creates a local index with the given dimensionality.
// Call Ensure to load a previously persisted snapshot from path.
func NewLocalIndex(dimensions int, path string) (*LocalIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &LocalIndex{
		path:       path,
		dimensions: dimensions,
		pos:        make(map[string]int),
	}, nil
}

// Ensure loads the snapshot at the configured path. A missing file means an
// empty index. A snapshot whose dimensionality no longer matches is stale
// configuration, so it is discarded and the index starts empty.
func (l *LocalIndex) Ensure(ctx context.Context) error {
	if l.path == "" {
		return nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != l.dimensions {
		// Snapshot was written for a different embedding configuration.
		if err := os.Remove(l.path); err != nil {
			return fmt.Errorf("remove stale index file: %w", err)
		}
		return nil
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = make([]string, 0, n)
	l.texts = make([]string, 0, n)
	l.vectors = make([][]float32, 0, n)
	l.pos = make(map[string]int, n)
	vecBuf := make([]byte, l.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readString(f)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		text, err := readString(f)
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		l.pos[id] = len(l.ids)
		l.ids = append(l.ids, id)
		l.texts = append(l.texts, text)
		l.vectors = append(l.vectors, bytesToFloat32Slice(vecBuf))
	}
	return nil
}

// Upsert stores the documents and persists the snapshot. Existing IDs are
// overwritten in place so their insertion order is preserved.
func (l *LocalIndex) Upsert(ctx context.Context, docs []models.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("documents and embeddings length mismatch: %d vs %d", len(docs), len(embeddings))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, doc := range docs {
		if len(embeddings[i]) != l.dimensions {
			return fmt.Errorf("vector dimension mismatch for %q: got %d, expected %d", doc.ID, len(embeddings[i]), l.dimensions)
		}
		vec := make([]float32, l.dimensions)
		copy(vec, embeddings[i])
		if at, ok := l.pos[doc.ID]; ok {
			l.texts[at] = doc.Text
			l.vectors[at] = vec
			continue
		}
		l.pos[doc.ID] = len(l.ids)
		l.ids = append(l.ids, doc.ID)
		l.texts = append(l.texts, doc.Text)
		l.vectors = append(l.vectors, vec)
	}
	return l.persistLocked()
}

// Existing reports which IDs are already stored.
func (l *LocalIndex) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	found := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := l.pos[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

// Query scans all stored vectors and returns the top n by cosine similarity.
// Equal similarities keep insertion order.
func (l *LocalIndex) Query(ctx context.Context, query []float32, n int) ([]Candidate, error) {
	if len(query) != l.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), l.dimensions)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || len(l.ids) == 0 {
		return nil, nil
	}
	candidates := make([]Candidate, len(l.ids))
	for i, vec := range l.vectors {
		candidates[i] = Candidate{
			ID:     l.ids[i],
			Text:   l.texts[i],
			Vector: vec,
			Score:  float32(CosineSimilarity(query, vec)),
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n], nil
}

// Count returns the number of stored documents.
func (l *LocalIndex) Count(ctx context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.ids)), nil
}

// Health is always fine for an in-process index.
func (l *LocalIndex) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op; Upsert persists eagerly.
func (l *LocalIndex) Close() error {
	return nil
}

// persistLocked writes the snapshot. Format: dimensions (4), count (4), then
// per document: idLen (4), id, textLen (4), text, vector (dimensions*4),
// all little-endian. Caller must hold the write lock.
func (l *LocalIndex) persistLocked() error {
	if l.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(l.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(l.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range l.ids {
		if err := writeString(f, id); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeString(f, l.texts[i]); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(l.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
