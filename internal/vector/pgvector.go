package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/arielhalevy123/revsearch/internal/config"
	"github.com/arielhalevy123/revsearch/internal/models"
)

// PgvectorIndex stores documents in a Postgres table with a pgvector column
// and an ivfflat cosine index. The collection name doubles as the table name.
type PgvectorIndex struct {
	pool       *pgxpool.Pool
	table      string
	dimensions int
}

// NewPgvectorIndex connects to Postgres and registers the pgvector types on
// every pooled connection. The table is not touched until Ensure is called.
func NewPgvectorIndex(ctx context.Context, cfg *config.PostgresConfig, collection string, dimensions int) (*PgvectorIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres URL is required (set index.postgres.url or DATABASE_URL)")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres URL: %w", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &PgvectorIndex{
		pool:       pool,
		table:      collection,
		dimensions: dimensions,
	}, nil
}

// Ensure creates the table and its cosine ivfflat index. An existing table
// whose embedding column already has the right dimensions is left untouched;
// on mismatch the table is dropped and recreated.
func (p *PgvectorIndex) Ensure(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	var exists bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
		p.table,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check table %s: %w", p.table, err)
	}
	if exists {
		// vector(n) stores its dimension count as the column's type modifier.
		var dims int
		err := p.pool.QueryRow(ctx,
			"SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'",
			p.table,
		).Scan(&dims)
		if err != nil {
			return fmt.Errorf("inspect table %s: %w", p.table, err)
		}
		if dims == p.dimensions {
			return nil
		}
		if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE %s", p.table)); err != nil {
			return fmt.Errorf("drop mismatched table %s: %w", p.table, err)
		}
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE %s (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			embedding vector(%d)
		)`, p.table, p.dimensions)
	if _, err := p.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX %s_embedding_idx ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`, p.table, p.table)
	if _, err := p.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("create index on %s: %w", p.table, err)
	}
	return nil
}

// Upsert inserts or replaces documents in a single batch round trip.
func (p *PgvectorIndex) Upsert(ctx context.Context, docs []models.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("documents and embeddings length mismatch: %d vs %d", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, text, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, embedding = EXCLUDED.embedding`,
		p.table)

	batch := &pgx.Batch{}
	for i, doc := range docs {
		batch.Queue(query, doc.ID, doc.Text, pgvector.NewVector(embeddings[i]))
	}
	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert into %s: %w", p.table, err)
		}
	}
	return nil
}

// Existing reports which of the given document IDs are already stored.
func (p *PgvectorIndex) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := p.pool.Query(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE id = ANY($1)", p.table), ids)
	if err != nil {
		return nil, fmt.Errorf("select existing ids from %s: %w", p.table, err)
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing ids: %w", err)
	}
	return found, nil
}

// Query returns the top n rows by cosine similarity, including the stored
// embeddings so callers can re-rank exactly.
func (p *PgvectorIndex) Query(ctx context.Context, vector []float32, n int) ([]Candidate, error) {
	if n <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, text, embedding, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, p.table)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), n)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.table, err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var (
			id         string
			text       string
			embedding  pgvector.Vector
			similarity float64
		)
		if err := rows.Scan(&id, &text, &embedding, &similarity); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, Candidate{
			ID:     id,
			Text:   text,
			Vector: embedding.Slice(),
			Score:  float32(similarity),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}

// Count returns the number of stored documents.
func (p *PgvectorIndex) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", p.table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", p.table, err)
	}
	return count, nil
}

// Health pings the database.
func (p *PgvectorIndex) Health(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *PgvectorIndex) Close() error {
	p.pool.Close()
	return nil
}
