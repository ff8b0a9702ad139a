package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/contentscout/contentscout/pkg/models"
)

// PgStore is a VectorStore backed by Postgres with the pgvector
// extension. It is the backend of choice when the index must outlive
// a single process or be shared across instances.
type PgStore struct {
	pool *pgxpool.Pool
	dim  int
}

// NewPgStore connects to the given database URL.
func NewPgStore(ctx context.Context, url string, dim int) (*PgStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &PgStore{pool: p, dim: dim}, nil
}

func (s *PgStore) Close() { s.pool.Close() }

// Migrate applies the schema. The seq column preserves insertion
// order for stable tie-breaking on equal scores.
func (s *PgStore) Migrate(ctx context.Context) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS corpus_chunks (
  id         TEXT PRIMARY KEY,
  seq        BIGSERIAL,
  text       TEXT NOT NULL,
  meta       JSONB NOT NULL DEFAULT '{}'::jsonb,
  embedding  vector(%d),
  created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE INDEX IF NOT EXISTS corpus_chunks_embedding_idx
  ON corpus_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, s.dim))
	return err
}

// Add upserts all pairs in a single transaction so a partial batch is
// never visible.
func (s *PgStore) Add(ctx context.Context, vecs [][]float32, chunks []models.Chunk) error {
	if len(vecs) != len(chunks) {
		return ErrLengthMismatch
	}
	for _, v := range vecs {
		if len(v) != s.dim {
			return fmt.Errorf("%w: got %d, store is %d", ErrDimensionMismatch, len(v), s.dim)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO corpus_chunks (id, text, meta, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			text      = EXCLUDED.text,
			meta      = EXCLUDED.meta,
			embedding = EXCLUDED.embedding;`

	for i, c := range chunks {
		meta, err := json.Marshal(c.Meta)
		if err != nil {
			return fmt.Errorf("store: encoding meta for %s: %w", c.ID, err)
		}
		if _, err := tx.Exec(ctx, q, c.ID, c.Text, meta, pgvector.NewVector(vecs[i])); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Save is a no-op: writes are durable as soon as Add commits.
func (s *PgStore) Save(ctx context.Context) error { return nil }

// Search runs a cosine similarity query. Over unit vectors this
// matches the file store's inner product ordering.
func (s *PgStore) Search(ctx context.Context, query []float32, k int) ([]models.SearchResult, error) {
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query is %d, store is %d", ErrDimensionMismatch, len(query), s.dim)
	}
	if k <= 0 {
		return []models.SearchResult{}, nil
	}

	const q = `
		SELECT id, text, meta,
		       1 - (embedding <=> $1) AS score
		FROM corpus_chunks
		ORDER BY score DESC, seq ASC
		LIMIT $2;`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(query), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.SearchResult{}
	for rows.Next() {
		var (
			c     models.Chunk
			meta  []byte
			score float64
		)
		if err := rows.Scan(&c.ID, &c.Text, &meta, &score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &c.Meta); err != nil {
			return nil, fmt.Errorf("store: decoding meta for %s: %w", c.ID, err)
		}
		out = append(out, models.SearchResult{Chunk: c, Score: score})
	}
	return out, rows.Err()
}

// Len counts stored chunks.
func (s *PgStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM corpus_chunks").Scan(&n)
	return n, err
}

// Dim reports the vector dimensionality.
func (s *PgStore) Dim() int { return s.dim }

// GetChunk fetches a single chunk by id.
func (s *PgStore) GetChunk(ctx context.Context, id string) (models.Chunk, bool, error) {
	const q = `SELECT id, text, meta FROM corpus_chunks WHERE id = $1 LIMIT 1`
	var (
		c    models.Chunk
		meta []byte
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.Text, &meta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Chunk{}, false, nil
		}
		return models.Chunk{}, false, err
	}
	if err := json.Unmarshal(meta, &c.Meta); err != nil {
		return models.Chunk{}, false, err
	}
	return c, true, nil
}

// Ping checks database connectivity.
func (s *PgStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
