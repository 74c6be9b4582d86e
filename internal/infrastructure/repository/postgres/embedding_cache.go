package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingCacheRepository is the persistent second level of the embedding cache.
// Rows are keyed by content hash, which already covers the model name.
type EmbeddingCacheRepository struct {
	db *sql.DB
}

func NewEmbeddingCacheRepository(db *sql.DB) *EmbeddingCacheRepository {
	return &EmbeddingCacheRepository{db: db}
}

func (r *EmbeddingCacheRepository) GetEmbeddings(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	w := &whereBuilder{}
	w.in("content_hash", keys)
	rows, err := r.db.QueryContext(ctx, "SELECT content_hash, embedding\nFROM embedding_cache\n"+w.sql(), w.args...)
	if err != nil {
		return nil, fmt.Errorf("get embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var vec pgvector.Vector
		if err := rows.Scan(&key, &vec); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out[key] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return out, nil
}

func (r *EmbeddingCacheRepository) PutEmbeddings(ctx context.Context, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	values := make([]string, 0, len(vectors))
	args := make([]any, 0, 2*len(vectors))
	for key, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		args = append(args, key, pgvector.NewVector(vec))
		values = append(values, fmt.Sprintf("($%d,$%d)", len(args)-1, len(args)))
	}
	if len(values) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO embedding_cache (content_hash, embedding)
VALUES `+strings.Join(values, ",")+`
ON CONFLICT (content_hash) DO NOTHING
`, args...)
	if err != nil {
		return fmt.Errorf("put embeddings: %w", err)
	}
	return nil
}
