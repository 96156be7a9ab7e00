package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingCacheRepository is the durable mirror of the in-memory
// embedding cache. It lets a restarted process reuse embeddings already
// paid for.
type EmbeddingCacheRepository struct {
	pool *pgxpool.Pool
}

func NewEmbeddingCacheRepository(pool *pgxpool.Pool) *EmbeddingCacheRepository {
	return &EmbeddingCacheRepository{pool: pool}
}

// Load returns the mirrored vector and its expiry, or (nil, zero, nil)
// when the key is absent.
func (r *EmbeddingCacheRepository) Load(ctx context.Context, key string) ([]float32, time.Time, error) {
	var embedding pgvector.Vector
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT embedding, expires_at FROM embedding_cache WHERE key = $1`,
		key,
	).Scan(&embedding, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, err
	}
	return embedding.Slice(), expiresAt, nil
}

// Save upserts one cache entry.
func (r *EmbeddingCacheRepository) Save(ctx context.Context, key, model string, vector []float32, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO embedding_cache (key, model, embedding, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET
			model = EXCLUDED.model,
			embedding = EXCLUDED.embedding,
			expires_at = EXCLUDED.expires_at`,
		key, model, pgvector.NewVector(vector), expiresAt,
	)
	return err
}

// DeleteExpired evicts entries whose lifetime has passed and returns how
// many were removed.
func (r *EmbeddingCacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM embedding_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
