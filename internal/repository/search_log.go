package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legacy-decks/deckhand/internal/service"
)

// SearchLogRepository stores retrieval outcomes for tuning the ranking.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (assistant_id, query, strategy, result_count, top_similarity, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.AssistantID,
		entry.Query,
		string(entry.Strategy),
		entry.ResultCount,
		entry.TopSimilarity,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
