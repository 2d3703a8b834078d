package service

import (
	"context"

	"github.com/legacy-decks/deckhand/internal/domain"
)

// SearchLogEntry captures a retrieval request and its outcome.
type SearchLogEntry struct {
	AssistantID   string
	Query         string
	Strategy      domain.SearchStrategy
	ResultCount   int
	TopSimilarity int
	DurationMs    int
}

// SearchLogRepository persists search logs.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}
