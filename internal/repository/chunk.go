package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/pagination"
	"github.com/legacy-decks/deckhand/internal/service"
)

// ChunkRepository handles persistence of knowledge chunks and their
// embeddings. Assistant IDs are matched case-insensitively.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

const chunkColumns = `id, assistant_id, category, subcategory, content, embedding, metadata, created_at`

func (r *ChunkRepository) Create(ctx context.Context, c *domain.KnowledgeChunk) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_chunks (id, assistant_id, category, subcategory, content, embedding, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID,
		c.AssistantID,
		nullableString(c.Category),
		nullableString(c.Subcategory),
		c.Content,
		vectorValue(c.Embedding),
		c.Metadata,
		createdAt,
	)
	return err
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeChunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM knowledge_chunks WHERE id = $1`,
		id,
	)
	c, err := scanChunkRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListByAssistant returns all of an assistant's chunks, optionally narrowed
// by category and subcategory.
func (r *ChunkRepository) ListByAssistant(ctx context.Context, assistantID string, filters service.ChunkFilters) ([]*domain.KnowledgeChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM knowledge_chunks WHERE LOWER(assistant_id) = LOWER($1)`
	args := []any{assistantID}

	if filters.Category != "" {
		args = append(args, filters.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if filters.Subcategory != "" {
		args = append(args, filters.Subcategory)
		query += fmt.Sprintf(` AND subcategory = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) ListWithCursor(ctx context.Context, assistantID string, cursor *pagination.Cursor, limit int) (*service.ChunkPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+chunkColumns+`
			 FROM knowledge_chunks
			 WHERE LOWER(assistant_id) = LOWER($1) AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			assistantID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+chunkColumns+`
			 FROM knowledge_chunks
			 WHERE LOWER(assistant_id) = LOWER($1)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			assistantID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanChunkRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.ChunkPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// SearchByEmbedding ranks an assistant's embedded chunks against the query
// vector inside Postgres using the pgvector cosine distance operator. It
// honors the same contract as the in-process ranker: similarity at or above
// service.VectorSimilarityThreshold, at most service.VectorMaxResults
// matches, best first, percentage = round(similarity * 100).
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, assistantID string, queryVector []float32, filters service.ChunkFilters) ([]*domain.SearchResult, error) {
	vec := pgvector.NewVector(queryVector)

	query := `SELECT ` + chunkColumns + `, 1 - (embedding <=> $2) AS similarity
		 FROM knowledge_chunks
		 WHERE LOWER(assistant_id) = LOWER($1)
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $2) >= $3`
	args := []any{assistantID, vec, service.VectorSimilarityThreshold}

	if filters.Category != "" {
		args = append(args, filters.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if filters.Subcategory != "" {
		args = append(args, filters.Subcategory)
		query += fmt.Sprintf(` AND subcategory = $%d`, len(args))
	}

	args = append(args, service.VectorMaxResults)
	query += fmt.Sprintf(` ORDER BY embedding <=> $2 LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.SearchResult
	for rows.Next() {
		var c domain.KnowledgeChunk
		var category, subcategory *string
		var embedding *pgvector.Vector
		var similarity float64
		if err := rows.Scan(&c.ID, &c.AssistantID, &category, &subcategory, &c.Content, &embedding, &c.Metadata, &c.CreatedAt, &similarity); err != nil {
			return nil, err
		}
		if category != nil {
			c.Category = *category
		}
		if subcategory != nil {
			c.Subcategory = *subcategory
		}
		if embedding != nil {
			c.Embedding = embedding.Slice()
		}
		results = append(results, domain.NewSearchResult(&c, int(math.Round(similarity*100))))
	}
	return results, rows.Err()
}

func (r *ChunkRepository) Update(ctx context.Context, c *domain.KnowledgeChunk) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET category = $1, subcategory = $2, content = $3, embedding = $4, metadata = $5
		 WHERE id = $6`,
		nullableString(c.Category),
		nullableString(c.Subcategory),
		c.Content,
		vectorValue(c.Embedding),
		c.Metadata,
		c.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET embedding = $1 WHERE id = $2`,
		vectorValue(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// ListMissingEmbeddings returns chunks that still need a vector, oldest first.
func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeChunk, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`
		 FROM knowledge_chunks
		 WHERE embedding IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

type chunkScanner interface {
	Scan(dest ...any) error
}

func scanChunkRow(row chunkScanner) (*domain.KnowledgeChunk, error) {
	var c domain.KnowledgeChunk
	var category, subcategory *string
	var embedding *pgvector.Vector
	if err := row.Scan(&c.ID, &c.AssistantID, &category, &subcategory, &c.Content, &embedding, &c.Metadata, &c.CreatedAt); err != nil {
		return nil, err
	}
	if category != nil {
		c.Category = *category
	}
	if subcategory != nil {
		c.Subcategory = *subcategory
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return &c, nil
}

func scanChunkRows(rows pgx.Rows) ([]*domain.KnowledgeChunk, error) {
	var results []*domain.KnowledgeChunk
	for rows.Next() {
		c, err := scanChunkRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// vectorValue converts an embedding to its column value, preserving NULL for
// chunks awaiting backfill.
func vectorValue(embedding []float32) any {
	if embedding == nil {
		return nil
	}
	return pgvector.NewVector(embedding)
}
