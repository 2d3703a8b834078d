//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/service"
	"github.com/legacy-decks/deckhand/internal/testutil"
)

func testAssistant() *domain.Assistant {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Assistant{
		ID:               uuid.NewString(),
		Name:             "Deck Sales",
		Description:      "Answers customer questions about decks",
		SystemPrompt:     "You are a deck sales assistant.",
		ContactName:      "Legacy Decks",
		KnowledgeEnabled: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestAssistantRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAssistantRepository(pool)

	a := testAssistant()
	require.NoError(t, repo.Create(ctx, a))

	retrieved, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, retrieved.ID)
	assert.Equal(t, a.Name, retrieved.Name)
	assert.Equal(t, a.ContactName, retrieved.ContactName)
	assert.True(t, retrieved.KnowledgeEnabled)
}

func TestAssistantRepository_GetByID_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAssistantRepository(pool)

	a := testAssistant()
	a.ID = "Deck-Sales"
	require.NoError(t, repo.Create(ctx, a))

	retrieved, err := repo.GetByID(ctx, "deck-sales")
	require.NoError(t, err)
	assert.Equal(t, "Deck-Sales", retrieved.ID)
}

func TestAssistantRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAssistantRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrAssistantNotFound)
}

func TestAssistantRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAssistantRepository(pool)

	first := testAssistant()
	require.NoError(t, repo.Create(ctx, first))

	second := testAssistant()
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	require.NoError(t, repo.Create(ctx, second))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestAssistantRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAssistantRepository(pool)

	a := testAssistant()
	require.NoError(t, repo.Create(ctx, a))

	a.Name = "Deck Support"
	a.KnowledgeEnabled = false
	require.NoError(t, repo.Update(ctx, a))

	retrieved, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deck Support", retrieved.Name)
	assert.False(t, retrieved.KnowledgeEnabled)
}

func TestAssistantRepository_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAssistantRepository(pool)

	a := testAssistant()
	err := repo.Update(ctx, a)
	assert.ErrorIs(t, err, domain.ErrAssistantNotFound)
}

func TestAssistantRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewAssistantRepository(pool)

	a := testAssistant()
	require.NoError(t, repo.Create(ctx, a))

	require.NoError(t, repo.Delete(ctx, a.ID))

	_, err := repo.GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrAssistantNotFound)
}

func TestSearchLogRepository_CreateSearchLog(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)

	id, err := repo.CreateSearchLog(ctx, service.SearchLogEntry{
		AssistantID:   "deck-sales",
		Query:         "what is the warranty",
		Strategy:      domain.StrategyVector,
		ResultCount:   3,
		TopSimilarity: 87,
		DurationMs:    42,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
