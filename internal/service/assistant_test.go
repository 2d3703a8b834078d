package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/legacy-decks/deckhand/internal/domain"
)

func TestAssistantService_Create_WithSlugID(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Assistant) bool {
		return a.ID == "deck-sales" && a.Name == "Deck Sales" && a.KnowledgeEnabled
	})).Return(nil)

	assistant, err := svc.Create(context.Background(), CreateAssistantInput{
		ID:               "deck-sales",
		Name:             "Deck Sales",
		ContactName:      "Legacy Decks",
		KnowledgeEnabled: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "deck-sales", assistant.ID)
	assert.False(t, assistant.CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestAssistantService_Create_AssignsUUIDWhenIDEmpty(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantServiceWithUUIDGen(repo, &fixedUUIDGen{ids: []string{"generated-id"}})

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	assistant, err := svc.Create(context.Background(), CreateAssistantInput{Name: "Deck Sales"})

	require.NoError(t, err)
	assert.Equal(t, "generated-id", assistant.ID)
}

func TestAssistantService_Create_MissingName(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	assistant, err := svc.Create(context.Background(), CreateAssistantInput{ID: "deck-sales"})

	assert.Nil(t, assistant)
	assert.ErrorContains(t, err, "Name is required")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAssistantService_Create_RepositoryError(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrAssistantAlreadyExists)

	assistant, err := svc.Create(context.Background(), CreateAssistantInput{
		ID:   "deck-sales",
		Name: "Deck Sales",
	})

	assert.Nil(t, assistant)
	assert.Equal(t, domain.ErrAssistantAlreadyExists, err)
}

func TestAssistantService_Update_Success(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	existing := &domain.Assistant{ID: "deck-sales", Name: "Old Name", KnowledgeEnabled: true}
	repo.On("GetByID", mock.Anything, "deck-sales").Return(existing, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(a *domain.Assistant) bool {
		return a.Name == "New Name" && !a.KnowledgeEnabled && !a.UpdatedAt.IsZero()
	})).Return(nil)

	assistant, err := svc.Update(context.Background(), UpdateAssistantInput{
		ID:               "deck-sales",
		Name:             "New Name",
		KnowledgeEnabled: false,
	})

	require.NoError(t, err)
	assert.Equal(t, "New Name", assistant.Name)
	repo.AssertExpectations(t)
}

func TestAssistantService_Update_NotFound(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	repo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrAssistantNotFound)

	assistant, err := svc.Update(context.Background(), UpdateAssistantInput{ID: "missing", Name: "X"})

	assert.Nil(t, assistant)
	assert.Equal(t, domain.ErrAssistantNotFound, err)
}

func TestAssistantService_Update_ClearingNameRejected(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	existing := &domain.Assistant{ID: "deck-sales", Name: "Deck Sales"}
	repo.On("GetByID", mock.Anything, "deck-sales").Return(existing, nil)

	_, err := svc.Update(context.Background(), UpdateAssistantInput{ID: "deck-sales"})

	assert.ErrorContains(t, err, "Name is required")
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAssistantService_GetByID(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	existing := &domain.Assistant{ID: "deck-sales", Name: "Deck Sales"}
	repo.On("GetByID", mock.Anything, "deck-sales").Return(existing, nil)

	assistant, err := svc.GetByID(context.Background(), "deck-sales")

	require.NoError(t, err)
	assert.Equal(t, existing, assistant)
}

func TestAssistantService_List(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	repo.On("List", mock.Anything).Return([]*domain.Assistant{
		{ID: "deck-sales", Name: "Deck Sales"},
		{ID: "deck-support", Name: "Deck Support"},
	}, nil)

	assistants, err := svc.List(context.Background())

	require.NoError(t, err)
	assert.Len(t, assistants, 2)
}

func TestAssistantService_Delete(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	repo.On("Delete", mock.Anything, "deck-sales").Return(nil)

	assert.NoError(t, svc.Delete(context.Background(), "deck-sales"))
	repo.AssertExpectations(t)
}

func TestAssistantService_Delete_RepositoryError(t *testing.T) {
	repo := new(MockAssistantRepository)
	svc := NewAssistantService(repo)

	repo.On("Delete", mock.Anything, "deck-sales").Return(errors.New("connection reset"))

	assert.Error(t, svc.Delete(context.Background(), "deck-sales"))
}
