package service

import (
	"context"
	"time"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/telemetry"
)

// AssistantRepository defines the repository interface for assistant persistence
type AssistantRepository interface {
	Create(ctx context.Context, a *domain.Assistant) error
	GetByID(ctx context.Context, id string) (*domain.Assistant, error)
	List(ctx context.Context) ([]*domain.Assistant, error)
	Update(ctx context.Context, a *domain.Assistant) error
	Delete(ctx context.Context, id string) error
}

// AssistantService handles business logic for assistants
type AssistantService struct {
	repo    AssistantRepository
	uuidGen UUIDGenerator
}

// NewAssistantService creates a new AssistantService instance
func NewAssistantService(repo AssistantRepository) *AssistantService {
	return &AssistantService{
		repo:    repo,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewAssistantServiceWithUUIDGen creates a new AssistantService with custom UUID generator (for testing)
func NewAssistantServiceWithUUIDGen(repo AssistantRepository, uuidGen UUIDGenerator) *AssistantService {
	return &AssistantService{
		repo:    repo,
		uuidGen: uuidGen,
	}
}

// CreateAssistantInput represents the input for creating an assistant
type CreateAssistantInput struct {
	ID               string
	Name             string
	Description      string
	SystemPrompt     string
	ContactName      string
	KnowledgeEnabled bool
}

// UpdateAssistantInput represents the input for updating an assistant
type UpdateAssistantInput struct {
	ID               string
	Name             string
	Description      string
	SystemPrompt     string
	ContactName      string
	KnowledgeEnabled bool
}

// Create creates a new assistant. The ID may be a caller-chosen slug; when
// empty a UUID is assigned.
func (s *AssistantService) Create(ctx context.Context, input CreateAssistantInput) (*domain.Assistant, error) {
	ctx, span := telemetry.StartSpan(ctx, "AssistantService.Create", telemetry.SpanAttributes{
		AssistantID: input.ID,
		Operation:   "create",
	})
	defer span.End()

	id := input.ID
	if id == "" {
		id = s.uuidGen.NewString()
	}

	now := time.Now().UTC()
	assistant := &domain.Assistant{
		ID:               id,
		Name:             input.Name,
		Description:      input.Description,
		SystemPrompt:     input.SystemPrompt,
		ContactName:      input.ContactName,
		KnowledgeEnabled: input.KnowledgeEnabled,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := domain.ValidateAssistant(assistant); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, assistant); err != nil {
		return nil, err
	}

	return assistant, nil
}

// GetByID retrieves an assistant by ID
func (s *AssistantService) GetByID(ctx context.Context, id string) (*domain.Assistant, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all assistants
func (s *AssistantService) List(ctx context.Context) ([]*domain.Assistant, error) {
	return s.repo.List(ctx)
}

// Update replaces the mutable fields of an assistant
func (s *AssistantService) Update(ctx context.Context, input UpdateAssistantInput) (*domain.Assistant, error) {
	ctx, span := telemetry.StartSpan(ctx, "AssistantService.Update", telemetry.SpanAttributes{
		AssistantID: input.ID,
		Operation:   "update",
	})
	defer span.End()

	assistant, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	assistant.Name = input.Name
	assistant.Description = input.Description
	assistant.SystemPrompt = input.SystemPrompt
	assistant.ContactName = input.ContactName
	assistant.KnowledgeEnabled = input.KnowledgeEnabled
	assistant.UpdatedAt = time.Now().UTC()

	if err := domain.ValidateAssistant(assistant); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, assistant); err != nil {
		return nil, err
	}

	return assistant, nil
}

// Delete removes an assistant
func (s *AssistantService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "AssistantService.Delete", telemetry.SpanAttributes{
		AssistantID: id,
		Operation:   "delete",
	})
	defer span.End()

	return s.repo.Delete(ctx, id)
}
