package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legacy-decks/deckhand/internal/api"
	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/service"
)

type AssistantService interface {
	Create(ctx context.Context, input service.CreateAssistantInput) (*domain.Assistant, error)
	GetByID(ctx context.Context, id string) (*domain.Assistant, error)
	List(ctx context.Context) ([]*domain.Assistant, error)
	Update(ctx context.Context, input service.UpdateAssistantInput) (*domain.Assistant, error)
	Delete(ctx context.Context, id string) error
}

type AssistantHandler struct {
	svc AssistantService
}

func NewAssistantHandler(svc AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

type CreateAssistantRequest struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	SystemPrompt     string `json:"system_prompt"`
	ContactName      string `json:"contact_name"`
	KnowledgeEnabled *bool  `json:"knowledge_enabled"`
}

type UpdateAssistantRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	SystemPrompt     string `json:"system_prompt"`
	ContactName      string `json:"contact_name"`
	KnowledgeEnabled bool   `json:"knowledge_enabled"`
}

type AssistantResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	SystemPrompt     string `json:"system_prompt"`
	ContactName      string `json:"contact_name"`
	KnowledgeEnabled bool   `json:"knowledge_enabled"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func assistantToResponse(a *domain.Assistant) *AssistantResponse {
	return &AssistantResponse{
		ID:               a.ID,
		Name:             a.Name,
		Description:      a.Description,
		SystemPrompt:     a.SystemPrompt,
		ContactName:      a.ContactName,
		KnowledgeEnabled: a.KnowledgeEnabled,
		CreatedAt:        a.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:        a.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *AssistantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	// Knowledge retrieval is on unless explicitly disabled.
	knowledgeEnabled := true
	if req.KnowledgeEnabled != nil {
		knowledgeEnabled = *req.KnowledgeEnabled
	}

	assistant, err := h.svc.Create(r.Context(), service.CreateAssistantInput{
		ID:               req.ID,
		Name:             req.Name,
		Description:      req.Description,
		SystemPrompt:     req.SystemPrompt,
		ContactName:      req.ContactName,
		KnowledgeEnabled: knowledgeEnabled,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, assistantToResponse(assistant))
}

func (h *AssistantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	assistant, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, assistantToResponse(assistant))
}

func (h *AssistantHandler) List(w http.ResponseWriter, r *http.Request) {
	assistants, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*AssistantResponse, len(assistants))
	for i, a := range assistants {
		responses[i] = assistantToResponse(a)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *AssistantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateAssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	assistant, err := h.svc.Update(r.Context(), service.UpdateAssistantInput{
		ID:               id,
		Name:             req.Name,
		Description:      req.Description,
		SystemPrompt:     req.SystemPrompt,
		ContactName:      req.ContactName,
		KnowledgeEnabled: req.KnowledgeEnabled,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, assistantToResponse(assistant))
}

func (h *AssistantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
