package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/service"
)

type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) Create(ctx context.Context, input service.CreateAssistantInput) (*domain.Assistant, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assistant), args.Error(1)
}

func (m *MockAssistantService) GetByID(ctx context.Context, id string) (*domain.Assistant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assistant), args.Error(1)
}

func (m *MockAssistantService) List(ctx context.Context) ([]*domain.Assistant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Assistant), args.Error(1)
}

func (m *MockAssistantService) Update(ctx context.Context, input service.UpdateAssistantInput) (*domain.Assistant, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assistant), args.Error(1)
}

func (m *MockAssistantService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// requestWithID builds a request carrying a chi "id" route parameter.
func requestWithID(method, target, id string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newTestAssistant() *domain.Assistant {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Assistant{
		ID:               "deck-sales",
		Name:             "Deck Sales",
		Description:      "Answers deck sales questions",
		SystemPrompt:     "You are a deck sales assistant.",
		ContactName:      "Mike",
		KnowledgeEnabled: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestAssistantHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	expected := newTestAssistant()
	mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(input service.CreateAssistantInput) bool {
		return input.ID == "deck-sales" && input.Name == "Deck Sales" && input.KnowledgeEnabled
	})).Return(expected, nil)

	body := `{"id":"deck-sales","name":"Deck Sales","contact_name":"Mike"}`
	req := httptest.NewRequest(http.MethodPost, "/assistants", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "deck-sales", data["id"])
	assert.Equal(t, "2025-06-01T12:00:00Z", data["created_at"])
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_Create_KnowledgeDisabled(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	expected := newTestAssistant()
	expected.KnowledgeEnabled = false
	mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(input service.CreateAssistantInput) bool {
		return !input.KnowledgeEnabled
	})).Return(expected, nil)

	body := `{"id":"deck-sales","name":"Deck Sales","knowledge_enabled":false}`
	req := httptest.NewRequest(http.MethodPost, "/assistants", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_Create_MissingName(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	body := `{"id":"deck-sales"}`
	req := httptest.NewRequest(http.MethodPost, "/assistants", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
	mockSvc.AssertNotCalled(t, "Create")
}

func TestAssistantHandler_Create_Conflict(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, domain.ErrAssistantAlreadyExists)

	body := `{"id":"deck-sales","name":"Deck Sales"}`
	req := httptest.NewRequest(http.MethodPost, "/assistants", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "deck-sales").Return(newTestAssistant(), nil)

	req := requestWithID(http.MethodGet, "/assistants/deck-sales", "deck-sales", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Deck Sales", data["name"])
	assert.Equal(t, "Mike", data["contact_name"])
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrAssistantNotFound)

	req := requestWithID(http.MethodGet, "/assistants/missing", "missing", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_List_Success(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	mockSvc.On("List", mock.Anything).Return([]*domain.Assistant{newTestAssistant()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/assistants", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp["data"].([]interface{})
	assert.Len(t, data, 1)
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_Update_Success(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	updated := newTestAssistant()
	updated.Name = "Deck Sales East"
	mockSvc.On("Update", mock.Anything, mock.MatchedBy(func(input service.UpdateAssistantInput) bool {
		return input.ID == "deck-sales" && input.Name == "Deck Sales East"
	})).Return(updated, nil)

	body := `{"name":"Deck Sales East","knowledge_enabled":true}`
	req := requestWithID(http.MethodPut, "/assistants/deck-sales", "deck-sales", []byte(body))
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Deck Sales East", data["name"])
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_Update_MissingName(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	body := `{"description":"only a description"}`
	req := requestWithID(http.MethodPut, "/assistants/deck-sales", "deck-sales", []byte(body))
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Update")
}

func TestAssistantHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "deck-sales").Return(nil)

	req := requestWithID(http.MethodDelete, "/assistants/deck-sales", "deck-sales", nil)
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAssistantHandler_Delete_NotFound(t *testing.T) {
	mockSvc := new(MockAssistantService)
	handler := NewAssistantHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "missing").Return(domain.ErrAssistantNotFound)

	req := requestWithID(http.MethodDelete, "/assistants/missing", "missing", nil)
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}
