package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/service"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchOutput), args.Error(1)
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, service.SearchInput{
		AssistantID: "deck-sales",
		Query:       "composite pricing",
		Category:    "pricing",
	}).Return(&service.SearchOutput{
		Results: []*domain.SearchResult{
			{
				Content:    "Composite decking starts at $45 per square foot installed.",
				Similarity: 87,
				Source:     "pricing.pdf",
				Category:   "pricing",
			},
		},
		Strategy: domain.StrategyVector,
	}, nil)

	body := `{"query":"composite pricing","category":"pricing"}`
	req := requestWithID(http.MethodPost, "/assistants/deck-sales/search", "deck-sales", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "vector", data["strategy"])
	results := data["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, float64(87), first["similarity"])
	assert.Equal(t, "pricing.pdf", first["source"])
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_NoResults(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return(&service.SearchOutput{
		Results:  []*domain.SearchResult{},
		Strategy: domain.StrategyNone,
	}, nil)

	body := `{"query":"unrelated topic"}`
	req := requestWithID(http.MethodPost, "/assistants/deck-sales/search", "deck-sales", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "none", data["strategy"])
	assert.Len(t, data["results"], 0)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_MissingQuery(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	body := `{"category":"pricing"}`
	req := requestWithID(http.MethodPost, "/assistants/deck-sales/search", "deck-sales", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query is required")
	mockSvc.AssertNotCalled(t, "Search")
}

func TestSearchHandler_Search_InvalidBody(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	req := requestWithID(http.MethodPost, "/assistants/deck-sales/search", "deck-sales", []byte("{not json"))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Search")
}

func TestSearchHandler_Search_ServiceError(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyQuery)

	body := `{"query":"   "}`
	req := requestWithID(http.MethodPost, "/assistants/deck-sales/search", "deck-sales", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertExpectations(t)
}
