package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legacy-decks/deckhand/internal/api"
	"github.com/legacy-decks/deckhand/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query       string `json:"query"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

type SearchResultResponse struct {
	Content     string `json:"content"`
	Similarity  int    `json:"similarity"`
	Source      string `json:"source"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
}

type SearchResponse struct {
	Results  []SearchResultResponse `json:"results"`
	Strategy string                 `json:"strategy"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "assistant id is required")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	out, err := h.svc.Search(r.Context(), service.SearchInput{
		AssistantID: assistantID,
		Query:       req.Query,
		Category:    req.Category,
		Subcategory: req.Subcategory,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]SearchResultResponse, len(out.Results))
	for i, res := range out.Results {
		results[i] = SearchResultResponse{
			Content:     res.Content,
			Similarity:  res.Similarity,
			Source:      res.Source,
			Category:    res.Category,
			Subcategory: res.Subcategory,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Results:  results,
		Strategy: string(out.Strategy),
	})
}
