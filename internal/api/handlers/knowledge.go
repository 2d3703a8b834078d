package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/legacy-decks/deckhand/internal/api"
	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/service"
)

type IndexingService interface {
	IndexDocument(ctx context.Context, input service.IndexDocumentInput) (*domain.KnowledgeChunk, error)
	IndexLargeDocument(ctx context.Context, input service.IndexDocumentInput, cfg service.SplitConfig) ([]*domain.KnowledgeChunk, error)
	GetChunk(ctx context.Context, id string) (*domain.KnowledgeChunk, error)
	ListChunks(ctx context.Context, input service.ListChunksInput) (*service.ChunkPageResult, error)
	UpdateChunk(ctx context.Context, input service.UpdateChunkInput) (*domain.KnowledgeChunk, error)
	DeleteChunk(ctx context.Context, id string) error
}

// DocumentStore serves presigned links for archived source documents. Nil
// when the deployment has no object storage.
type DocumentStore interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type KnowledgeHandler struct {
	svc       IndexingService
	documents DocumentStore
}

func NewKnowledgeHandler(svc IndexingService, documents DocumentStore) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc, documents: documents}
}

type IndexDocumentRequest struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Content     string `json:"content"`
	Filename    string `json:"filename"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	FileType    string `json:"file_type"`
	// DocumentBase64 carries the raw uploaded file for archival.
	DocumentBase64 string `json:"document_base64"`
	// Split breaks oversized content into overlapping chunks.
	Split bool `json:"split"`
}

// UpdateChunkRequest rewrites a chunk in place. Omitting metadata keeps the
// stored metadata; sending it replaces the whole map.
type UpdateChunkRequest struct {
	Category    string         `json:"category"`
	Subcategory string         `json:"subcategory"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type ChunkResponse struct {
	ID           string         `json:"id"`
	AssistantID  string         `json:"assistant_id"`
	Category     string         `json:"category,omitempty"`
	Subcategory  string         `json:"subcategory,omitempty"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	HasEmbedding bool           `json:"has_embedding"`
	CreatedAt    string         `json:"created_at"`
}

func chunkToResponse(c *domain.KnowledgeChunk) *ChunkResponse {
	return &ChunkResponse{
		ID:           c.ID,
		AssistantID:  c.AssistantID,
		Category:     c.Category,
		Subcategory:  c.Subcategory,
		Content:      c.Content,
		Metadata:     c.Metadata,
		HasEmbedding: len(c.Embedding) > 0,
		CreatedAt:    c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KnowledgeHandler) Index(w http.ResponseWriter, r *http.Request) {
	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "assistant id is required")
		return
	}

	var req IndexDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	var raw []byte
	if req.DocumentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.DocumentBase64)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid document encoding")
			return
		}
		raw = decoded
	}

	input := service.IndexDocumentInput{
		AssistantID: assistantID,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Content:     req.Content,
		Filename:    req.Filename,
		Title:       req.Title,
		Source:      req.Source,
		FileType:    req.FileType,
		FileSize:    int64(len(raw)),
		Raw:         raw,
	}

	if req.Split {
		chunks, err := h.svc.IndexLargeDocument(r.Context(), input, service.DefaultSplitConfig())
		if err != nil {
			api.HandleError(w, err)
			return
		}
		responses := make([]*ChunkResponse, len(chunks))
		for i, c := range chunks {
			responses[i] = chunkToResponse(c)
		}
		api.Success(w, http.StatusCreated, responses)
		return
	}

	chunk, err := h.svc.IndexDocument(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, chunkToResponse(chunk))
}

type ChunkListResponse struct {
	Items   []*ChunkResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "assistant id is required")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.ListChunks(r.Context(), service.ListChunksInput{
		AssistantID: assistantID,
		Cursor:      cursor,
		Limit:       limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ChunkResponse, len(page.Items))
	for i, c := range page.Items {
		responses[i] = chunkToResponse(c)
	}

	api.Success(w, http.StatusOK, ChunkListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	chunk, err := h.svc.GetChunk(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chunkToResponse(chunk))
}

func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	chunk, err := h.svc.UpdateChunk(r.Context(), service.UpdateChunkInput{
		ID:          id,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Content:     req.Content,
		Metadata:    req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chunkToResponse(chunk))
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	chunk, err := h.svc.GetChunk(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.svc.DeleteChunk(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	// Archived source document is cleaned up best-effort.
	if h.documents != nil {
		if key := documentKey(chunk); key != "" {
			_ = h.documents.DeleteObject(r.Context(), key)
		}
	}

	api.JSON(w, http.StatusNoContent, nil)
}

type DocumentURLResponse struct {
	URL string `json:"url"`
}

// Document returns a presigned download link for the chunk's archived source
// document.
func (h *KnowledgeHandler) Document(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if h.documents == nil {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}

	chunk, err := h.svc.GetChunk(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	key := documentKey(chunk)
	if key == "" {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}

	url, err := h.documents.GenerateDownloadURL(r.Context(), key)
	if err != nil {
		api.HandleError(w, domain.ErrStorageOperationFail)
		return
	}

	api.Success(w, http.StatusOK, DocumentURLResponse{URL: url})
}

func documentKey(c *domain.KnowledgeChunk) string {
	filename := c.MetaString(domain.MetaKeyFilename)
	if filename == "" {
		return ""
	}
	return c.AssistantID + "/" + c.ID + "/" + filename
}
