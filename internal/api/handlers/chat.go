package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legacy-decks/deckhand/internal/api"
	"github.com/legacy-decks/deckhand/internal/openai"
	"github.com/legacy-decks/deckhand/internal/service"
	"github.com/legacy-decks/deckhand/internal/telemetry"
)

type ChatService interface {
	Chat(ctx context.Context, input service.ChatInput) (*service.ChatResult, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessageRequest `json:"messages"`
}

// Chat streams the completion back as plain text. Retrieval outcome and
// strategy travel in response headers since the body is the raw completion.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	assistantID := chi.URLParam(r, "id")
	if assistantID == "" {
		api.Error(w, http.StatusBadRequest, "assistant id is required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Messages) == 0 {
		api.Error(w, http.StatusBadRequest, "messages are required")
		return
	}

	messages := make([]openai.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatMessage{Role: m.Role, Content: m.Content}
	}

	result, err := h.svc.Chat(r.Context(), service.ChatInput{
		AssistantID: assistantID,
		Messages:    messages,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer result.Stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Knowledge-Outcome", string(result.Outcome))
	w.Header().Set("X-Search-Strategy", string(result.Strategy))
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for {
		delta, err := result.Stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Headers are already gone; the truncated body is all the
			// client gets.
			telemetry.CaptureError(r.Context(), err)
			return
		}
		if delta == "" {
			continue
		}
		if _, err := io.WriteString(w, delta); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
