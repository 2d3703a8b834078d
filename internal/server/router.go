package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legacy-decks/deckhand/internal/api"
	"github.com/legacy-decks/deckhand/internal/api/handlers"
	"github.com/legacy-decks/deckhand/internal/api/middleware"
)

type RouterConfig struct {
	APIKey           string
	AssistantHandler *handlers.AssistantHandler
	KnowledgeHandler *handlers.KnowledgeHandler
	SearchHandler    *handlers.SearchHandler
	ChatHandler      *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Route("/assistants", func(r chi.Router) {
			r.Post("/", cfg.AssistantHandler.Create)
			r.Get("/", cfg.AssistantHandler.List)
			r.Get("/{id}", cfg.AssistantHandler.Get)
			r.Put("/{id}", cfg.AssistantHandler.Update)
			r.Delete("/{id}", cfg.AssistantHandler.Delete)

			r.Post("/{id}/knowledge", cfg.KnowledgeHandler.Index)
			r.Get("/{id}/knowledge", cfg.KnowledgeHandler.List)
			r.Post("/{id}/search", cfg.SearchHandler.Search)
			r.Post("/{id}/chat", cfg.ChatHandler.Chat)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/{id}", cfg.KnowledgeHandler.Get)
			r.Put("/{id}", cfg.KnowledgeHandler.Update)
			r.Delete("/{id}", cfg.KnowledgeHandler.Delete)
			r.Get("/{id}/document", cfg.KnowledgeHandler.Document)
		})
	})

	return r
}
