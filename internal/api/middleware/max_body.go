package middleware

import (
	"net/http"

	"github.com/legacy-decks/deckhand/internal/api"
)

// MaxBodyBytes caps the request body at limit bytes. Oversized bodies that
// declare their length are rejected up front; chunked bodies are cut off by
// MaxBytesReader when the handler reads past the limit. A limit of zero or
// less disables the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength != -1 && r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
