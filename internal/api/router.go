package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/runevault/ansuz/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{name}", h.GetNote)
	r.Put("/notes/{name}", h.UpdateNote)
	r.Delete("/notes/{name}", h.DeleteNote)
	r.Get("/notes/{name}/backlinks", h.Backlinks)
	r.Get("/notes/{name}/links", h.Links)
	r.Get("/notes/{name}/headings", h.Headings)
	r.Get("/notes/{name}/blocks", h.Blocks)

	// Queries.
	r.Get("/search", h.Search)
	r.Get("/tags/{tag}", h.ByTag)
	r.Get("/orphans", h.Orphans)
	r.Get("/stats", h.Stats)
	r.Get("/graph", h.Graph)
	r.Get("/flashcards", h.Flashcards)

	// Index lifecycle.
	r.Post("/refresh", h.Refresh)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
