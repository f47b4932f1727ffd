package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/runevault/ansuz/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam extracts and unescapes a chi route parameter. Supports encoded
// slashes from clients (e.g. projects%2Fgo for a nested tag).
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// splitCSV turns "a, b,c" into ["a" "b" "c"], dropping empty items.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes sorted by modification time, newest first
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	Envelope{data=NoteListData}
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	notes, total, err := h.svc.Index().Notes(limit, offset)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, NoteListData{Notes: notes, Total: total},
		fmt.Sprintf("%d of %d notes", len(notes), total))
}

// GetNote handles GET /api/notes/{name}.
//
//	@Summary		Get a single note by name with its backlinks
//	@Tags			notes
//	@Produce		json
//	@Param			name	path		string	true	"Note name (filename stem, case-sensitive)"
//	@Success		200		{object}	Envelope{data=noteservice.NoteDetail}
//	@Failure		404		{object}	Envelope
//	@Security		BearerAuth
//	@Router			/notes/{name} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	detail, err := h.svc.GetNote(r.Context(), name)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, detail, "")
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note, rendering template variables
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	Envelope{data=noteservice.NoteDetail}
//	@Failure		400		{object}	Envelope
//	@Failure		409		{object}	Envelope
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Path == "" || req.Content == "" {
		respondErr(w, http.StatusBadRequest, "bad_request", "path and content are required")
		return
	}

	detail, err := h.svc.CreateNote(r.Context(), req.Path, req.Content, req.Variables)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusCreated, detail, fmt.Sprintf("created: %s", req.Path))
}

// UpdateNote handles PUT /api/notes/{name}.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			name		path	string				true	"Note name"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Updated content"
//	@Success		200		{object}	Envelope{data=noteservice.NoteDetail}
//	@Failure		404		{object}	Envelope
//	@Failure		409		{object}	Envelope
//	@Security		BearerAuth
//	@Router			/notes/{name} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	name := urlParam(r, "name")

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Content == "" {
		respondErr(w, http.StatusBadRequest, "bad_request", "content is required")
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	detail, err := h.svc.UpdateNote(r.Context(), name, req.Content, ifMatch)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, detail, fmt.Sprintf("updated: %s", name))
}

// DeleteNote handles DELETE /api/notes/{name}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	if err := h.svc.DeleteNote(r.Context(), name); err != nil {
		respondFor(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Backlinks handles GET /api/notes/{name}/backlinks.
//
//	@Summary		List notes linking to the given name (target may not exist)
//	@Tags			graph
//	@Produce		json
//	@Param			name	path		string	true	"Note name"
//	@Success		200		{object}	Envelope{data=[]string}
//	@Security		BearerAuth
//	@Router			/notes/{name}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	bl, err := h.svc.Index().Backlinks(name)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, bl, fmt.Sprintf("%d backlinks", len(bl)))
}

// Links handles GET /api/notes/{name}/links.
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	n, err := h.svc.Index().Lookup(name)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, n.Links, fmt.Sprintf("%d links", len(n.Links)))
}

// Headings handles GET /api/notes/{name}/headings.
func (h *Handler) Headings(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	n, err := h.svc.Index().Lookup(name)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, n.Headings, fmt.Sprintf("%d headings", len(n.Headings)))
}

// Blocks handles GET /api/notes/{name}/blocks with an optional types filter.
func (h *Handler) Blocks(w http.ResponseWriter, r *http.Request) {
	name := urlParam(r, "name")
	n, err := h.svc.Index().Lookup(name)
	if err != nil {
		respondFor(w, err)
		return
	}

	blocks := n.Blocks
	if types := splitCSV(r.URL.Query().Get("types")); len(types) > 0 {
		keep := make(map[string]struct{}, len(types))
		for _, t := range types {
			keep[t] = struct{}{}
		}
		filtered := blocks[:0:0]
		for _, b := range blocks {
			if _, want := keep[b.Type]; want {
				filtered = append(filtered, b)
			}
		}
		blocks = filtered
	}
	respond(w, http.StatusOK, blocks, fmt.Sprintf("%d blocks", len(blocks)))
}

// Search handles GET /api/search.
//
//	@Summary		Case-insensitive substring search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			fields	query		string	false	"Comma-separated fields: content, title, tags"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	Envelope{data=SearchData}
//	@Failure		400		{object}	Envelope
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		respondErr(w, http.StatusBadRequest, "bad_request", "query parameter 'q' is required")
		return
	}
	fields := splitCSV(r.URL.Query().Get("fields"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.svc.Index().Search(q, fields, limit)
	if err != nil {
		if strings.Contains(err.Error(), "unknown search field") {
			respondErr(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, SearchData{Results: results}, fmt.Sprintf("%d matches", len(results)))
}

// ByTag handles GET /api/tags/{tag}.
func (h *Handler) ByTag(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimPrefix(urlParam(r, "tag"), "#")
	notes, err := h.svc.Index().NotesByTag(tag)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, notes, fmt.Sprintf("%d notes tagged %s", len(notes), tag))
}

// Orphans handles GET /api/orphans.
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Index().Orphans()
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, notes, fmt.Sprintf("%d orphaned notes", len(notes)))
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Index().Stats()
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, st, "")
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the link graph, including missing nodes for dangling links
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	Envelope{data=GraphData}
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Index().Graph()
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, GraphData{Nodes: nodes, Links: links}, "")
}

// Flashcards handles GET /api/flashcards.
func (h *Handler) Flashcards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	names := splitCSV(q.Get("names"))
	tag := strings.TrimPrefix(q.Get("tag"), "#")
	types := splitCSV(q.Get("types"))

	if len(names) == 0 && tag == "" {
		respondErr(w, http.StatusBadRequest, "bad_request", "either names or tag is required")
		return
	}

	cands, err := h.svc.Flashcards(r.Context(), names, tag, types)
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, FlashcardData{Candidates: cands},
		fmt.Sprintf("%d flashcard candidates", len(cands)))
}

// Refresh handles POST /api/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Refresh(r.Context())
	if err != nil {
		respondFor(w, err)
		return
	}
	respond(w, http.StatusOK, report, fmt.Sprintf("scanned %d notes", report.Scanned))
}
