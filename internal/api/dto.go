package api

import (
	"github.com/runevault/ansuz/internal/flashcard"
	"github.com/runevault/ansuz/internal/models"
	"github.com/runevault/ansuz/internal/vault"
)

// NoteListData is the payload of GET /api/notes.
type NoteListData struct {
	Notes []*models.Note `json:"notes"`
	Total int            `json:"total"`
}

// SearchData is the payload of GET /api/search.
type SearchData struct {
	Results []*models.Note `json:"results"`
}

// GraphData is the payload of GET /api/graph.
type GraphData struct {
	Nodes []vault.GraphNode `json:"nodes"`
	Links []vault.GraphEdge `json:"links"`
}

// FlashcardData is the payload of GET /api/flashcards.
type FlashcardData struct {
	Candidates []flashcard.Candidate `json:"candidates"`
}

// CreateNoteRequest is the body of POST /api/notes.
type CreateNoteRequest struct {
	Path      string            `json:"path"`
	Content   string            `json:"content"`
	Variables map[string]string `json:"variables,omitempty"`
}

// UpdateNoteRequest is the body of PUT /api/notes/{name}.
type UpdateNoteRequest struct {
	Content string `json:"content"`
}
