// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the vault tools for LLM integration via stdio transport.
//
// Every tool result is a JSON envelope {success, data, message, error} so
// consumers can branch on success without parsing free-form text.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/runevault/ansuz/internal/apperr"
	"github.com/runevault/ansuz/internal/noteservice"
)

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all vault tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_vault_stats",
		mcp.WithDescription("Vault statistics: note counts, sizes, tags, note types."),
	), s.getVaultStats)

	s.mcp.AddTool(mcp.NewTool("list_vault_notes",
		mcp.WithDescription("List notes sorted by modification time, newest first."),
		mcp.WithString("limit", mcp.Description("Maximum notes to return (default 50)")),
		mcp.WithString("offset", mcp.Description("Notes to skip for pagination (default 0)")),
	), s.listVaultNotes)

	s.mcp.AddTool(mcp.NewTool("search_vault_notes",
		mcp.WithDescription("Case-insensitive substring search over note content, titles, and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("fields", mcp.Description("Comma-separated fields to search: content, title, tags (default all)")),
		mcp.WithString("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchVaultNotes)

	s.mcp.AddTool(mcp.NewTool("get_vault_note",
		mcp.WithDescription("Read a note by name with its parsed frontmatter, tags, links, and backlinks."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name (filename stem, case-sensitive, no .md)")),
	), s.getVaultNote)

	s.mcp.AddTool(mcp.NewTool("get_notes_by_tag",
		mcp.WithDescription("List all notes carrying the exact tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag without the # prefix")),
	), s.getNotesByTag)

	s.mcp.AddTool(mcp.NewTool("get_note_backlinks",
		mcp.WithDescription("Find all notes that link to the given note. The target does not have to exist."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name to find backlinks for")),
	), s.getNoteBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_orphaned_notes",
		mcp.WithDescription("List notes with no outgoing links and no backlinks."),
	), s.getOrphanedNotes)

	s.mcp.AddTool(mcp.NewTool("get_note_links",
		mcp.WithDescription("List the outgoing wikilinks of a note in document order."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
	), s.getNoteLinks)

	s.mcp.AddTool(mcp.NewTool("get_note_headings",
		mcp.WithDescription("List the headings of a note with levels, lines, and anchors."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
	), s.getNoteHeadings)

	s.mcp.AddTool(mcp.NewTool("get_note_blocks",
		mcp.WithDescription("Segment a note body into typed blocks (paragraph, list, quote, code, heading)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name")),
		mcp.WithString("types", mcp.Description("Comma-separated block types to keep (default all)")),
	), s.getNoteBlocks)

	s.mcp.AddTool(mcp.NewTool("get_notes_for_flashcards",
		mcp.WithDescription("Extract flashcard candidates from notes selected by name or by tag."),
		mcp.WithString("names", mcp.Description("Comma-separated note names")),
		mcp.WithString("tag", mcp.Description("Tag selecting the notes (alternative to names)")),
		mcp.WithString("types", mcp.Description("Comma-separated candidate types: headings, definitions, lists, quotes (default all)")),
	), s.getNotesForFlashcards)

	s.mcp.AddTool(mcp.NewTool("create_vault_note",
		mcp.WithDescription("Create a new Markdown note. Content may use {{date}}, {{time}}, "+
			"{{datetime}}, and {{title}} template variables. Read the ansuz://note-format "+
			"resource for the canonical note structure."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content, optionally with template variables")),
		mcp.WithString("title", mcp.Description("Value substituted for the {{title}} variable")),
	), s.createVaultNote)

	s.mcp.AddTool(mcp.NewTool("refresh_vault",
		mcp.WithDescription("Rescan the vault directory and rebuild the index. Returns the scan report."),
	), s.refreshVault)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://note-format", "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// envelope is the uniform tool result shape.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any, message string) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(envelope{Success: true, Data: data, Message: message}, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func fail(err error) *mcp.CallToolResult {
	out, _ := json.Marshal(envelope{Success: false, Message: err.Error(), Error: errorCode(err)})
	return mcp.NewToolResultError(string(out))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, apperr.ErrScanInProgress):
		return "scan_in_progress"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return "already_exists"
	default:
		return "internal"
	}
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

func (s *Server) getVaultStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Index().Stats()
	if err != nil {
		return fail(err), nil
	}
	return ok(st, ""), nil
}

func (s *Server) listVaultNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 50)
	offset := req.GetInt("offset", 0)

	notes, total, err := s.svc.Index().Notes(limit, offset)
	if err != nil {
		return fail(err), nil
	}
	return ok(map[string]any{"notes": notes, "total": total}, fmt.Sprintf("%d of %d notes", len(notes), total)), nil
}

func (s *Server) searchVaultNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields := splitCSV(req.GetString("fields", ""))
	limit := req.GetInt("limit", 20)

	notes, err := s.svc.Index().Search(query, fields, limit)
	if err != nil {
		return fail(err), nil
	}
	return ok(notes, fmt.Sprintf("%d matches", len(notes))), nil
}

func (s *Server) getVaultNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetNote(ctx, name)
	if err != nil {
		return fail(err), nil
	}
	return ok(detail, ""), nil
}

func (s *Server) getNotesByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.Index().NotesByTag(strings.TrimPrefix(tag, "#"))
	if err != nil {
		return fail(err), nil
	}
	return ok(notes, fmt.Sprintf("%d notes tagged %s", len(notes), tag)), nil
}

func (s *Server) getNoteBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Index().Backlinks(name)
	if err != nil {
		return fail(err), nil
	}
	return ok(bl, fmt.Sprintf("%d backlinks", len(bl))), nil
}

func (s *Server) getOrphanedNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.Index().Orphans()
	if err != nil {
		return fail(err), nil
	}
	return ok(notes, fmt.Sprintf("%d orphaned notes", len(notes))), nil
}

func (s *Server) getNoteLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Index().Lookup(name)
	if err != nil {
		return fail(err), nil
	}
	return ok(n.Links, fmt.Sprintf("%d links", len(n.Links))), nil
}

func (s *Server) getNoteHeadings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Index().Lookup(name)
	if err != nil {
		return fail(err), nil
	}
	return ok(n.Headings, fmt.Sprintf("%d headings", len(n.Headings))), nil
}

func (s *Server) getNoteBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Index().Lookup(name)
	if err != nil {
		return fail(err), nil
	}

	blocks := n.Blocks
	if types := splitCSV(req.GetString("types", "")); len(types) > 0 {
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
	return ok(blocks, fmt.Sprintf("%d blocks", len(blocks))), nil
}

func (s *Server) getNotesForFlashcards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := splitCSV(req.GetString("names", ""))
	tag := strings.TrimPrefix(req.GetString("tag", ""), "#")
	types := splitCSV(req.GetString("types", ""))

	cands, err := s.svc.Flashcards(ctx, names, tag, types)
	if err != nil {
		return fail(err), nil
	}
	return ok(cands, fmt.Sprintf("%d flashcard candidates", len(cands))), nil
}

func (s *Server) createVaultNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	vars := map[string]string{}
	if title := req.GetString("title", ""); title != "" {
		vars["title"] = title
	}

	detail, err := s.svc.CreateNote(ctx, path, content, vars)
	if err != nil {
		return fail(err), nil
	}
	return ok(detail, fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) refreshVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Refresh(ctx)
	if err != nil {
		return fail(err), nil
	}
	return ok(report, fmt.Sprintf("scanned %d notes", report.Scanned)), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://note-format",
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
