// Package noteservice coordinates the storage provider, the vault index,
// and note templates behind one service used by both the REST API and the
// MCP server.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/runevault/ansuz/internal/apperr"
	"github.com/runevault/ansuz/internal/checksum"
	"github.com/runevault/ansuz/internal/flashcard"
	"github.com/runevault/ansuz/internal/models"
	"github.com/runevault/ansuz/internal/parser"
	"github.com/runevault/ansuz/internal/storage"
	"github.com/runevault/ansuz/internal/template"
	"github.com/runevault/ansuz/internal/vault"
)

// NoteDetail is a note enriched with its backlinks.
type NoteDetail struct {
	*models.Note
	Backlinks []string `json:"backlinks"`
}

// Service wires storage and index operations together.
type Service struct {
	store  storage.Provider
	ix     *vault.Index
	logger *slog.Logger
}

// NewService creates a new note service.
func NewService(store storage.Provider, ix *vault.Index, logger *slog.Logger) *Service {
	return &Service{store: store, ix: ix, logger: logger}
}

// Index exposes the underlying vault index for read-only queries.
func (s *Service) Index() *vault.Index { return s.ix }

// GetNote looks up a note by name and attaches its backlinks.
func (s *Service) GetNote(_ context.Context, name string) (*NoteDetail, error) {
	n, err := s.ix.Lookup(name)
	if err != nil {
		return nil, err
	}
	bl, err := s.ix.Backlinks(name)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{Note: n, Backlinks: bl}, nil
}

// CreateNote renders the content through the template engine, writes the
// file, and rescans the vault so the new note lands in the snapshot.
func (s *Service) CreateNote(ctx context.Context, notePath, content string, vars map[string]string) (*NoteDetail, error) {
	if !strings.HasSuffix(notePath, ".md") {
		return nil, fmt.Errorf("noteservice: path must end with .md: %s", notePath)
	}
	if _, err := s.store.Read(notePath); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	rendered := template.Render(content, vars)
	if err := s.store.Write(notePath, []byte(rendered)); err != nil {
		return nil, err
	}

	if _, err := s.ix.Scan(ctx); err != nil {
		if !errors.Is(err, apperr.ErrScanInProgress) {
			return nil, err
		}
		// An in-flight scan (watcher-triggered, most likely) will pick
		// the file up; serve the lookup from whichever snapshot wins.
		s.logger.Debug("create: rescan coalesced with in-flight scan",
			slog.String("path", notePath))
	}

	name := strings.TrimSuffix(path.Base(notePath), ".md")
	detail, err := s.GetNote(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		// Raced with a scan that predates the write; the next rescan
		// will surface it. Report the created file without backlinks.
		meta := models.NoteMetadata{Name: name, Path: notePath, SizeBytes: int64(len(rendered))}
		return &NoteDetail{Note: noteFromContent(meta, rendered), Backlinks: []string{}}, nil
	}
	return detail, err
}

// UpdateNote replaces a note's content with optimistic concurrency: a
// non-empty ifMatch must equal the note's current checksum.
func (s *Service) UpdateNote(ctx context.Context, name, content, ifMatch string) (*NoteDetail, error) {
	n, err := s.ix.Lookup(name)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != n.Checksum {
		return nil, apperr.ErrConflict
	}

	if err := s.store.Write(n.Path, []byte(content)); err != nil {
		return nil, err
	}
	s.rescan(ctx, n.Path)

	detail, err := s.GetNote(ctx, name)
	if errors.Is(err, apperr.ErrNotFound) {
		meta := models.NoteMetadata{Name: name, Path: n.Path, SizeBytes: int64(len(content))}
		return &NoteDetail{Note: noteFromContent(meta, content), Backlinks: []string{}}, nil
	}
	return detail, err
}

// DeleteNote removes a note's file and rescans.
func (s *Service) DeleteNote(ctx context.Context, name string) error {
	n, err := s.ix.Lookup(name)
	if err != nil {
		return err
	}
	if err := s.store.Delete(n.Path); err != nil {
		return err
	}
	s.rescan(ctx, n.Path)
	return nil
}

// rescan runs a full scan, tolerating a concurrent one: an in-flight
// scan (watcher-triggered, most likely) will pick the change up.
func (s *Service) rescan(ctx context.Context, path string) {
	if _, err := s.ix.Scan(ctx); err != nil && errors.Is(err, apperr.ErrScanInProgress) {
		s.logger.Debug("rescan coalesced with in-flight scan", slog.String("path", path))
	} else if err != nil {
		s.logger.Warn("rescan failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// Refresh triggers a full rescan and returns its report.
func (s *Service) Refresh(ctx context.Context) (*vault.ScanReport, error) {
	snap, err := s.ix.Scan(ctx)
	if err != nil {
		return nil, err
	}
	report := snap.Report
	return &report, nil
}

// Flashcards extracts flashcard candidates from the notes selected by
// name or, when tag is non-empty, by tag. Exactly one selector is
// required.
func (s *Service) Flashcards(_ context.Context, noteNames []string, tag string, types []string) ([]flashcard.Candidate, error) {
	var notes []*models.Note

	switch {
	case tag != "":
		byTag, err := s.ix.NotesByTag(tag)
		if err != nil {
			return nil, err
		}
		notes = byTag
	case len(noteNames) > 0:
		for _, name := range noteNames {
			n, err := s.ix.Lookup(name)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					continue
				}
				return nil, err
			}
			notes = append(notes, n)
		}
	default:
		return nil, fmt.Errorf("noteservice: either note names or a tag filter is required")
	}

	var out []flashcard.Candidate
	for _, n := range notes {
		cands, err := flashcard.Extract(n, types)
		if err != nil {
			return nil, err
		}
		out = append(out, cands...)
	}
	return out, nil
}

// noteFromContent builds a Note for a just-written file that has not
// made it into a snapshot yet.
func noteFromContent(meta models.NoteMetadata, content string) *models.Note {
	res := parser.Parse([]byte(content))
	title := res.Title
	if title == "" {
		title = meta.Name
	}
	return &models.Note{
		Name:        meta.Name,
		Path:        meta.Path,
		Title:       title,
		RawContent:  content,
		Body:        res.Body,
		Frontmatter: res.Frontmatter,
		Tags:        res.Tags,
		Links:       res.Links,
		Headings:    res.Headings,
		Blocks:      res.Blocks,
		Checksum:    checksum.Sum([]byte(content)),
		WordCount:   len(strings.Fields(res.Body)),
		SizeBytes:   meta.SizeBytes,
	}
}
