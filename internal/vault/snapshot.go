package vault

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/runevault/ansuz/internal/checksum"
	"github.com/runevault/ansuz/internal/models"
	"github.com/runevault/ansuz/internal/parser"
	"github.com/runevault/ansuz/internal/storage"
)

// Snapshot is one immutable build of the vault index. Notes is the
// canonical store; TagIndex and Backlinks are derived from it wholesale
// on every scan and are never mutated afterwards.
type Snapshot struct {
	Notes     map[string]*models.Note
	TagIndex  map[string]map[string]struct{}
	Backlinks map[string]map[string]struct{}
	BuiltAt   time.Time
	Report    ScanReport
}

// ScanReport records what a scan did, including every recovered per-file
// failure. A scan that skips files still succeeds; nothing is silently
// swallowed.
type ScanReport struct {
	Scanned    int           `json:"scanned"`
	Skipped    []SkippedFile `json:"skipped,omitempty"`
	Collisions []Collision   `json:"collisions,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// SkippedFile is one file the scan could not index.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Collision records two files resolving to the same note name and which
// one the configured policy kept.
type Collision struct {
	Name        string `json:"name"`
	KeptPath    string `json:"kept_path"`
	DroppedPath string `json:"dropped_path"`
}

// buildSnapshot walks the vault in lexicographic path order and builds a
// fully consistent snapshot. It fails only when the root listing itself
// fails; per-file read errors are recorded and the file is skipped.
func buildSnapshot(ctx context.Context, store storage.Provider, policy CollisionPolicy, logger *slog.Logger) (*Snapshot, error) {
	start := time.Now()

	metas, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("vault: scan root: %w", err)
	}

	snap := &Snapshot{
		Notes:     make(map[string]*models.Note, len(metas)),
		TagIndex:  make(map[string]map[string]struct{}),
		Backlinks: make(map[string]map[string]struct{}),
	}

	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("vault: scan: %w", err)
		}

		data, readErr := store.Read(m.Path)
		if readErr != nil {
			logger.Warn("scan: read failed", slog.String("path", m.Path), slog.String("error", readErr.Error()))
			snap.Report.Skipped = append(snap.Report.Skipped, SkippedFile{Path: m.Path, Reason: readErr.Error()})
			continue
		}

		note := buildNote(m, data)
		snap.Report.Scanned++

		if prev, ok := snap.Notes[note.Name]; ok {
			if policy == CollisionFirstWins {
				snap.Report.Collisions = append(snap.Report.Collisions, Collision{
					Name: note.Name, KeptPath: prev.Path, DroppedPath: note.Path,
				})
				continue
			}
			snap.Report.Collisions = append(snap.Report.Collisions, Collision{
				Name: note.Name, KeptPath: note.Path, DroppedPath: prev.Path,
			})
		}
		snap.Notes[note.Name] = note
	}

	// Derived indexes, rebuilt wholesale. Backlink entries are kept for
	// dangling targets; they do not create phantom notes.
	for name, n := range snap.Notes {
		for _, tag := range n.Tags {
			set, ok := snap.TagIndex[tag]
			if !ok {
				set = make(map[string]struct{})
				snap.TagIndex[tag] = set
			}
			set[name] = struct{}{}
		}
		for _, target := range n.LinkTargets() {
			set, ok := snap.Backlinks[target]
			if !ok {
				set = make(map[string]struct{})
				snap.Backlinks[target] = set
			}
			set[name] = struct{}{}
		}
	}

	snap.BuiltAt = time.Now()
	snap.Report.Duration = snap.BuiltAt.Sub(start)
	return snap, nil
}

// buildNote parses file content into a Note record.
func buildNote(m models.NoteMetadata, data []byte) *models.Note {
	res := parser.Parse(data)

	title := res.Title
	if title == "" {
		title = m.Name
	}

	return &models.Note{
		Name:        m.Name,
		Path:        m.Path,
		Title:       title,
		RawContent:  string(data),
		Body:        res.Body,
		Frontmatter: res.Frontmatter,
		Tags:        res.Tags,
		Links:       res.Links,
		Headings:    res.Headings,
		Blocks:      res.Blocks,
		Checksum:    checksum.Sum(data),
		ModifiedAt:  m.ModifiedAt,
		WordCount:   len(strings.Fields(res.Body)),
		SizeBytes:   m.SizeBytes,
	}
}
