// Package vault implements the in-memory note index: a read-mostly cache
// over a directory tree of Markdown notes with tag and backlink indexes.
//
// The index holds exactly one immutable Snapshot behind an atomic pointer.
// A scan builds a complete replacement snapshot and swaps it in; readers
// never observe a partially rebuilt index and never block on a scan.
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runevault/ansuz/internal/apperr"
	"github.com/runevault/ansuz/internal/models"
	"github.com/runevault/ansuz/internal/storage"
)

// CollisionPolicy decides which file wins when two files resolve to the
// same note name. Scan order is lexicographic by path, so both policies
// are deterministic.
type CollisionPolicy string

const (
	// CollisionLastWins keeps the later-scanned file (the default).
	CollisionLastWins CollisionPolicy = "last-wins"
	// CollisionFirstWins keeps the earlier-scanned file.
	CollisionFirstWins CollisionPolicy = "first-wins"
)

// Searchable fields accepted by Index.Search.
const (
	FieldContent = "content"
	FieldTitle   = "title"
	FieldTags    = "tags"
)

// Index owns the current vault snapshot. State machine:
// uninitialized → scanning → ready, re-entering scanning on refresh.
// A second scan while one is running is rejected with ErrScanInProgress.
type Index struct {
	store  storage.Provider
	policy CollisionPolicy
	logger *slog.Logger

	mu       sync.Mutex // guards scanning
	scanning bool

	snap atomic.Pointer[Snapshot]
}

// Option configures an Index.
type Option func(*Index)

// WithCollisionPolicy overrides the default last-wins collision policy.
func WithCollisionPolicy(p CollisionPolicy) Option {
	return func(ix *Index) { ix.policy = p }
}

// NewIndex creates an empty Index bound to a storage provider. No scan
// happens until Scan is called; queries before that return
// ErrNotInitialized.
func NewIndex(store storage.Provider, logger *slog.Logger, opts ...Option) *Index {
	ix := &Index{
		store:  store,
		policy: CollisionLastWins,
		logger: logger,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Scan performs a full vault scan and atomically replaces the current
// snapshot. It returns ErrScanInProgress when another scan is running,
// and a scan error only when the vault root itself is unreadable.
func (ix *Index) Scan(ctx context.Context) (*Snapshot, error) {
	ix.mu.Lock()
	if ix.scanning {
		ix.mu.Unlock()
		return nil, apperr.ErrScanInProgress
	}
	ix.scanning = true
	ix.mu.Unlock()

	defer func() {
		ix.mu.Lock()
		ix.scanning = false
		ix.mu.Unlock()
	}()

	snap, err := buildSnapshot(ctx, ix.store, ix.policy, ix.logger)
	if err != nil {
		return nil, err
	}

	ix.snap.Store(snap)
	ix.logger.Info("vault: scan complete",
		slog.Int("notes", len(snap.Notes)),
		slog.Int("skipped", len(snap.Report.Skipped)),
		slog.Duration("duration", snap.Report.Duration))
	return snap, nil
}

// Ready reports whether at least one scan has completed.
func (ix *Index) Ready() bool { return ix.snap.Load() != nil }

// Scanning reports whether a scan is currently running.
func (ix *Index) Scanning() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.scanning
}

func (ix *Index) snapshot() (*Snapshot, error) {
	s := ix.snap.Load()
	if s == nil {
		return nil, apperr.ErrNotInitialized
	}
	return s, nil
}

// Lookup returns the note with the exact name (case-sensitive).
func (ix *Index) Lookup(name string) (*models.Note, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	n, ok := s.Notes[name]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return n, nil
}

// NotesByTag returns all notes carrying the exact tag, sorted by name.
// An unknown tag yields an empty slice, not an error.
func (ix *Index) NotesByTag(tag string) ([]*models.Note, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]*models.Note, 0, len(s.TagIndex[tag]))
	for name := range s.TagIndex[tag] {
		out = append(out, s.Notes[name])
	}
	sortByName(out)
	return out, nil
}

// Backlinks returns the sorted names of notes linking to name. The target
// need not exist: links to not-yet-created notes are discoverable.
func (ix *Index) Backlinks(name string) ([]string, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.Backlinks[name]))
	for src := range s.Backlinks[name] {
		out = append(out, src)
	}
	sort.Strings(out)
	return out, nil
}

// Orphans returns the notes with no outgoing links and no backlinks,
// computed on demand from the current snapshot.
func (ix *Index) Orphans() ([]*models.Note, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	var out []*models.Note
	for name, n := range s.Notes {
		if len(n.Links) == 0 && len(s.Backlinks[name]) == 0 {
			out = append(out, n)
		}
	}
	sortByName(out)
	return out, nil
}

// Search does a linear case-insensitive substring scan over the requested
// fields (content, title, tags; all three when fields is empty). Results
// are in stable name order, capped at limit when limit > 0. Each call
// recomputes; nothing is cached across calls.
func (ix *Index) Search(query string, fields []string, limit int) ([]*models.Note, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = []string{FieldContent, FieldTitle, FieldTags}
	}
	for _, f := range fields {
		switch f {
		case FieldContent, FieldTitle, FieldTags:
		default:
			return nil, fmt.Errorf("vault: unknown search field %q", f)
		}
	}

	q := strings.ToLower(query)
	names := sortedNames(s.Notes)

	var out []*models.Note
	for _, name := range names {
		n := s.Notes[name]
		if matchNote(n, q, fields) {
			out = append(out, n)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func matchNote(n *models.Note, q string, fields []string) bool {
	for _, f := range fields {
		switch f {
		case FieldContent:
			if strings.Contains(strings.ToLower(n.Body), q) {
				return true
			}
		case FieldTitle:
			if strings.Contains(strings.ToLower(n.Title), q) {
				return true
			}
		case FieldTags:
			for _, t := range n.Tags {
				if strings.Contains(strings.ToLower(t), q) {
					return true
				}
			}
		}
	}
	return false
}

// Notes returns a page of notes sorted by modification time, newest
// first, plus the total note count.
func (ix *Index) Notes(limit, offset int) ([]*models.Note, int, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, 0, err
	}
	all := make([]*models.Note, 0, len(s.Notes))
	for _, n := range s.Notes {
		all = append(all, n)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ModifiedAt.Equal(all[j].ModifiedAt) {
			return all[i].ModifiedAt.After(all[j].ModifiedAt)
		}
		return all[i].Name < all[j].Name
	})

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*models.Note{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

// BuiltAt returns the timestamp of the last completed scan.
func (ix *Index) BuiltAt() (time.Time, error) {
	s, err := ix.snapshot()
	if err != nil {
		return time.Time{}, err
	}
	return s.BuiltAt, nil
}

// Report returns the scan report of the current snapshot.
func (ix *Index) Report() (*ScanReport, error) {
	s, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	r := s.Report
	return &r, nil
}

func sortByName(notes []*models.Note) {
	sort.Slice(notes, func(i, j int) bool { return notes[i].Name < notes[j].Name })
}

func sortedNames(m map[string]*models.Note) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
