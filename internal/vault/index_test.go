package vault

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/runevault/ansuz/internal/apperr"
	"github.com/runevault/ansuz/internal/models"
	"github.com/runevault/ansuz/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testIndex builds an index over a temp vault populated with the given
// path → content files, and runs one scan.
func testIndex(t *testing.T, files map[string]string, opts ...Option) *Index {
	t.Helper()
	ix := testIndexNoScan(t, files, opts...)
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return ix
}

func testIndexNoScan(t *testing.T, files map[string]string, opts ...Option) *Index {
	t.Helper()
	dir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(dir, ".obsidian")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return NewIndex(store, testLogger(), opts...)
}

func TestQueriesBeforeScan(t *testing.T) {
	ix := testIndexNoScan(t, nil)

	if _, err := ix.Lookup("A"); !errors.Is(err, apperr.ErrNotInitialized) {
		t.Errorf("Lookup err = %v, want ErrNotInitialized", err)
	}
	if _, err := ix.NotesByTag("x"); !errors.Is(err, apperr.ErrNotInitialized) {
		t.Errorf("NotesByTag err = %v, want ErrNotInitialized", err)
	}
	if _, err := ix.Search("q", nil, 0); !errors.Is(err, apperr.ErrNotInitialized) {
		t.Errorf("Search err = %v, want ErrNotInitialized", err)
	}
	if ix.Ready() {
		t.Error("Ready() = true before first scan")
	}
}

func TestScan_LinkedAndTaggedScenario(t *testing.T) {
	ix := testIndex(t, map[string]string{
		"A.md": "See [[B]] and #math",
		"B.md": "#physics",
	})

	a, err := ix.Lookup("A")
	if err != nil {
		t.Fatalf("Lookup(A): %v", err)
	}
	targets := a.LinkTargets()
	if len(targets) != 1 || targets[0] != "B" {
		t.Errorf("A outgoing links = %v, want [B]", targets)
	}

	bl, err := ix.Backlinks("B")
	if err != nil {
		t.Fatalf("Backlinks(B): %v", err)
	}
	if len(bl) != 1 || bl[0] != "A" {
		t.Errorf("backlinks(B) = %v, want [A]", bl)
	}

	byTag, err := ix.NotesByTag("math")
	if err != nil {
		t.Fatalf("NotesByTag: %v", err)
	}
	if len(byTag) != 1 || byTag[0].Name != "A" {
		t.Errorf("notesByTag(math) = %v, want [A]", names(byTag))
	}

	orphans, err := ix.Orphans()
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	// A has an outgoing link, B has a backlink: no orphans.
	if len(orphans) != 0 {
		t.Errorf("orphans = %v, want none", names(orphans))
	}
}

func TestOrphans_SingleUnlinkedNote(t *testing.T) {
	ix := testIndex(t, map[string]string{"C.md": "no links and no tags here"})

	orphans, err := ix.Orphans()
	if err != nil {
		t.Fatalf("Orphans: %v", err)
	}
	if len(orphans) != 1 || orphans[0].Name != "C" {
		t.Errorf("orphans = %v, want [C]", names(orphans))
	}
}

func TestDanglingLink(t *testing.T) {
	ix := testIndex(t, map[string]string{"D.md": "mentions [[Ghost]]"})

	bl, err := ix.Backlinks("Ghost")
	if err != nil {
		t.Fatalf("Backlinks(Ghost): %v", err)
	}
	if len(bl) != 1 || bl[0] != "D" {
		t.Errorf("backlinks(Ghost) = %v, want [D]", bl)
	}

	if _, err := ix.Lookup("Ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Lookup(Ghost) err = %v, want ErrNotFound", err)
	}

	// D has an outgoing link, even if dangling, so it is not an orphan.
	orphans, _ := ix.Orphans()
	if len(orphans) != 0 {
		t.Errorf("orphans = %v, want none", names(orphans))
	}
}

func TestIndexInvariants(t *testing.T) {
	ix := testIndex(t, map[string]string{
		"one.md":       "---\ntags:\n  - alpha\n---\nbody #beta links [[two]] and [[two]] again",
		"two.md":       "#alpha content [[one]] [[missing]]",
		"sub/three.md": "plain",
	})
	snap := ix.snap.Load()

	// Tag index ↔ note tags, both directions.
	for tag, members := range snap.TagIndex {
		for name := range members {
			if !snap.Notes[name].HasTag(tag) {
				t.Errorf("tag_index[%q] lists %q but note lacks the tag", tag, name)
			}
		}
	}
	for name, n := range snap.Notes {
		for _, tag := range n.Tags {
			if _, ok := snap.TagIndex[tag][name]; !ok {
				t.Errorf("note %q carries %q but tag_index misses it", name, tag)
			}
		}
	}

	// Every outgoing link produces a backlink entry, dangling included.
	for name, n := range snap.Notes {
		for _, target := range n.LinkTargets() {
			if _, ok := snap.Backlinks[target][name]; !ok {
				t.Errorf("link %s -> %s missing from backlink index", name, target)
			}
		}
	}
	if _, ok := snap.Backlinks["missing"]["two"]; !ok {
		t.Error("dangling target missing from backlink index")
	}
	if _, ok := snap.Notes["missing"]; ok {
		t.Error("dangling target must not create a phantom note")
	}
}

func TestScan_Idempotent(t *testing.T) {
	ix := testIndex(t, map[string]string{
		"a.md": "---\ntitle: A\ntags: [x]\n---\nlinks [[b]]",
		"b.md": "#y body",
	})
	first := ix.snap.Load()

	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	second := ix.snap.Load()

	if first == second {
		t.Fatal("rescan must swap in a fresh snapshot")
	}
	if len(first.Notes) != len(second.Notes) {
		t.Fatalf("note counts differ: %d vs %d", len(first.Notes), len(second.Notes))
	}
	for name, n1 := range first.Notes {
		n2, ok := second.Notes[name]
		if !ok {
			t.Fatalf("note %q missing after rescan", name)
		}
		if n1.Checksum != n2.Checksum || n1.Title != n2.Title || n1.Path != n2.Path {
			t.Errorf("note %q differs across identical scans", name)
		}
	}
}

func TestCollision_LastWinsByScanOrder(t *testing.T) {
	files := map[string]string{
		"a/dup.md": "first by path order",
		"b/dup.md": "second by path order",
	}

	ix := testIndex(t, files)
	n, err := ix.Lookup("dup")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if n.Path != "b/dup.md" {
		t.Errorf("last-wins kept %q, want b/dup.md", n.Path)
	}
	report, _ := ix.Report()
	if len(report.Collisions) != 1 || report.Collisions[0].DroppedPath != "a/dup.md" {
		t.Errorf("collision report = %+v", report.Collisions)
	}

	ix = testIndex(t, files, WithCollisionPolicy(CollisionFirstWins))
	n, err = ix.Lookup("dup")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if n.Path != "a/dup.md" {
		t.Errorf("first-wins kept %q, want a/dup.md", n.Path)
	}
}

func TestLookup_CaseSensitive(t *testing.T) {
	ix := testIndex(t, map[string]string{"Note.md": "content"})

	if _, err := ix.Lookup("Note"); err != nil {
		t.Errorf("exact-case lookup failed: %v", err)
	}
	if _, err := ix.Lookup("note"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("case-folded lookup err = %v, want ErrNotFound", err)
	}
}

func TestNotesByTag_UnknownTagEmpty(t *testing.T) {
	ix := testIndex(t, map[string]string{"a.md": "#known"})

	got, err := ix.NotesByTag("unknown")
	if err != nil {
		t.Fatalf("NotesByTag: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("unknown tag yields %v, want empty", names(got))
	}
}

func TestSearch_FieldsAndLimit(t *testing.T) {
	ix := testIndex(t, map[string]string{
		"alpha.md": "---\ntitle: Needle Title\n---\nnothing here",
		"beta.md":  "the needle is in the body",
		"gamma.md": "#needle tagged only",
	})

	all, err := ix.Search("needle", nil, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("default fields matched %v, want 3 notes", names(all))
	}

	titleOnly, _ := ix.Search("needle", []string{FieldTitle}, 0)
	if len(titleOnly) != 1 || titleOnly[0].Name != "alpha" {
		t.Errorf("title search = %v, want [alpha]", names(titleOnly))
	}

	tagOnly, _ := ix.Search("needle", []string{FieldTags}, 0)
	if len(tagOnly) != 1 || tagOnly[0].Name != "gamma" {
		t.Errorf("tag search = %v, want [gamma]", names(tagOnly))
	}

	limited, _ := ix.Search("needle", nil, 2)
	if len(limited) != 2 {
		t.Errorf("limited search returned %d, want 2", len(limited))
	}

	// Case-insensitive.
	upper, _ := ix.Search("NEEDLE", nil, 0)
	if len(upper) != 3 {
		t.Errorf("case-insensitive search matched %d, want 3", len(upper))
	}

	if _, err := ix.Search("x", []string{"bogus"}, 0); err == nil {
		t.Error("expected error for unknown search field")
	}
}

func TestScan_SkipsUnreadableFileAndReports(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are ignored when running as root")
	}
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "good.md"), []byte("fine"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "bad.md"), []byte("unreadable"), 0o000)

	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	ix := NewIndex(store, testLogger())
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatalf("Scan should recover from per-file failures: %v", err)
	}

	if _, err := ix.Lookup("good"); err != nil {
		t.Errorf("good note should be indexed: %v", err)
	}
	report, _ := ix.Report()
	if len(report.Skipped) != 1 || report.Skipped[0].Path != "bad.md" {
		t.Errorf("skipped = %+v, want bad.md recorded", report.Skipped)
	}
}

func TestScan_RejectsConcurrentScan(t *testing.T) {
	ix := testIndexNoScan(t, map[string]string{"a.md": "x"})

	// Hold the scanning flag and verify a second scan is rejected.
	ix.mu.Lock()
	ix.scanning = true
	ix.mu.Unlock()

	if _, err := ix.Scan(context.Background()); !errors.Is(err, apperr.ErrScanInProgress) {
		t.Errorf("err = %v, want ErrScanInProgress", err)
	}

	ix.mu.Lock()
	ix.scanning = false
	ix.mu.Unlock()

	if _, err := ix.Scan(context.Background()); err != nil {
		t.Errorf("scan after release failed: %v", err)
	}
}

func TestNotes_PaginationNewestFirst(t *testing.T) {
	ix := testIndex(t, map[string]string{
		"a.md": "one",
		"b.md": "two",
		"c.md": "three",
	})

	page, total, err := ix.Notes(2, 0)
	if err != nil {
		t.Fatalf("Notes: %v", err)
	}
	if total != 3 || len(page) != 2 {
		t.Errorf("total = %d, page = %d; want 3, 2", total, len(page))
	}

	rest, _, _ := ix.Notes(2, 2)
	if len(rest) != 1 {
		t.Errorf("second page = %d, want 1", len(rest))
	}

	beyond, _, _ := ix.Notes(2, 10)
	if len(beyond) != 0 {
		t.Errorf("offset beyond end = %d, want 0", len(beyond))
	}
}

func TestStatsAndGraph(t *testing.T) {
	ix := testIndex(t, map[string]string{
		"a.md": "---\ntype: meeting\ntags: [work]\n---\nsee [[b]] and [[ghost]]",
		"b.md": "#work plain",
	})

	st, err := ix.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalNotes != 2 {
		t.Errorf("TotalNotes = %d, want 2", st.TotalNotes)
	}
	if st.NoteTypes["meeting"] != 1 || st.NoteTypes["note"] != 1 {
		t.Errorf("NoteTypes = %v", st.NoteTypes)
	}
	if st.TotalTags != 1 || st.AllTags[0] != "work" {
		t.Errorf("tags = %v", st.AllTags)
	}

	nodes, edges, err := ix.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("nodes = %d, want 3 (a, b, missing ghost)", len(nodes))
	}
	foundMissing := false
	for _, n := range nodes {
		if n.ID == "ghost" && n.Missing {
			foundMissing = true
		}
	}
	if !foundMissing {
		t.Error("dangling target ghost not flagged as missing node")
	}
	if len(edges) != 2 {
		t.Errorf("edges = %d, want 2", len(edges))
	}
}

func names(notes []*models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Name
	}
	return out
}
