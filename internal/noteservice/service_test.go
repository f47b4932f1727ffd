package noteservice

import (
	"context"
	"errors"
	"testing"

	"github.com/runevault/ansuz/internal/apperr"
	"github.com/runevault/ansuz/internal/testutil"
	"github.com/runevault/ansuz/internal/vault"
)

func testService(t *testing.T, files map[string]string) *Service {
	t.Helper()

	_, store := testutil.TestVault(t, files)
	logger := testutil.Logger()
	ix := vault.NewIndex(store, logger)
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return NewService(store, ix, logger)
}

func TestGetNote_Backlinks(t *testing.T) {
	svc := testService(t, map[string]string{
		"a.md": "See [[b]]",
		"b.md": "content",
	})

	detail, err := svc.GetNote(context.Background(), "b")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if len(detail.Backlinks) != 1 || detail.Backlinks[0] != "a" {
		t.Errorf("backlinks = %v, want [a]", detail.Backlinks)
	}
}

func TestCreateNote_RendersAndIndexes(t *testing.T) {
	svc := testService(t, nil)

	detail, err := svc.CreateNote(context.Background(), "daily/today.md",
		"# {{title}}\n\nTagged #journal", map[string]string{"title": "Today"})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if detail.Title != "Today" {
		t.Errorf("title = %q, want Today", detail.Title)
	}

	// The rescan made the note queryable by tag.
	notes, err := svc.Index().NotesByTag("journal")
	if err != nil {
		t.Fatalf("NotesByTag: %v", err)
	}
	if len(notes) != 1 || notes[0].Name != "today" {
		t.Errorf("tagged notes = %v", notes)
	}
}

func TestCreateNote_RejectsBadPathAndDuplicates(t *testing.T) {
	svc := testService(t, map[string]string{"a.md": "x"})

	if _, err := svc.CreateNote(context.Background(), "nope.txt", "x", nil); err == nil {
		t.Error("non-.md path should be rejected")
	}

	_, err := svc.CreateNote(context.Background(), "a.md", "x", nil)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateNote_OptimisticLocking(t *testing.T) {
	svc := testService(t, map[string]string{"a.md": "v1"})

	n, err := svc.Index().Lookup("a")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateNote(context.Background(), "a", "v2", "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}

	detail, err := svc.UpdateNote(context.Background(), "a", "v2 with [[b]]", n.Checksum)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if len(detail.LinkTargets()) != 1 {
		t.Errorf("links = %v, want [b]", detail.LinkTargets())
	}
}

func TestDeleteNote(t *testing.T) {
	svc := testService(t, map[string]string{"a.md": "x"})

	if err := svc.DeleteNote(context.Background(), "a"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := svc.GetNote(context.Background(), "a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteNote(context.Background(), "a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestRefresh_PicksUpExternalWrites(t *testing.T) {
	_, store := testutil.TestVault(t, map[string]string{"a.md": "x"})
	logger := testutil.Logger()
	ix := vault.NewIndex(store, logger)
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc := NewService(store, ix, logger)

	if err := store.Write("b.md", []byte("new note")); err != nil {
		t.Fatal(err)
	}

	report, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if report.Scanned != 2 {
		t.Errorf("scanned = %d, want 2", report.Scanned)
	}
}

func TestFlashcards_Selectors(t *testing.T) {
	svc := testService(t, map[string]string{
		"bio.md":  "#science\n\n# Cell Structure\n\nA mitochondrion is the powerhouse of the cell.",
		"hist.md": "plain note",
	})

	// By tag.
	cands, err := svc.Flashcards(context.Background(), nil, "science", nil)
	if err != nil {
		t.Fatalf("Flashcards by tag: %v", err)
	}
	if len(cands) == 0 {
		t.Error("expected candidates from tagged note")
	}

	// By names; unknown names are skipped.
	cands, err = svc.Flashcards(context.Background(), []string{"bio", "ghost"}, "", nil)
	if err != nil {
		t.Fatalf("Flashcards by names: %v", err)
	}
	if len(cands) == 0 {
		t.Error("expected candidates from named note")
	}

	// No selector is an error.
	if _, err := svc.Flashcards(context.Background(), nil, "", nil); err == nil {
		t.Error("expected error without a selector")
	}
}
