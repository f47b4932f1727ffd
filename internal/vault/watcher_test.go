package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runevault/ansuz/internal/apperr"
	"github.com/runevault/ansuz/internal/storage"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func watcherTestEnv(t *testing.T) (string, *Index) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, ".obsidian")
	if err != nil {
		t.Fatal(err)
	}
	ix := NewIndex(store, testLogger())
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	return dir, ix
}

func TestWatcher_NewFileTriggersRescan(t *testing.T) {
	dir, ix := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, ix, dir, nil, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := ix.Lookup("new")
		return err == nil
	}, "new file not picked up by watcher rescan")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, ix := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, ix, dir, nil, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(dir, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := ix.Lookup("deep")
		return err == nil
	}, "file in new subdir not picked up by watcher")
}

func TestWatcher_DeleteRemovesFromSnapshot(t *testing.T) {
	dir, ix := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "del.md"), []byte("# Delete Me"), 0o644)
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := ix.Lookup("del"); err != nil {
		t.Fatal("precondition: note should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, ix, dir, nil, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := ix.Lookup("del")
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted note still in snapshot after rescan")
}

func TestWatcher_RenameUpdatesSnapshot(t *testing.T) {
	dir, ix := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "old.md"), []byte("# Rename"), 0o644)
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, ix, dir, nil, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dir, "old.md"), filepath.Join(dir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, oldErr := ix.Lookup("old")
		_, newErr := ix.Lookup("renamed")
		return errors.Is(oldErr, apperr.ErrNotFound) && newErr == nil
	}, "rename not reflected: old name should be gone and new name indexed")
}

func TestWatcher_ExcludedDirIgnored(t *testing.T) {
	dir, ix := watcherTestEnv(t)
	_ = os.MkdirAll(filepath.Join(dir, ".obsidian"), 0o755)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rescans := make(chan struct{}, 8)
	go Watch(ctx, ix, dir, []string{".obsidian"}, testLogger(), func(*Snapshot) {
		rescans <- struct{}{}
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, ".obsidian", "workspace.md"), []byte("internal"), 0o644)

	select {
	case <-rescans:
		t.Error("change inside excluded dir must not trigger a rescan")
	case <-time.After(700 * time.Millisecond):
	}
}
