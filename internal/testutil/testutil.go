// Package testutil provides shared test helpers for setting up vaults
// and scanned indexes.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/runevault/ansuz/internal/storage"
	"github.com/runevault/ansuz/internal/vault"
)

// Logger returns a slog logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestVault creates a temporary vault directory populated with files
// (relative path → content) and returns it with a storage.Provider.
func TestVault(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()

	vaultDir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(vaultDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestIndex creates a vault from files and returns a scanned index over it.
func TestIndex(t *testing.T, files map[string]string) *vault.Index {
	t.Helper()

	_, store := TestVault(t, files)
	ix := vault.NewIndex(store, Logger())
	if _, err := ix.Scan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return ix
}
