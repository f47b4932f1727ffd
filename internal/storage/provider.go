// Package storage defines the vault file-system abstraction.
package storage

import "github.com/runevault/ansuz/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// Root returns the absolute vault root path.
	Root() string
	// List walks the vault and returns metadata for every .md file,
	// excluded directories skipped, in lexicographic path order.
	List() ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
}
