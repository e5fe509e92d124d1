// Package store provides the memory document storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/second-mind/internal/model"
)

var (
	// ErrNotFound is returned when a memory file does not exist.
	ErrNotFound = errors.New("memory file not found")
	// ErrVersionConflict is returned when an update races another writer.
	ErrVersionConflict = errors.New("memory file version conflict")
)

// PutParams holds parameters for creating or reseeding a memory file.
type PutParams struct {
	Filename    string
	Description string
	Content     string
}

// UpdateParams holds parameters for editing a memory file's content.
type UpdateParams struct {
	Filename string
	Content  string
	// ExpectedVersion is checked against the current version when > 0.
	ExpectedVersion int
}

// Reader is the read side consumed by routing and answering.
type Reader interface {
	// Manifest lists every memory file's filename and description.
	Manifest(ctx context.Context) ([]model.ManifestEntry, error)

	// FetchContents returns the contents of the named files in one lookup.
	// Unknown filenames are omitted without error.
	FetchContents(ctx context.Context, filenames []string) ([]model.FileContent, error)
}

// Store defines the memory storage interface.
type Store interface {
	Reader

	// List returns all memory files without their content.
	List(ctx context.Context) ([]model.MemoryFile, error)

	// Get retrieves a memory file by filename.
	Get(ctx context.Context, filename string) (*model.MemoryFile, error)

	// Put creates a memory file or reseeds an existing one.
	Put(ctx context.Context, p PutParams) (*model.MemoryFile, error)

	// Update replaces a file's content, recording the superseded version first.
	Update(ctx context.Context, p UpdateParams) (*model.MemoryFile, error)

	// History returns the superseded versions of a file, newest first.
	History(ctx context.Context, filename string) ([]model.MemoryFileVersion, error)

	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error

	// Close closes the store.
	Close() error
}
