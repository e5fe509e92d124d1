// Package model defines the core memory and command data types.
package model

import "time"

// MemoryFile is a named, versioned document of durable personal context.
type MemoryFile struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Description string    `json:"description"`
	Content     string    `json:"content,omitempty"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MemoryFileVersion is a superseded revision of a memory file.
type MemoryFileVersion struct {
	ID           string    `json:"id"`
	MemoryFileID string    `json:"memory_file_id"`
	Content      string    `json:"content"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
}

// ManifestEntry is the lightweight view of a memory file used for routing.
type ManifestEntry struct {
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

// FileContent pairs a filename with its full content.
type FileContent struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Filenames returns the filenames of the manifest in order.
func Filenames(manifest []ManifestEntry) []string {
	names := make([]string, 0, len(manifest))
	for _, e := range manifest {
		names = append(names, e.Filename)
	}
	return names
}
