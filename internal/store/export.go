package store

import (
	"context"

	"github.com/rcliao/second-mind/internal/model"
)

// ExportAll returns every memory file with its current content.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]model.MemoryFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, description, content, version, created_at, updated_at
		 FROM memory_files ORDER BY filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.MemoryFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Import stores documents through Put. Unchanged documents are left at their
// current version.
func (s *SQLiteStore) Import(ctx context.Context, docs []PutParams) (int, error) {
	imported := 0
	for _, d := range docs {
		if _, err := s.Put(ctx, d); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
