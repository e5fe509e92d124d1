package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string      `json:"db_path"`
	DBSizeBytes   int64       `json:"db_size_bytes"`
	TotalFiles    int         `json:"total_files"`
	TotalVersions int         `json:"total_versions"`
	Files         []FileStats `json:"files"`
}

// FileStats holds per-file counts.
type FileStats struct {
	Filename string `json:"filename"`
	Version  int    `json:"version"`
	Bytes    int    `json:"bytes"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath, Files: []FileStats{}}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_files`).Scan(&st.TotalFiles)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_file_versions`).Scan(&st.TotalVersions)

	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, version, LENGTH(content)
		FROM memory_files ORDER BY filename`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var fs FileStats
		if err := rows.Scan(&fs.Filename, &fs.Version, &fs.Bytes); err != nil {
			return st, err
		}
		st.Files = append(st.Files, fs)
	}

	return st, rows.Err()
}
