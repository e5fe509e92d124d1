package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/second-mind/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// newID is called from concurrent requests; math/rand sources are not safe
// for concurrent use.
func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_files (
		id          TEXT PRIMARY KEY,
		filename    TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memory_file_versions (
		id             TEXT PRIMARY KEY,
		memory_file_id TEXT NOT NULL REFERENCES memory_files(id),
		content        TEXT NOT NULL,
		version        INTEGER NOT NULL,
		created_at     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_versions_file ON memory_file_versions(memory_file_id, version DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Manifest(ctx context.Context) ([]model.ManifestEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, description FROM memory_files ORDER BY filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	manifest := []model.ManifestEntry{}
	for rows.Next() {
		var e model.ManifestEntry
		if err := rows.Scan(&e.Filename, &e.Description); err != nil {
			return nil, err
		}
		manifest = append(manifest, e)
	}
	return manifest, rows.Err()
}

func (s *SQLiteStore) FetchContents(ctx context.Context, filenames []string) ([]model.FileContent, error) {
	if len(filenames) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(filenames))
	args := make([]interface{}, len(filenames))
	for i, f := range filenames {
		placeholders[i] = "?"
		args[i] = f
	}

	query := fmt.Sprintf(`SELECT filename, content FROM memory_files
		WHERE filename IN (%s) ORDER BY filename`, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []model.FileContent
	for rows.Next() {
		var f model.FileContent
		if err := rows.Scan(&f.Filename, &f.Content); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.MemoryFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, description, '', version, created_at, updated_at
		 FROM memory_files ORDER BY filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []model.MemoryFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, filename string) (*model.MemoryFile, error) {
	return getFile(ctx, s.db, filename)
}

func (s *SQLiteStore) Put(ctx context.Context, p PutParams) (*model.MemoryFile, error) {
	if strings.TrimSpace(p.Filename) == "" {
		return nil, fmt.Errorf("filename is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	cur, err := getFile(ctx, tx, p.Filename)
	switch {
	case errors.Is(err, ErrNotFound):
		id := s.newID()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO memory_files (id, filename, description, content, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 1, ?, ?)`,
			id, p.Filename, p.Description, p.Content,
			now.Format(time.RFC3339), now.Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("insert memory file: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &model.MemoryFile{
			ID:          id,
			Filename:    p.Filename,
			Description: p.Description,
			Content:     p.Content,
			Version:     1,
			CreatedAt:   now.Truncate(time.Second),
			UpdatedAt:   now.Truncate(time.Second),
		}, nil
	case err != nil:
		return nil, err
	}

	if cur.Description != p.Description {
		_, err = tx.ExecContext(ctx,
			`UPDATE memory_files SET description = ? WHERE id = ?`, p.Description, cur.ID)
		if err != nil {
			return nil, fmt.Errorf("update description: %w", err)
		}
		cur.Description = p.Description
	}

	if cur.Content != p.Content {
		cur, err = s.updateTx(ctx, tx, cur, p.Content, 0)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *SQLiteStore) Update(ctx context.Context, p UpdateParams) (*model.MemoryFile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cur, err := getFile(ctx, tx, p.Filename)
	if err != nil {
		return nil, err
	}

	updated, err := s.updateTx(ctx, tx, cur, p.Content, p.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

// updateTx records cur as a superseded version, then applies content.
func (s *SQLiteStore) updateTx(ctx context.Context, tx *sql.Tx, cur *model.MemoryFile, content string, expectedVersion int) (*model.MemoryFile, error) {
	if expectedVersion > 0 && expectedVersion != cur.Version {
		return nil, fmt.Errorf("%w: %s is at version %d, not %d",
			ErrVersionConflict, cur.Filename, cur.Version, expectedVersion)
	}

	now := time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`INSERT INTO memory_file_versions (id, memory_file_id, content, version, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.newID(), cur.ID, cur.Content, cur.Version, now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("save version history: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE memory_files SET content = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		content, now.Format(time.RFC3339), cur.ID, cur.Version)
	if err != nil {
		return nil, fmt.Errorf("update memory file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVersionConflict, cur.Filename)
	}

	updated := *cur
	updated.Content = content
	updated.Version = cur.Version + 1
	updated.UpdatedAt = now.Truncate(time.Second)
	return &updated, nil
}

func (s *SQLiteStore) History(ctx context.Context, filename string) ([]model.MemoryFileVersion, error) {
	cur, err := getFile(ctx, s.db, filename)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, memory_file_id, content, version, created_at
		 FROM memory_file_versions WHERE memory_file_id = ?
		 ORDER BY version DESC`, cur.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []model.MemoryFileVersion{}
	for rows.Next() {
		var v model.MemoryFileVersion
		var createdAt string
		if err := rows.Scan(&v.ID, &v.MemoryFileID, &v.Content, &v.Version, &createdAt); err != nil {
			return nil, err
		}
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getFile(ctx context.Context, q rowQueryer, filename string) (*model.MemoryFile, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, filename, description, content, version, created_at, updated_at
		 FROM memory_files WHERE filename = ?`, filename)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFile(row scanner) (model.MemoryFile, error) {
	var f model.MemoryFile
	var createdAt, updatedAt string

	err := row.Scan(&f.ID, &f.Filename, &f.Description, &f.Content, &f.Version, &createdAt, &updatedAt)
	if err != nil {
		return f, err
	}

	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	f.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return f, nil
}
