package mockservice

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raysh454/eyes/internal/logging"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

// Ensure SQLiteStore implements Store at compile-time.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, logger logging.Logger) (*SQLiteStore, error) {
	if logger == nil {
		return nil, errors.New("mockservice: nil logger provided")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("SQLiteStore initialized", logging.F("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// applySchema sets pragmas and creates the tables.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutResource(ctx context.Context, res *StoredResource) error {
	updated := res.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	data := res.Data
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (url, content_type, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		res.URL, res.ContentType, data, updated.UnixMilli())
	if err != nil {
		return fmt.Errorf("put resource %s: %w", res.URL, err)
	}
	return nil
}

func (s *SQLiteStore) GetResource(ctx context.Context, url string) (*StoredResource, error) {
	var (
		res     = StoredResource{URL: url}
		updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_type, data, updated_at FROM resources WHERE url = ?`, url).
		Scan(&res.ContentType, &res.Data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w", url, err)
	}
	res.UpdatedAt = time.UnixMilli(updated)
	return &res, nil
}

func (s *SQLiteStore) GetBaseline(ctx context.Context, key BaselineKey) (string, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT dom_text FROM baselines WHERE app_name = ? AND test_name = ? AND tag = ?`,
		key.AppName, key.TestName, key.Tag).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get baseline: %w", err)
	}
	return text, nil
}

func (s *SQLiteStore) SaveBaseline(ctx context.Context, key BaselineKey, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baselines (app_name, test_name, tag, dom_text, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(app_name, test_name, tag) DO UPDATE SET
			dom_text = excluded.dom_text,
			updated_at = excluded.updated_at`,
		key.AppName, key.TestName, key.Tag, text, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save baseline: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
