package watermark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS watermarks (
	key        TEXT PRIMARY KEY,
	sequence   INTEGER NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
)`

// SQLiteStore keeps watermarks in a local SQLite file, for standalone hosts
// without Redis.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, ErrEmptyKey
	}

	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT sequence FROM watermarks WHERE key = ?`, key).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query watermark %q: %w", key, err)
	}
	return seq, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, sequence int64) error {
	if err := validate(key, sequence); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watermarks (key, sequence) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			sequence = excluded.sequence,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, sequence)
	if err != nil {
		return fmt.Errorf("store watermark %q: %w", key, err)
	}
	return nil
}
