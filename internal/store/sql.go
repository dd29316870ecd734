package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const createDocumentsTable = `
	CREATE TABLE IF NOT EXISTS cashout_documents (
		doc_key TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`

// SQLBackend keeps the document as one row of the cashout_documents table.
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
	key     string
	now     func() time.Time
}

// OpenSQLBackend opens the database, checks the connection and creates the
// documents table when missing.
func OpenSQLBackend(ctx context.Context, dialect Dialect, dsn, key string) (*SQLBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s store requires a path or DSN", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping failed: %w", dialect, err)
	}

	backend := NewSQLBackend(db, dialect, key)
	if err := backend.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

// NewSQLBackend wraps an open database handle.
func NewSQLBackend(db *sql.DB, dialect Dialect, key string) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect, key: key, now: time.Now}
}

// Migrate creates the documents table when missing.
func (s *SQLBackend) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createDocumentsTable); err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

func (s *SQLBackend) Load(ctx context.Context) ([]byte, error) {
	query := fmt.Sprintf("SELECT body FROM cashout_documents WHERE doc_key = %s", s.placeholder(1))

	var body string
	err := s.db.QueryRowContext(ctx, query, s.key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	return []byte(body), nil
}

func (s *SQLBackend) Save(ctx context.Context, data []byte) error {
	query := fmt.Sprintf(`INSERT INTO cashout_documents (doc_key, body, updated_at) VALUES (%s, %s, %s)
		ON CONFLICT (doc_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3))

	updatedAt := s.now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, query, s.key, string(data), updatedAt); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}

func (s *SQLBackend) Close() error {
	return s.db.Close()
}

func (s *SQLBackend) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
