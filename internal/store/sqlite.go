package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite
)

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS course_documents (
  id TEXT PRIMARY KEY CHECK (length(id) BETWEEN 1 AND 36),
  doc TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);`

// SQLiteBackend stores course documents in a local SQLite file.
type SQLiteBackend struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteBackend creates a backend for the database file at path.
// ":memory:" keeps the database in process memory.
func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

func (b *SQLiteBackend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}
	if b.path == "" {
		return fmt.Errorf("sqlite path is empty")
	}

	dsn := b.path
	if b.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
			return fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = "file:" + b.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQLite); err != nil {
		db.Close()
		return fmt.Errorf("ensure sqlite schema: %w", err)
	}

	b.db = db
	return nil
}

func (b *SQLiteBackend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, fmt.Errorf("sqlite backend is not open")
	}
	return b.db, nil
}

func (b *SQLiteBackend) Insert(ctx context.Context, id string, doc []byte) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO course_documents (id, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		id, string(doc), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert course document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert course document: %w", err)
	}
	if n == 0 {
		return ErrDuplicateKey
	}
	return nil
}

func (b *SQLiteBackend) Get(ctx context.Context, id string) ([]byte, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var doc string
	err = db.QueryRowContext(ctx, `SELECT doc FROM course_documents WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course document: %w", err)
	}
	return []byte(doc), nil
}

func (b *SQLiteBackend) List(ctx context.Context) ([][]byte, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT doc FROM course_documents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query course documents: %w", err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan course document: %w", err)
		}
		docs = append(docs, []byte(doc))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course documents: %w", err)
	}
	return docs, nil
}

func (b *SQLiteBackend) Put(ctx context.Context, id string, doc []byte) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO course_documents (id, doc, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		id, string(doc), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put course document: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// HealthCheck pings the database when the backend is open.
func (b *SQLiteBackend) HealthCheck(ctx context.Context) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}
