package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/p-n-ai/pai-study/internal/platform/database"
)

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS course_documents (
  id VARCHAR(36) PRIMARY KEY,
  doc JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PostgresBackend stores course documents as JSONB rows.
type PostgresBackend struct {
	cfg database.Config

	mu sync.RWMutex
	db *database.DB
}

// NewPostgresBackend creates an unopened PostgreSQL backend.
func NewPostgresBackend(cfg database.Config) *PostgresBackend {
	return &PostgresBackend{cfg: cfg}
}

func (b *PostgresBackend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}

	db, err := database.New(ctx, b.cfg)
	if err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, schemaPostgres); err != nil {
		db.Close()
		return fmt.Errorf("ensure postgres schema: %w", err)
	}

	b.db = db
	return nil
}

func (b *PostgresBackend) conn() (*database.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, fmt.Errorf("postgres backend is not open")
	}
	return b.db, nil
}

func (b *PostgresBackend) Insert(ctx context.Context, id string, doc []byte) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	cmd, err := db.Pool.Exec(ctx,
		`INSERT INTO course_documents (id, doc)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO NOTHING`,
		id, string(doc),
	)
	if err != nil {
		return fmt.Errorf("insert course document: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateKey
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, id string) ([]byte, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	var doc string
	err = db.Pool.QueryRow(ctx,
		`SELECT doc::text FROM course_documents WHERE id = $1`,
		id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course document: %w", err)
	}
	return []byte(doc), nil
}

func (b *PostgresBackend) List(ctx context.Context) ([][]byte, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `SELECT doc::text FROM course_documents`)
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

func (b *PostgresBackend) Put(ctx context.Context, id string, doc []byte) error {
	db, err := b.conn()
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx,
		`INSERT INTO course_documents (id, doc)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		id, string(doc),
	)
	if err != nil {
		return fmt.Errorf("put course document: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db != nil {
		b.db.Close()
		b.db = nil
	}
	return nil
}

// HealthCheck pings the pool when the backend is open.
func (b *PostgresBackend) HealthCheck(ctx context.Context) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	return db.HealthCheck(ctx)
}
