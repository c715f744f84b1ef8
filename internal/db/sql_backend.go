package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const DefaultDocumentName = "main"

// SQLBackend stores the document as one row of the documents table. The
// query text is portable between sqlite3 and postgres.
type SQLBackend struct {
	db   *sql.DB
	name string
}

func NewSQLBackend(db *sql.DB, name string) *SQLBackend {
	if name == "" {
		name = DefaultDocumentName
	}
	return &SQLBackend{db: db, name: name}
}

func (b *SQLBackend) Load(ctx context.Context) ([]byte, error) {
	query := `SELECT body FROM documents WHERE name = $1`
	var body string
	err := b.db.QueryRowContext(ctx, query, b.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (b *SQLBackend) Save(ctx context.Context, data []byte) error {
	query := `INSERT INTO documents (name, body, updated_at) VALUES ($1, $2, $3)
	 ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`

	_, err := b.db.ExecContext(ctx, query, b.name, string(data), time.Now().UTC())
	return err
}
