package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    ident      TEXT,
    body       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_ident ON documents(collection, ident);
`

type documentRow struct {
	ID   int64  `db:"id"`
	Body string `db:"body"`
}

// sqliteStore implements Store on a single SQLite table of JSON bodies. Rows
// written with a filter carry its identity; rows written without one keep a
// NULL ident, which the unique index never collides on.
type sqliteStore struct {
	db *sqlx.DB
}

// openSQLite opens a SQLite database and runs migrations.
func openSQLite(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Find(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	rows, err := s.rows(ctx, s.db, collection)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}

	var out []Document
	for _, row := range rows {
		doc, err := decodeDocument([]byte(row.Body))
		if err != nil {
			return nil, fmt.Errorf("find in %s: %w", collection, err)
		}
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *sqliteStore) Distinct(ctx context.Context, collection, field string) ([]string, error) {
	rows, err := s.rows(ctx, s.db, collection)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", collection, field, err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		doc, err := decodeDocument([]byte(row.Body))
		if err != nil {
			return nil, fmt.Errorf("distinct %s.%s: %w", collection, field, err)
		}
		out = collectDistinct(out, seen, doc, field)
	}
	return out, nil
}

const upsertByIdent = `
INSERT INTO documents (collection, ident, body) VALUES (?, ?, ?)
ON CONFLICT(collection, ident) DO UPDATE SET body = excluded.body`

const replaceFirst = `
UPDATE documents SET body = ?
WHERE id = (SELECT MIN(id) FROM documents WHERE collection = ?)`

func (s *sqliteStore) Upsert(ctx context.Context, collection string, filter Filter, doc Document) error {
	raw, err := encodeDocument(withFilter(doc, filter))
	if err != nil {
		return err
	}

	if len(filter) > 0 {
		if _, err := s.db.ExecContext(ctx, upsertByIdent, collection, identity(filter), string(raw)); err != nil {
			return fmt.Errorf("upsert into %s: %w", collection, err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, replaceFirst, string(raw), collection)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "INSERT INTO documents (collection, body) VALUES (?, ?)", collection, string(raw)); err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return nil
}

func (s *sqliteStore) rows(ctx context.Context, q sqlx.QueryerContext, collection string) ([]documentRow, error) {
	var rows []documentRow
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT id, body FROM documents WHERE collection = ? ORDER BY id", collection)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return rows, nil
}
