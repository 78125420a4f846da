package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Package storage provides the document store the pipeline persists into.

// Document is a stored record: a JSON-compatible field map.
type Document map[string]any

// Filter selects documents by top-level field equality. An empty filter matches all.
type Filter map[string]any

// Store is the minimal document-store surface used by the pipeline.
type Store interface {
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Distinct(ctx context.Context, collection, field string) ([]string, error)
	// Upsert stores doc under the identity of filter, replacing whatever was
	// stored under the same identity. An empty filter replaces the first
	// document of the collection.
	Upsert(ctx context.Context, collection string, filter Filter, doc Document) error
	Close() error
}

// ErrUnsupportedType is returned by NewStore for unknown backend names.
var ErrUnsupportedType = errors.New("unsupported storage type")

const (
	TypeBBolt  = "bbolt"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// Options carries backend-specific locations.
type Options struct {
	BBoltPath  string
	SQLitePath string
}

// NewStore creates the configured storage backend.
func NewStore(typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", TypeBBolt:
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BBoltPath)
	case TypeSQLite:
		if strings.TrimSpace(opts.SQLitePath) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(opts.SQLitePath)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedType, typ)
	}
}
