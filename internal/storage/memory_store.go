package storage

import (
	"context"
	"sync"
)

// memoryStore keeps documents in process memory. Documents round-trip through
// JSON so reads return the same value types as the on-disk backends.
type memoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	docs  [][]byte
	index map[string]int
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{collections: make(map[string]*memoryCollection)}
}

func (m *memoryStore) docs(collection string) [][]byte {
	if c := m.collections[collection]; c != nil {
		return c.docs
	}
	return nil
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Find(_ context.Context, collection string, filter Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, raw := range m.docs(collection) {
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		if matches(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memoryStore) Distinct(_ context.Context, collection, field string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, raw := range m.docs(collection) {
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		out = collectDistinct(out, seen, doc, field)
	}
	return out, nil
}

func (m *memoryStore) Upsert(_ context.Context, collection string, filter Filter, doc Document) error {
	raw, err := encodeDocument(withFilter(doc, filter))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.collections[collection]
	if c == nil {
		c = &memoryCollection{index: make(map[string]int)}
		m.collections[collection] = c
	}

	if len(filter) == 0 {
		if len(c.docs) > 0 {
			c.docs[0] = raw
			return nil
		}
		c.docs = append(c.docs, raw)
		return nil
	}

	ident := identity(filter)
	if i, ok := c.index[ident]; ok {
		c.docs[i] = raw
		return nil
	}
	c.index[ident] = len(c.docs)
	c.docs = append(c.docs, raw)
	return nil
}
