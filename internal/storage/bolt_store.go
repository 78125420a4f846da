package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltStore implements a Store backed by BoltDB. Each collection is a bucket
// whose keys are big-endian bucket sequence numbers, so cursor order is
// insertion order. A second bucket per collection maps document identities
// to those keys.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Find returns documents of collection matching filter in insertion order.
func (b *boltStore) Find(_ context.Context, collection string, filter Filter) ([]Document, error) {
	var out []Document
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			doc, err := decodeDocument(v)
			if err != nil {
				return err
			}
			if matches(doc, filter) {
				out = append(out, doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	return out, nil
}

// Distinct returns the distinct values of field across the collection.
func (b *boltStore) Distinct(_ context.Context, collection, field string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			doc, err := decodeDocument(v)
			if err != nil {
				return err
			}
			out = collectDistinct(out, seen, doc, field)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", collection, field, err)
	}
	return out, nil
}

// Upsert writes doc under the identity of filter. A sibling index bucket maps
// identities to sequence keys, so the lookup never decodes stored documents.
func (b *boltStore) Upsert(_ context.Context, collection string, filter Filter, doc Document) error {
	raw, err := encodeDocument(withFilter(doc, filter))
	if err != nil {
		return err
	}

	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}

		if len(filter) == 0 {
			if k, _ := bucket.Cursor().First(); k != nil {
				return bucket.Put(append([]byte(nil), k...), raw)
			}
			return putNext(bucket, raw)
		}

		index, err := tx.CreateBucketIfNotExists(indexBucket(collection))
		if err != nil {
			return err
		}
		ident := []byte(identity(filter))
		if key := index.Get(ident); key != nil {
			return bucket.Put(append([]byte(nil), key...), raw)
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := sequenceKey(seq)
		if err := bucket.Put(key, raw); err != nil {
			return err
		}
		return index.Put(ident, key)
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return nil
}

func putNext(bucket *bolt.Bucket, raw []byte) error {
	seq, err := bucket.NextSequence()
	if err != nil {
		return err
	}
	return bucket.Put(sequenceKey(seq), raw)
}

func indexBucket(collection string) []byte {
	return []byte(collection + "\x00ident")
}

func sequenceKey(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}
