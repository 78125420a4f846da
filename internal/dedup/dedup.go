// Package dedup computes the natural keys already persisted for a source so
// adapters can drop known candidates before issuing per-item requests.
// Stored keys are a permanent exclusion list; nothing expires.
package dedup

import (
	"context"
	"fmt"
)

// KeySource lists the distinct values of a field in a collection.
type KeySource interface {
	Distinct(ctx context.Context, collection, field string) ([]string, error)
}

// KeySet is a set of natural keys.
type KeySet map[string]struct{}

// Load fetches the stored keys of collection.field with a single Distinct call.
func Load(ctx context.Context, src KeySource, collection, field string) (KeySet, error) {
	if src == nil {
		return KeySet{}, nil
	}
	values, err := src.Distinct(ctx, collection, field)
	if err != nil {
		return nil, fmt.Errorf("load existing %s keys from %s: %w", field, collection, err)
	}
	set := make(KeySet, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set, nil
}

// Contains reports whether key is in the set.
func (k KeySet) Contains(key string) bool {
	_, ok := k[key]
	return ok
}

// Add inserts key and reports whether it was new.
func (k KeySet) Add(key string) bool {
	if k.Contains(key) {
		return false
	}
	k[key] = struct{}{}
	return true
}

// Exclude returns keys not present in existing, preserving order.
func Exclude(keys []string, existing KeySet) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if existing.Contains(key) {
			continue
		}
		out = append(out, key)
	}
	return out
}
