// Package memory is a non-persistent Index for tests and the terminal client.
package memory

import (
	"context"
	"sort"
	"sync"

	"ragchat/internal/vectorindex"
)

// Index keeps entries in a map keyed by chunk ID and answers queries by
// brute-force cosine scan.
type Index struct {
	mu      sync.RWMutex
	entries map[string]vectorindex.Entry
}

func NewIndex() *Index {
	return &Index{entries: make(map[string]vectorindex.Entry)}
}

func (ix *Index) Upsert(ctx context.Context, entries []vectorindex.Entry) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, e := range entries {
		ix.entries[e.ID] = e
	}
	return nil
}

func (ix *Index) Delete(ctx context.Context, ids []string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, id := range ids {
		delete(ix.entries, id)
	}
	return nil
}

func (ix *Index) IDsForFilename(ctx context.Context, filename string) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var ids []string
	for id, e := range ix.entries {
		if e.Filename == filename {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (ix *Index) Query(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if k <= 0 {
		k = 5
	}
	hits := make([]vectorindex.Hit, 0, len(ix.entries))
	for _, e := range ix.entries {
		// vectors are unit length, so cosine distance is 1 - dot
		hits = append(hits, vectorindex.Hit{Entry: e, Distance: 1 - dot(e.Vector, vector)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (ix *Index) Close() error { return nil }

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
