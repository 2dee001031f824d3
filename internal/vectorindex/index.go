// Package vectorindex defines the persistent similarity-search index keyed
// by chunk identifier.
package vectorindex

import "context"

// Entry is one indexed chunk: identifier, unit-length embedding, text, and
// source-document metadata.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Filename string
	Ordinal  int
}

// Hit is one nearest-neighbor result. Distance is cosine distance; callers
// convert to similarity as 1 - distance.
type Hit struct {
	Entry
	Distance float64
}

// Index stores entries keyed by chunk ID and answers cosine nearest-neighbor
// queries. Re-upserting an existing ID overwrites the entry in place, which
// is what makes re-ingestion of unchanged content idempotent. The index does
// not enforce any foreign-key relationship to documents; callers resolve a
// filename to IDs and delete those before dropping the document itself.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, ids []string) error
	IDsForFilename(ctx context.Context, filename string) ([]string, error)
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Close() error
}
