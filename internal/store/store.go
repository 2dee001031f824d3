// Package store composes chunking, embedding, and the vector index into the
// document retrieval pipeline.
package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/vectorindex"
)

// VectorStore is the retrieval orchestrator: it ingests documents, removes
// them, and answers similarity queries with ranked results.
type VectorStore struct {
	chunker  domain.Chunker
	embedder embedding.Embedder
	index    vectorindex.Index
	logger   *zap.Logger
}

func New(chunker domain.Chunker, embedder embedding.Embedder, index vectorindex.Index, logger *zap.Logger) *VectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorStore{chunker: chunker, embedder: embedder, index: index, logger: logger}
}

// AddDocument chunks the content, embeds all chunks in one batched call, and
// upserts them. Returns the number of chunks indexed. A document with no
// usable chunks is skipped with a warning, not an error. Chunk IDs derive
// from the content hash, so re-adding identical content overwrites the same
// entries; chunks from a previous, differently-worded version of the same
// filename are NOT removed here — callers must RemoveDocument first when
// replacing content.
func (s *VectorStore) AddDocument(ctx context.Context, filename, content string) (int, error) {
	chunks, err := s.chunker.Chunk(domain.Document{Filename: filename, Content: content})
	if err != nil {
		return 0, fmt.Errorf("chunking %s: %w", filename, err)
	}
	if len(chunks) == 0 {
		s.logger.Warn("no valid chunks found in document, skipping ingestion", zap.String("filename", filename))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	// One batched encoding call; per-chunk calls would be unacceptably slow
	// for large documents.
	vectors, err := s.embedder.EncodeDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks of %s: %w", len(chunks), filename, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]vectorindex.Entry, len(chunks))
	for i, ch := range chunks {
		entries[i] = vectorindex.Entry{
			ID:       ch.ID,
			Vector:   vectors[i],
			Text:     ch.Text,
			Filename: ch.Filename,
			Ordinal:  ch.Ordinal,
		}
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", filename, err)
	}
	s.logger.Info("document indexed",
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// RemoveDocument deletes all index entries whose metadata matches filename
// and returns how many were removed. An unknown filename is a no-op, not an
// error.
func (s *VectorStore) RemoveDocument(ctx context.Context, filename string) (int, error) {
	ids, err := s.index.IDsForFilename(ctx, filename)
	if err != nil {
		return 0, fmt.Errorf("resolving chunks of %s: %w", filename, err)
	}
	if len(ids) == 0 {
		s.logger.Info("document not found in index", zap.String("filename", filename))
		return 0, nil
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return 0, fmt.Errorf("removing %s: %w", filename, err)
	}
	s.logger.Info("document removed from index",
		zap.String("filename", filename),
		zap.Int("chunks", len(ids)))
	return len(ids), nil
}

// QuerySimilar returns the top-k chunks ranked by similarity to the query.
// Empty or whitespace-only queries and an empty index both yield an empty
// result set rather than an error.
func (s *VectorStore) QuerySimilar(ctx context.Context, query string, k int) ([]domain.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		s.logger.Warn("empty query received")
		return nil, nil
	}
	vector, err := s.embedder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := s.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	results := make([]domain.QueryResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.QueryResult{
			Filename:   h.Filename,
			Ordinal:    h.Ordinal,
			Text:       h.Text,
			Similarity: 1 - h.Distance,
		})
	}
	return results, nil
}

// Close releases the underlying index.
func (s *VectorStore) Close() error {
	return s.index.Close()
}
