package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"ragchat/internal/domain"
)

// SentenceChunker splits document text on sentence-terminal punctuation and
// assigns each chunk a content-derived identifier.
type SentenceChunker struct{}

func NewSentenceChunker() *SentenceChunker { return &SentenceChunker{} }

// ContentHash returns the content-addressed hash of a document's raw text.
// Two documents with identical content hash identically regardless of
// filename, which is what makes re-ingestion of unchanged content idempotent.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ChunkID builds the identifier for the chunk at the given ordinal.
func ChunkID(contentHash string, ordinal int) string {
	return fmt.Sprintf("%s_%d", contentHash, ordinal)
}

// Chunk splits the document into trimmed, non-empty sentence chunks.
// A document that yields no chunks returns (nil, nil); callers treat that
// as a soft skip, not a failure.
func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	parts := strings.FieldsFunc(document.Content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	hash := ContentHash(document.Content)
	var chunks []domain.Chunk
	ordinal := 0
	for _, part := range parts {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:       ChunkID(hash, ordinal),
			Filename: document.Filename,
			Ordinal:  ordinal,
			Text:     text,
		})
		ordinal++
	}
	return chunks, nil
}
