// Package augment decides what document context to prepend to a chat query
// before it is sent to the completion endpoint.
package augment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ragchat/internal/domain"
)

// DefaultInlineThreshold is the document size, in characters, at or below
// which the whole document is inlined instead of retrieved in chunks.
const DefaultInlineThreshold = 2000

// Retriever is the similarity-query subset of the retrieval orchestrator.
type Retriever interface {
	QuerySimilar(ctx context.Context, query string, k int) ([]domain.QueryResult, error)
}

// Policy formats augmented prompts. It holds no per-request state.
type Policy struct {
	retriever       Retriever
	inlineThreshold int
	topK            int
	logger          *zap.Logger
}

func NewPolicy(retriever Retriever, inlineThreshold, topK int, logger *zap.Logger) *Policy {
	if inlineThreshold <= 0 {
		inlineThreshold = DefaultInlineThreshold
	}
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{retriever: retriever, inlineThreshold: inlineThreshold, topK: topK, logger: logger}
}

// Augment builds the prompt for a chat turn. With no referenced document the
// query passes through unchanged. A small document is inlined whole; a large
// one is represented by retrieved chunks. Retrieval failures degrade to
// inlining the raw content — augmentation never blocks the chat turn.
func (p *Policy) Augment(ctx context.Context, query string, doc *domain.Document) string {
	if doc == nil {
		return query
	}
	if len(doc.Content) <= p.inlineThreshold {
		return fmt.Sprintf("The content of %s is:\n\n%s\n\n%s", doc.Filename, doc.Content, query)
	}
	results, err := p.retriever.QuerySimilar(ctx, query, p.topK)
	if err != nil {
		p.logger.Warn("similarity search failed, falling back to raw content",
			zap.String("filename", doc.Filename),
			zap.Error(err))
		return fmt.Sprintf("Content of %s: %s\n\n%s", doc.Filename, doc.Content, query)
	}
	return withRelevantChunks(query, results)
}

// withRelevantChunks renders retrieved chunks, best match first, ahead of
// the query. No chunks means no augmentation.
func withRelevantChunks(query string, results []domain.QueryResult) string {
	if len(results) == 0 {
		return query
	}
	sorted := make([]domain.QueryResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Similarity > sorted[j].Similarity })

	blocks := make([]string, len(sorted))
	for i, r := range sorted {
		blocks[i] = fmt.Sprintf("From %s (similarity: %.2f):\n%s", r.Filename, r.Similarity, r.Text)
	}
	return fmt.Sprintf("I found the following relevant information from the documents:\n\n%s\n\nBased on this context, please help with the following query:\n%s",
		strings.Join(blocks, "\n\n"), query)
}
