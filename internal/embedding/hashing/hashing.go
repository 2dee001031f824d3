// Package hashing provides a local, deterministic embedder based on the
// feature-hashing trick: tokens are hashed into a fixed number of buckets,
// weighted by term frequency, and L2-normalized. It needs no remote backend
// and no corpus preparation pass, which makes it suitable for offline use
// and for tests.
package hashing

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"regexp"
	"strings"
	"sync"

	"ragchat/internal/embedding"
)

const defaultDimension = 512

// Manifest is the optional on-disk model artifact: it pins the dimension
// and stopword list so separately-built indexes stay compatible.
type Manifest struct {
	Dimension int      `json:"dimension"`
	Stopwords []string `json:"stopwords"`
}

// Embedder implements embedding.Embedder with hashed bag-of-words vectors.
type Embedder struct {
	manifestPath string
	tokenPattern *regexp.Regexp

	// Manifest loading is lazy and happens at most once; a load failure is
	// retried on the next encode instead of leaving the embedder half-built.
	loadMu    sync.Mutex
	loaded    bool
	dimension int
	stopwords map[string]struct{}
}

// Config configures the hashing embedder.
type Config struct {
	// ManifestPath is optional. When set, the file must exist; a missing
	// artifact is a configuration error at construction time.
	ManifestPath string
	// Dimension is used when no manifest is configured.
	Dimension int
}

// NewEmbedder validates the configuration and returns an embedder whose
// manifest, if any, loads on first use.
func NewEmbedder(cfg Config) (*Embedder, error) {
	if cfg.ManifestPath != "" {
		if _, err := os.Stat(cfg.ManifestPath); err != nil {
			return nil, fmt.Errorf("embedder manifest not found at %s: %w", cfg.ManifestPath, err)
		}
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = defaultDimension
	}
	return &Embedder{
		manifestPath: cfg.ManifestPath,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		dimension:    dim,
	}, nil
}

// Dimension returns the vector length.
func (e *Embedder) Dimension() int {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	return e.dimension
}

// EncodeQuery embeds a query with the retrieval instruction prefix.
func (e *Embedder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	if err := e.ensureLoaded(); err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	return e.embed(embedding.QueryPrefix + text), nil
}

// EncodeDocuments embeds passages without the query prefix.
func (e *Embedder) EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.ensureLoaded(); err != nil {
		return nil, fmt.Errorf("encoding documents: %w", err)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)
	total := 0
	for _, tok := range e.tokenize(text) {
		vec[e.bucket(tok)]++
		total++
	}
	if total == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= float32(total)
	}
	embedding.Normalize(vec)
	return vec
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimension))
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (e *Embedder) ensureLoaded() error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if e.loaded {
		return nil
	}
	if e.manifestPath == "" {
		e.stopwords = defaultStopwords()
		e.loaded = true
		return nil
	}
	data, err := os.ReadFile(e.manifestPath)
	if err != nil {
		return fmt.Errorf("loading embedder manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing embedder manifest %s: %w", e.manifestPath, err)
	}
	if m.Dimension > 0 {
		e.dimension = m.Dimension
	}
	if len(m.Stopwords) > 0 {
		e.stopwords = make(map[string]struct{}, len(m.Stopwords))
		for _, w := range m.Stopwords {
			e.stopwords[w] = struct{}{}
		}
	} else {
		e.stopwords = defaultStopwords()
	}
	e.loaded = true
	return nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
