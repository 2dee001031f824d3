// Package openai embeds text through any OpenAI-compatible embeddings
// endpoint (OpenAI, LM Studio, Ollama's compatibility layer).
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"ragchat/internal/embedding"
)

// Client implements embedding.Embedder against a remote backend.
type Client struct {
	api   *gopenai.Client
	model string

	// The backend loads its model on the first request, which can take
	// seconds. loadMu guards a one-time warm-up so concurrent callers do
	// not all trigger it; a failed warm-up is retried on the next call
	// rather than caching a broken state.
	loadMu    sync.Mutex
	loaded    bool
	dimension int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient validates the configuration and returns an unconnected client.
// Missing credentials are a configuration error reported here, not deferred
// to the first encode.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	apiCfg := gopenai.DefaultConfig(key)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{
		api:   gopenai.NewClientWithConfig(apiCfg),
		model: cfg.Model,
	}, nil
}

// Dimension returns the embedding dimension, 0 before the first encode.
func (c *Client) Dimension() int {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	return c.dimension
}

// EncodeQuery embeds a query with the retrieval instruction prefix and
// normalizes the result.
func (c *Client) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.encode(ctx, []string{embedding.QueryPrefix + text})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	return vectors[0], nil
}

// EncodeDocuments embeds all passages in one request, without the query
// prefix, and normalizes each result.
func (c *Client) EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := c.encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encoding documents: %w", err)
	}
	return vectors, nil
}

func (c *Client) encode(ctx context.Context, inputs []string) ([][]float32, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	resp, err := c.api.CreateEmbeddings(ctx, gopenai.EmbeddingRequest{
		Input: inputs,
		Model: gopenai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("backend returned %d embeddings for %d inputs", len(resp.Data), len(inputs))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		copy(vec, d.Embedding)
		embedding.Normalize(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

// ensureLoaded probes the backend once so the first real encode does not
// race the backend's own model load. Runs at most once successfully.
func (c *Client) ensureLoaded(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.loaded {
		return nil
	}
	resp, err := c.api.CreateEmbeddings(ctx, gopenai.EmbeddingRequest{
		Input: []string{"warm-up"},
		Model: gopenai.EmbeddingModel(c.model),
	})
	if err != nil {
		return fmt.Errorf("loading embedding model %s: %w", c.model, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return fmt.Errorf("embedding model %s returned no vector during warm-up", c.model)
	}
	c.dimension = len(resp.Data[0].Embedding)
	c.loaded = true
	return nil
}
