// Package chat drives a chat turn: mention detection, prompt augmentation,
// and the call to the external completion endpoint.
package chat

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	gopenai "github.com/sashabaranov/go-openai"
)

// SystemPrompt is the fixed instruction sent with every completion request.
const SystemPrompt = "You are a helpful assistant. When analyzing file contents, focus on the relevant context provided and incorporate it into your responses."

// Client talks to an OpenAI-compatible chat-completion endpoint (LM Studio,
// Ollama, OpenAI). The model is discovered from the backend's model list on
// every turn, matching how LM Studio exposes whatever model is loaded.
type Client struct {
	api         *gopenai.Client
	temperature float32
}

// Config configures the completion client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Timeout     time.Duration
	Temperature float32
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:1234/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		// local backends accept any token
		key = "not-needed"
	}
	apiCfg := gopenai.DefaultConfig(key)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: gopenai.NewClientWithConfig(apiCfg), temperature: temperature}
}

// Complete sends the system instruction and the augmented prompt and returns
// the assistant's reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("getting model information: %w", err)
	}
	if len(models.Models) == 0 {
		return "", fmt.Errorf("no models available on the completion backend")
	}
	model := models.Models[0].ID

	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion backend returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
