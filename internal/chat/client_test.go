package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend mimics the two endpoints of an OpenAI-compatible server that
// Complete talks to: model discovery and chat completion.
type fakeBackend struct {
	models      []string
	reply       string
	lastRequest map[string]any
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, len(b.models))
		for i, id := range b.models {
			data[i] = map[string]any{"id": id, "object": "model"}
		}
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&b.lastRequest))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": b.reply}},
			},
		})
	})
	return mux
}

func TestCompleteUsesFirstDiscoveredModel(t *testing.T) {
	backend := &fakeBackend{models: []string{"local-model", "other-model"}, reply: "the answer"}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	reply, err := client.Complete(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "the answer", reply)

	assert.Equal(t, "local-model", backend.lastRequest["model"])
	messages, ok := backend.lastRequest["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	user := messages[1].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, SystemPrompt, system["content"])
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, "the prompt", user["content"])
	assert.InDelta(t, 0.7, backend.lastRequest["temperature"], 1e-6)
}

func TestCompleteFailsWithNoModels(t *testing.T) {
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler(t))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models available")
}

func TestCompleteReportsUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting model information")
}
