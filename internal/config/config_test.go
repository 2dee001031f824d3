package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "uploads", cfg.UploadsDir)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.Hashing)
	assert.Equal(t, 512, cfg.Embedder.Hashing.Dimension)
	assert.Equal(t, "sqlite", cfg.Index.Type)
	assert.Equal(t, "vector_db", cfg.Index.Dir)
	assert.Equal(t, "http://localhost:1234/v1", cfg.Chat.BaseURL)
	assert.Equal(t, 30, cfg.Chat.TimeoutSecs)
	assert.InDelta(t, 0.7, float64(cfg.Chat.Temperature), 1e-6)
	assert.Equal(t, 2000, cfg.Augment.InlineThreshold)
	assert.Equal(t, 5, cfg.Augment.TopK)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.ReadyTimeoutSecs)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
uploads_dir: /data/docs
server:
  port: 8080
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/docs", cfg.UploadsDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Server.ReadyTimeoutSecs)
	assert.Equal(t, "vector_db", cfg.Index.Dir)
	require.NotNil(t, cfg.Embedder.Hashing)
	assert.Equal(t, 512, cfg.Embedder.Hashing.Dimension)
}

func TestLoadOpenAIEmbedderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: openai
  openai:
    model: custom-embed
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "custom-embed", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, 30, cfg.Embedder.OpenAI.TimeoutSecs)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("uploads_dir: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Port = 9999
	cfg.Augment.TopK = 7

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, loaded.Server.Port)
	assert.Equal(t, 7, loaded.Augment.TopK)
	assert.Equal(t, cfg.Chat.BaseURL, loaded.Chat.BaseURL)
}
