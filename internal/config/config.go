package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embeddings backend (OpenAI, LM Studio, Ollama).
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
// ManifestPath is optional; when set, the file must exist at construction.
type HashingEmbedderConfig struct {
	ManifestPath string `yaml:"manifest_path,omitempty"`
	Dimension    int    `yaml:"dimension"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	OpenAI  *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Type string `yaml:"type"`
	// Dir is where the sqlite index persists its database file.
	Dir string `yaml:"dir"`
}

// ChatConfig configures the external chat-completion endpoint.
type ChatConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float32 `yaml:"temperature"`
}

// AugmentConfig configures the prompt augmentation policy.
type AugmentConfig struct {
	InlineThreshold int `yaml:"inline_threshold"`
	TopK            int `yaml:"top_k"`
}

// ServerConfig configures the HTTP server and readiness gating.
type ServerConfig struct {
	Port             int `yaml:"port"`
	ReadyTimeoutSecs int `yaml:"ready_timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	UploadsDir string         `yaml:"uploads_dir"`
	Embedder   EmbedderConfig `yaml:"embedder"`
	Index      IndexConfig    `yaml:"index"`
	Chat       ChatConfig     `yaml:"chat"`
	Augment    AugmentConfig  `yaml:"augment"`
	Server     ServerConfig   `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		UploadsDir: "uploads",
		Embedder: EmbedderConfig{
			Type:    "hashing",
			Hashing: &HashingEmbedderConfig{Dimension: 512},
		},
		Index: IndexConfig{Type: "sqlite", Dir: "vector_db"},
		Chat:  ChatConfig{BaseURL: "http://localhost:1234/v1"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.UploadsDir == "" {
		cfg.UploadsDir = "uploads"
	}
	if cfg.Index.Dir == "" {
		cfg.Index.Dir = "vector_db"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "hashing" || cfg.Embedder.Type == "" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 512
		}
	}
	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "http://localhost:1234/v1"
	}
	if cfg.Chat.TimeoutSecs == 0 {
		cfg.Chat.TimeoutSecs = 30
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.7
	}
	if cfg.Augment.InlineThreshold == 0 {
		cfg.Augment.InlineThreshold = 2000
	}
	if cfg.Augment.TopK == 0 {
		cfg.Augment.TopK = 5
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ReadyTimeoutSecs == 0 {
		cfg.Server.ReadyTimeoutSecs = 60
	}
}
