// Command ragchat runs the retrieval-augmented chat server.
//
// Documents are uploaded as .txt files, chunked and embedded into a
// persistent vector index, and chat messages that mention a document with
// @name.txt are augmented with its content before being forwarded to an
// OpenAI-compatible completion backend such as LM Studio.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ragchat/internal/augment"
	"ragchat/internal/chat"
	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/docstore"
	"ragchat/internal/embedding"
	"ragchat/internal/embedding/hashing"
	"ragchat/internal/embedding/openai"
	"ragchat/internal/ready"
	"ragchat/internal/server"
	"ragchat/internal/store"
	"ragchat/internal/summarizer"
	"ragchat/internal/vectorindex"
	"ragchat/internal/vectorindex/memory"
	"ragchat/internal/vectorindex/sqlite"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragchat/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	// Configuration errors (missing credentials, missing model artifacts)
	// fail here, before anything starts.
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("embedder init failed: %w", err)
	}

	files, err := docstore.NewFileStore(cfg.UploadsDir)
	if err != nil {
		return err
	}

	readyTimeout := time.Duration(cfg.Server.ReadyTimeoutSecs) * time.Second

	// The index opens in the background; handlers block on the gate until
	// it is ready instead of racing a half-initialized store.
	gate := ready.NewGate(logger)
	gate.Start(func() (*store.VectorStore, error) {
		ix, err := buildIndex(cfg)
		if err != nil {
			return nil, err
		}
		return store.New(chunker.NewSentenceChunker(), emb, ix, logger), nil
	})

	policy := augment.NewPolicy(gate.Retriever(readyTimeout), cfg.Augment.InlineThreshold, cfg.Augment.TopK, logger)
	client := chat.NewClient(chat.Config{
		BaseURL:     cfg.Chat.BaseURL,
		APIKeyEnv:   cfg.Chat.APIKeyEnv,
		Timeout:     time.Duration(cfg.Chat.TimeoutSecs) * time.Second,
		Temperature: cfg.Chat.Temperature,
	})
	chatSvc := chat.NewService(files, policy, client, logger)

	srv := server.New(gate, files, chatSvc, summarizer.NewFrequencySummarizer(), readyTimeout, logger)
	logger.Info("starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("uploads_dir", cfg.UploadsDir),
		zap.String("index_dir", cfg.Index.Dir))
	return srv.Router().Run(fmt.Sprintf(":%d", cfg.Server.Port))
}

func buildEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing", "":
		hcfg := hashing.Config{}
		if cfg.Embedder.Hashing != nil {
			hcfg.ManifestPath = cfg.Embedder.Hashing.ManifestPath
			hcfg.Dimension = cfg.Embedder.Hashing.Dimension
		}
		return hashing.NewEmbedder(hcfg)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildIndex(cfg *config.AppConfig) (vectorindex.Index, error) {
	switch cfg.Index.Type {
	case "sqlite", "":
		return sqlite.NewIndex(cfg.Index.Dir)
	case "memory":
		return memory.NewIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index: %s", cfg.Index.Type)
	}
}
