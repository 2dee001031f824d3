// Command ragchat-tui is a terminal chat client: it ingests the .txt files
// given on the command line into an in-memory index and then answers chat
// turns through the same augmentation pipeline as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ragchat/internal/augment"
	"ragchat/internal/chat"
	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/docstore"
	"ragchat/internal/embedding/hashing"
	"ragchat/internal/ready"
	"ragchat/internal/store"
	"ragchat/internal/summarizer"
	"ragchat/internal/tui"
	"ragchat/internal/vectorindex/memory"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: ragchat-tui [--config=config.yaml] file1.txt [file2.txt ...]")
		os.Exit(1)
	}

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

	logger := zap.NewNop()

	hcfg := hashing.Config{}
	if cfg.Embedder.Hashing != nil {
		hcfg.ManifestPath = cfg.Embedder.Hashing.ManifestPath
		hcfg.Dimension = cfg.Embedder.Hashing.Dimension
	}
	emb, err := hashing.NewEmbedder(hcfg)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	files, err := docstore.NewFileStore(cfg.UploadsDir)
	if err != nil {
		log.Fatalf("uploads dir init failed: %v", err)
	}

	readyTimeout := time.Duration(cfg.Server.ReadyTimeoutSecs) * time.Second
	st := store.New(chunker.NewSentenceChunker(), emb, memory.NewIndex(), logger)
	gate := ready.NewGate(logger)
	gate.Start(func() (*store.VectorStore, error) { return st, nil })

	// Ingest command-line documents and collect text for the summary header.
	ctx := context.Background()
	var corpus strings.Builder
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("reading %s: %v", path, err)
		}
		name := filepath.Base(path)
		if err := files.Save(name, string(data)); err != nil {
			log.Fatalf("storing %s: %v", name, err)
		}
		if _, err := st.AddDocument(ctx, name, string(data)); err != nil {
			log.Fatalf("indexing %s: %v", name, err)
		}
		corpus.WriteString(string(data))
		corpus.WriteString("\n")
	}
	summary := summarizer.NewFrequencySummarizer().Summarize(corpus.String(), 3)

	policy := augment.NewPolicy(gate.Retriever(readyTimeout), cfg.Augment.InlineThreshold, cfg.Augment.TopK, logger)
	client := chat.NewClient(chat.Config{
		BaseURL:     cfg.Chat.BaseURL,
		APIKeyEnv:   cfg.Chat.APIKeyEnv,
		Timeout:     time.Duration(cfg.Chat.TimeoutSecs) * time.Second,
		Temperature: cfg.Chat.Temperature,
	})
	svc := chat.NewService(files, policy, client, logger)

	m := tui.New(svc, summary)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
