package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/fetch"
	"github.com/jonathan/cv-tailor/internal/ingestion"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/sirupsen/logrus"
)

// loadConfig resolves the effective configuration and builds the logger from it
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newClient builds the configured LLM client; apiKey overrides the configured key
func newClient(ctx context.Context, cfg *config.Config, apiKey string) (llm.Client, error) {
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("an API key is required: set LLM_API_KEY (or the provider's key variable) or pass --api-key")
	}
	llmCfg, err := cfg.LLMConfig()
	if err != nil {
		return nil, err
	}
	return llm.NewClient(ctx, llmCfg, apiKey)
}

// newFetcher returns the job posting fetcher, cached in Redis when REDIS_URL is set
func newFetcher(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) *fetch.CachedFetcher {
	httpFetcher := fetch.NewHTTPFetcher(fetch.DefaultOptions(), cfg.UseBrowser, log)
	return fetch.NewCachedFetcher(ctx, httpFetcher, cfg.RedisURL, fetch.DefaultCacheTTL, log)
}

// readJob returns the job description from a file or a URL; exactly one must be given
func readJob(ctx context.Context, path, url string, fetcher fetch.Fetcher) (string, error) {
	switch {
	case path == "" && url == "":
		return "", fmt.Errorf("either --job or --job-url must be provided")
	case path != "" && url != "":
		return "", fmt.Errorf("--job and --job-url are mutually exclusive; provide only one")
	case path != "":
		text, _, err := ingestion.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		return text, nil
	}

	text, _, err := ingestion.IngestFromURL(ctx, fetcher, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch job posting: %w", err)
	}
	return text, nil
}

// readCV extracts the text of a CV document
func readCV(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--cv is required")
	}
	text, _, err := ingestion.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read CV: %w", err)
	}
	return text, nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-"
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
