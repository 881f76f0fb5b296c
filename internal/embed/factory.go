package embed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ProviderType selects an embedding backend.
type ProviderType string

const (
	// ProviderHash uses HashEmbedder: offline and deterministic.
	ProviderHash ProviderType = "hash"

	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"
)

// ParseProvider validates a provider name. Empty selects ProviderHash.
func ParseProvider(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProviderHash:
		return ProviderHash, nil
	case ProviderOllama:
		return ProviderOllama, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (want hash or ollama)", s)
	}
}

// Options configures NewEmbedder.
type Options struct {
	Provider   ProviderType
	Model      string
	Dimensions int
	BatchSize  int
	Host       string
	Timeout    time.Duration
	CacheSize  int
}

// NewEmbedder builds the configured embedder wrapped in a CachedEmbedder.
//
// PLANQA_EMBEDDER overrides the provider and PLANQA_OLLAMA_HOST the host.
// PLANQA_EMBED_CACHE=false disables the cache.
func NewEmbedder(opts Options) (Embedder, error) {
	if env := os.Getenv("PLANQA_EMBEDDER"); env != "" {
		opts.Provider = ProviderType(env)
	}
	provider, err := ParseProvider(string(opts.Provider))
	if err != nil {
		return nil, err
	}

	var e Embedder
	switch provider {
	case ProviderOllama:
		host := opts.Host
		if env := os.Getenv("PLANQA_OLLAMA_HOST"); env != "" {
			host = env
		}
		cfg := DefaultOllamaConfig()
		cfg.Host = host
		cfg.Model = opts.Model
		cfg.Dimensions = opts.Dimensions
		cfg.BatchSize = opts.BatchSize
		cfg.Timeout = opts.Timeout
		e = NewOllamaEmbedder(cfg)
	default:
		e = NewHashEmbedder(opts.Dimensions)
	}

	slog.Debug("embedder_selected",
		slog.String("provider", string(provider)),
		slog.String("model", e.ModelName()),
		slog.Int("dimensions", e.Dimensions()))

	if isCacheDisabled() {
		return e, nil
	}
	return NewCachedEmbedder(e, opts.CacheSize), nil
}

func isCacheDisabled() bool {
	switch strings.ToLower(os.Getenv("PLANQA_EMBED_CACHE")) {
	case "false", "0", "off", "disabled":
		return true
	}
	return false
}
