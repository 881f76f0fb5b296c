// Package config loads planqa configuration from defaults, YAML files and
// PLANQA_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectFile is the per-directory config file name.
	ProjectFile    = ".planqa.yaml"
	projectFileAlt = ".planqa.yml"

	appName = "planqa"
)

// Config is the complete planqa configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
}

// ChunkingConfig sizes page chunks in characters.
type ChunkingConfig struct {
	TargetChars  int `yaml:"target_chars" json:"target_chars"`
	OverlapChars int `yaml:"overlap_chars" json:"overlap_chars"`
}

// SearchConfig tunes retrieval.
type SearchConfig struct {
	// SemanticWeight is the share given to cosine similarity (0.0-1.0).
	// The lexical family receives 1 - SemanticWeight.
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	TopK           int     `yaml:"top_k" json:"top_k"`

	// MinResults is the hybrid result count below which keyword hits are
	// merged in. Fallback turns that behavior off when false.
	MinResults int  `yaml:"min_results" json:"min_results"`
	Fallback   bool `yaml:"fallback" json:"fallback"`

	// Fusion is "adaptive" (default) or "rrf".
	Fusion      string `yaml:"fusion" json:"fusion"`
	RRFConstant int    `yaml:"rrf_constant" json:"rrf_constant"`

	// Workers caps parallel scoring; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"` // hash or ollama
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`
	Timeout    string `yaml:"timeout" json:"timeout"`
}

// GenerationConfig selects the answer generator.
type GenerationConfig struct {
	Provider        string  `yaml:"provider" json:"provider"` // ollama or none
	Model           string  `yaml:"model" json:"model"`
	OllamaHost      string  `yaml:"ollama_host" json:"ollama_host"`
	Timeout         string  `yaml:"timeout" json:"timeout"`
	Temperature     float64 `yaml:"temperature" json:"temperature"`
	HistoryMessages int     `yaml:"history_messages" json:"history_messages"`
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DataDir  string `yaml:"data_dir" json:"data_dir"`
	Database string `yaml:"database" json:"database"`
}

// ServerConfig configures `planqa serve`.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"` // stdio (MCP) or http (REST API)
	HTTPAddr  string `yaml:"http_addr" json:"http_addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`

	// RateLimit is the sustained requests per second allowed per client on
	// /api; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
}

// WatchConfig configures the inbox watcher.
type WatchConfig struct {
	Debounce   string   `yaml:"debounce" json:"debounce"`
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Chunking: ChunkingConfig{
			TargetChars:  4000,
			OverlapChars: 700,
		},
		Search: SearchConfig{
			SemanticWeight: 0.5,
			TopK:           10,
			MinResults:     5,
			Fallback:       true,
			Fusion:         "adaptive",
			RRFConstant:    60,
			Workers:        0,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "hash",
			Model:      "nomic-embed-text",
			Dimensions: 1536,
			BatchSize:  100,
			OllamaHost: "http://localhost:11434",
			CacheSize:  1000,
			Timeout:    "60s",
		},
		Generation: GenerationConfig{
			Provider:        "ollama",
			Model:           "llama3.2",
			OllamaHost:      "http://localhost:11434",
			Timeout:         "120s",
			Temperature:     0.3,
			HistoryMessages: 6,
		},
		Storage: StorageConfig{
			DataDir:  defaultDataDir(),
			Database: "planqa.db",
		},
		Server: ServerConfig{
			Transport: "stdio",
			HTTPAddr:  "127.0.0.1:8080",
			LogLevel:  "info",
			RateLimit: 20,
		},
		Watch: WatchConfig{
			Debounce:   "500ms",
			Extensions: []string{".pdf", ".txt", ".md", ".docx"},
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "."+appName)
	}
	return filepath.Join(home, "."+appName)
}

// GetUserConfigPath returns $XDG_CONFIG_HOME/planqa/config.yaml, falling
// back to ~/.config/planqa/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", appName, "config.yaml")
	}
	return filepath.Join(home, ".config", appName, "config.yaml")
}

// UserConfigExists reports whether the user config file is present.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for dir. Precedence, lowest first:
//  1. Defaults
//  2. User config (GetUserConfigPath)
//  3. Project config (.planqa.yaml or .planqa.yml in dir)
//  4. PLANQA_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := ProjectConfigPath(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config in dir, preferring .yaml
// over .yml, or "" when neither exists.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectFile, projectFileAlt} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

// loadYAML decodes path over c. Keys absent from the file keep their
// current value, so explicit zeros and false are honored.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies PLANQA_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PLANQA_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("PLANQA_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.TopK = k
		}
	}
	if v := os.Getenv("PLANQA_FUSION"); v != "" {
		c.Search.Fusion = v
	}
	if v := os.Getenv("PLANQA_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}

	if v := os.Getenv("PLANQA_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	// PLANQA_EMBEDDER is an alias for PLANQA_EMBEDDINGS_PROVIDER
	if v := os.Getenv("PLANQA_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("PLANQA_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("PLANQA_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
		c.Generation.OllamaHost = v
	}

	if v := os.Getenv("PLANQA_GENERATION_PROVIDER"); v != "" {
		c.Generation.Provider = v
	}
	if v := os.Getenv("PLANQA_GENERATION_MODEL"); v != "" {
		c.Generation.Model = v
	}

	if v := os.Getenv("PLANQA_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("PLANQA_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("PLANQA_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("PLANQA_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Chunking.TargetChars <= 0 {
		return fmt.Errorf("chunking.target_chars must be positive, got %d", c.Chunking.TargetChars)
	}
	if c.Chunking.OverlapChars < 0 || c.Chunking.OverlapChars >= c.Chunking.TargetChars {
		return fmt.Errorf("chunking.overlap_chars must be in [0, target_chars), got %d", c.Chunking.OverlapChars)
	}

	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be between 0 and 1, got %g", c.Search.SemanticWeight)
	}
	if c.Search.TopK < 0 {
		return fmt.Errorf("search.top_k must be non-negative, got %d", c.Search.TopK)
	}
	if c.Search.MinResults < 0 {
		return fmt.Errorf("search.min_results must be non-negative, got %d", c.Search.MinResults)
	}
	if c.Search.Workers < 0 {
		return fmt.Errorf("search.workers must be non-negative, got %d", c.Search.Workers)
	}
	switch strings.ToLower(c.Search.Fusion) {
	case "", "adaptive", "rrf":
	default:
		return fmt.Errorf("search.fusion must be 'adaptive' or 'rrf', got %s", c.Search.Fusion)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "", "hash", "ollama":
	default:
		return fmt.Errorf("embeddings.provider must be 'hash' or 'ollama', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}

	switch strings.ToLower(c.Generation.Provider) {
	case "ollama", "none", "extractive":
	default:
		return fmt.Errorf("generation.provider must be 'ollama', 'none' or 'extractive', got %s", c.Generation.Provider)
	}
	if c.Generation.HistoryMessages < 0 {
		return fmt.Errorf("generation.history_messages must be non-negative, got %d", c.Generation.HistoryMessages)
	}

	for name, v := range map[string]string{
		"embeddings.timeout": c.Embeddings.Timeout,
		"generation.timeout": c.Generation.Timeout,
		"watch.debounce":     c.Watch.Debounce,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s must be a duration, got %s", name, v)
		}
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be non-negative, got %g", c.Server.RateLimit)
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// DataDir returns Storage.DataDir with a leading ~ expanded.
func (c *Config) DataDir() string {
	dir := c.Storage.DataDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	return dir
}

// DatabasePath returns the SQLite file path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), c.Storage.Database)
}

// WatchDebounce parses Watch.Debounce, defaulting to 500ms.
func (c *Config) WatchDebounce() time.Duration {
	return durationOr(c.Watch.Debounce, 500*time.Millisecond)
}

// EmbeddingTimeout parses Embeddings.Timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return durationOr(c.Embeddings.Timeout, 60*time.Second)
}

// GenerationTimeout parses Generation.Timeout.
func (c *Config) GenerationTimeout() time.Duration {
	return durationOr(c.Generation.Timeout, 120*time.Second)
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// WriteYAML writes the configuration to path, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
