package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// AC01: Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 4000, cfg.Chunking.TargetChars)
	assert.Equal(t, 700, cfg.Chunking.OverlapChars)

	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, 5, cfg.Search.MinResults)
	assert.True(t, cfg.Search.Fallback)
	assert.Equal(t, "adaptive", cfg.Search.Fusion)
	assert.Equal(t, 60, cfg.Search.RRFConstant)

	assert.Equal(t, "hash", cfg.Embeddings.Provider)
	assert.Equal(t, 1536, cfg.Embeddings.Dimensions)
	assert.Equal(t, 100, cfg.Embeddings.BatchSize)
	assert.Equal(t, 1000, cfg.Embeddings.CacheSize)

	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, 6, cfg.Generation.HistoryMessages)
	assert.Equal(t, 0.3, cfg.Generation.Temperature)

	assert.Equal(t, "planqa.db", cfg.Storage.Database)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce())

	require.NoError(t, cfg.Validate())
}

// =============================================================================
// AC02: Layering
// =============================================================================

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config that both set top_k
	xdg := isolate(t)
	writeFile(t, filepath.Join(xdg, "planqa", "config.yaml"), "search:\n  top_k: 7\n  min_results: 2\n")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFile), "search:\n  top_k: 3\n")

	// When: loading
	cfg, err := Load(dir)

	// Then: project wins, untouched user keys survive
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.Equal(t, 2, cfg.Search.MinResults)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
}

func TestLoad_ExplicitZeroAndFalse(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFile), "search:\n  semantic_weight: 0\n  fallback: false\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Search.SemanticWeight)
	assert.False(t, cfg.Search.Fallback)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".planqa.yml"), "embeddings:\n  provider: ollama\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, filepath.Join(dir, ".planqa.yml"), ProjectConfigPath(dir))
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFile), "search:\n  semantic_weight: 0.2\n")
	t.Setenv("PLANQA_SEMANTIC_WEIGHT", "0.8")
	t.Setenv("PLANQA_EMBEDDER", "ollama")
	t.Setenv("PLANQA_OLLAMA_HOST", "http://gpu:11434")
	t.Setenv("PLANQA_GENERATION_PROVIDER", "none")
	t.Setenv("PLANQA_DATA_DIR", "/srv/planqa")
	t.Setenv("PLANQA_TOP_K", "nope")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Search.SemanticWeight)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "http://gpu:11434", cfg.Embeddings.OllamaHost)
	assert.Equal(t, "http://gpu:11434", cfg.Generation.OllamaHost)
	assert.Equal(t, "none", cfg.Generation.Provider)
	assert.Equal(t, filepath.Join("/srv/planqa", "planqa.db"), cfg.DatabasePath())
	assert.Equal(t, 10, cfg.Search.TopK, "unparseable values are ignored")
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectFile), "search: [unclosed")

	_, err := Load(dir)

	assert.ErrorContains(t, err, "failed to parse config file")
}

// =============================================================================
// AC03: Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"weight above one", func(c *Config) { c.Search.SemanticWeight = 1.5 }, "semantic_weight"},
		{"negative weight", func(c *Config) { c.Search.SemanticWeight = -0.1 }, "semantic_weight"},
		{"overlap not below target", func(c *Config) { c.Chunking.OverlapChars = 4000 }, "overlap_chars"},
		{"bad fusion", func(c *Config) { c.Search.Fusion = "bm25" }, "search.fusion"},
		{"bad embedder", func(c *Config) { c.Embeddings.Provider = "mlx" }, "embeddings.provider"},
		{"bad generator", func(c *Config) { c.Generation.Provider = "openai" }, "generation.provider"},
		{"bad transport", func(c *Config) { c.Server.Transport = "sse" }, "server.transport"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "trace" }, "server.log_level"},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "watch.debounce"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestValidate_ExtractiveGenerator(t *testing.T) {
	cfg := NewConfig()
	cfg.Generation.Provider = "extractive"

	assert.NoError(t, cfg.Validate())
}

func TestValidate_BoundaryWeights(t *testing.T) {
	for _, w := range []float64{0, 1} {
		cfg := NewConfig()
		cfg.Search.SemanticWeight = w
		assert.NoError(t, cfg.Validate())
	}
}

// =============================================================================
// AC04: Paths and persistence
// =============================================================================

func TestGetUserConfigPath_XDG(t *testing.T) {
	xdg := isolate(t)
	assert.Equal(t, filepath.Join(xdg, "planqa", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())
}

func TestDataDir_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cfg := NewConfig()
	cfg.Storage.DataDir = "~/plans"

	assert.Equal(t, filepath.Join(home, "plans"), cfg.DataDir())
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Search.Fusion = "rrf"
	cfg.Watch.Extensions = []string{".pdf"}

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectFile)))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "rrf", loaded.Search.Fusion)
	assert.Equal(t, []string{".pdf"}, loaded.Watch.Extensions)
}

func TestDurations_FallBackOnGarbage(t *testing.T) {
	cfg := NewConfig()
	cfg.Generation.Timeout = ""
	cfg.Embeddings.Timeout = "5s"

	assert.Equal(t, 120*time.Second, cfg.GenerationTimeout())
	assert.Equal(t, 5*time.Second, cfg.EmbeddingTimeout())
}
