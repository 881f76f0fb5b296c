package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/embed"
)

// probeTimeout bounds each backend probe.
const probeTimeout = 3 * time.Second

// CheckEmbedder verifies the embedding backend. Ingestion and semantic search
// cannot run without it, so an unreachable Ollama model fails the check.
func (c *Checker) CheckEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
	}

	provider, err := embed.ParseProvider(cfg.Provider)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	if provider == embed.ProviderHash {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("hash vectors (%s, %d dims)", embed.HashModelName, cfg.Dimensions)
		return result
	}

	return c.checkOllama(ctx, result, cfg.OllamaHost, cfg.Model,
		"Run 'ollama pull "+cfg.Model+"' or set embeddings.provider: hash")
}

// CheckGenerator verifies the answer generator. Search keeps working without
// it, so an offline model is only a warning.
func (c *Checker) CheckGenerator(ctx context.Context, cfg config.GenerationConfig) CheckResult {
	result := CheckResult{
		Name: "generator",
	}

	switch strings.ToLower(cfg.Provider) {
	case "none", "extractive":
		result.Status = StatusPass
		result.Message = "extractive answers (no model)"
		return result
	case "ollama":
		return c.checkOllama(ctx, result, cfg.OllamaHost, cfg.Model,
			"Run 'ollama pull "+cfg.Model+"' or set generation.provider: none")
	default:
		result.Status = StatusFail
		result.Required = true
		result.Message = fmt.Sprintf("unknown generation provider %q", cfg.Provider)
		return result
	}
}

func (c *Checker) checkOllama(ctx context.Context, result CheckResult, host, model, hint string) CheckResult {
	if c.offline {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("ollama %s not probed (offline)", model)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if c.probe(ctx, host, model) {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("ollama %s at %s", model, host)
		return result
	}

	if result.Required {
		result.Status = StatusFail
	} else {
		result.Status = StatusWarn
	}
	result.Message = fmt.Sprintf("ollama %s not available at %s", model, host)
	result.Details = hint
	return result
}
