package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/pkg/version"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
	DefaultTimeout     = 120 * time.Second

	generationHint = "Start Ollama with 'ollama serve' or set generation.provider: none"
)

// OllamaConfig configures OllamaGenerator.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
	Retry   planerrors.RetryConfig
	Breaker *planerrors.CircuitBreaker
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// OllamaGenerator generates text with Ollama's /api/chat endpoint.
type OllamaGenerator struct {
	client  *http.Client
	config  OllamaConfig
	breaker *planerrors.CircuitBreaker
}

var _ Generator = (*OllamaGenerator)(nil)

// NewOllamaGenerator fills zero fields of cfg with defaults.
func NewOllamaGenerator(cfg OllamaConfig) *OllamaGenerator {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = planerrors.DefaultRetryConfig()
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = planerrors.NewCircuitBreaker("ollama-chat")
	}
	return &OllamaGenerator{
		client:  &http.Client{},
		config:  cfg,
		breaker: breaker,
	}
}

func (g *OllamaGenerator) ModelName() string { return g.config.Model }

// Breaker exposes the circuit breaker guarding generation calls.
func (g *OllamaGenerator) Breaker() *planerrors.CircuitBreaker { return g.breaker }

// Generate sends the system prompt, history and user message as one chat.
func (g *OllamaGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	req := chatRequest{
		Model:    g.config.Model,
		Messages: buildMessages(p),
		Stream:   false,
		Options:  chatOptions{Temperature: p.Temperature},
	}

	start := time.Now()
	text, err := planerrors.Execute(g.breaker, func() (string, error) {
		return planerrors.RetryWithResult(ctx, g.config.Retry, func() (string, error) {
			return g.chat(ctx, req)
		})
	})
	if errors.Is(err, planerrors.ErrCircuitOpen) {
		return "", planerrors.ModelError("generation paused after repeated failures", err).
			WithDetail("model", g.config.Model).
			WithSuggestion(generationHint)
	}
	if err != nil {
		return "", err
	}

	slog.Debug("generation_complete",
		slog.String("model", g.config.Model),
		slog.String("task", string(p.Task)),
		slog.Int("chars", len(text)),
		slog.Duration("duration", time.Since(start)))
	return text, nil
}

func buildMessages(p Prompt) []chatMessage {
	msgs := make([]chatMessage, 0, len(p.History)+2)
	if p.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: p.System})
	}
	for _, m := range p.History {
		role := "user"
		if m.Role == store.RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Content})
	}
	return append(msgs, chatMessage{Role: "user", Content: p.User})
}

func (g *OllamaGenerator) chat(ctx context.Context, body chatRequest) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, g.config.Host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", planerrors.New(planerrors.ErrCodeGenerationFailed, "generation cancelled", ctx.Err())
		}
		if reqCtx.Err() != nil {
			return "", planerrors.New(planerrors.ErrCodeNetworkTimeout,
				fmt.Sprintf("ollama did not answer within %s", g.config.Timeout), err)
		}
		return "", planerrors.ModelError("ollama unreachable at "+g.config.Host, err).
			WithSuggestion(generationHint)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		code := planerrors.ErrCodeGenerationFailed
		if resp.StatusCode >= 500 {
			code = planerrors.ErrCodeModelUnavailable
		}
		return "", planerrors.New(code,
			fmt.Sprintf("ollama chat status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil).
			WithDetail("model", g.config.Model)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", planerrors.New(planerrors.ErrCodeGenerationFailed, "decode chat response", err)
	}
	if parsed.Error != "" {
		return "", planerrors.New(planerrors.ErrCodeGenerationFailed, parsed.Error, nil)
	}
	return strings.TrimSpace(parsed.Message.Content), nil
}
