// Package api serves the planqa REST API over echo.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Aman-CERP/planqa/internal/answer"
	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/extract"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
	"github.com/Aman-CERP/planqa/pkg/indexer"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Deps are the collaborators the API needs. Metrics and MCP are optional.
type Deps struct {
	Docs      store.DocumentStore
	Indexer   indexer.Indexer
	Extractor *extract.Extractor
	Assistant *answer.Assistant
	Metrics   *telemetry.QueryMetrics
	Config    *config.Config

	// MCP, when set, is mounted at /mcp.
	MCP http.Handler
}

// Server is the HTTP front end.
type Server struct {
	echo      *echo.Echo
	docs      store.DocumentStore
	indexer   indexer.Indexer
	extractor *extract.Extractor
	assistant *answer.Assistant
	config    *config.Config
}

// New builds the server and registers its routes.
func New(deps Deps) (*Server, error) {
	if deps.Docs == nil || deps.Indexer == nil || deps.Assistant == nil {
		return nil, errors.New("api: documents, indexer and assistant are required")
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewExtractor()
	}
	if deps.Config == nil {
		deps.Config = config.NewConfig()
	}

	s := &Server{
		echo:      echo.New(),
		docs:      deps.Docs,
		indexer:   deps.Indexer,
		extractor: deps.Extractor,
		assistant: deps.Assistant,
		config:    deps.Config,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				slog.Warn("http_request", append(attrs, slog.String("error", v.Error.Error()))...)
				return nil
			}
			slog.Info("http_request", attrs...)
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}
	if deps.MCP != nil {
		e.Any("/mcp", echo.WrapHandler(deps.MCP))
	}

	g := e.Group("/api")
	if limit := deps.Config.Server.RateLimit; limit > 0 {
		g.Use(rateLimiter(limit))
	}
	g.POST("/documents", s.uploadDocument, middleware.BodyLimit(bodyLimit(extract.DefaultMaxFileSize)))
	g.GET("/documents", s.listDocuments)
	g.DELETE("/documents/:id", s.deleteDocument)
	g.GET("/documents/:id/search", s.searchDocument)
	g.GET("/documents/:id/conversation", s.conversation)
	g.POST("/chat", s.chat)
	g.POST("/summary", s.summary)

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_starting", slog.String("addr", addr))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("http_server_stopped")
	return nil
}

// rateLimiter allows perSecond sustained requests per client IP with a burst
// of twice that.
func rateLimiter(perSecond float64) echo.MiddlewareFunc {
	limits := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     max(1, int(perSecond*2)),
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: limits,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.Warn("rate_limited", slog.String("client", identifier))
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
