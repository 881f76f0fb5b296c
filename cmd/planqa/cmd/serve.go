package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/api"
	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/logging"
	"github.com/Aman-CERP/planqa/internal/mcp"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var transport, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve planqa over MCP (stdio) or HTTP",
		Long: `Start a long-running server.

Transports:
  stdio  MCP JSON-RPC on stdin/stdout, for AI assistants (default)
  http   REST API with the MCP streamable transport mounted at /mcp,
         Prometheus metrics at /metrics

With stdio, nothing but protocol messages is written to stdout; logs go
to ~/.planqa/logs/planqa.log.`,
		Example: `  planqa serve
  planqa serve --transport http --addr 127.0.0.1:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, transport, addr)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "", "Transport: stdio, http (default: server.transport)")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default: server.http_addr)")

	return cmd
}

func runServe(ctx context.Context, flags *rootFlags, transport, addr string) error {
	a, err := openApp(flags, func(cfg *config.Config) {
		if transport != "" {
			cfg.Server.Transport = transport
		}
		if addr != "" {
			cfg.Server.HTTPAddr = addr
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !flags.debug {
		cleanup, err := reconfigureServerLogging(flags, a.cfg.Server.LogLevel)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcpServer, err := mcp.NewServer(a.store, a.assistant, a.cfg)
	if err != nil {
		return err
	}
	mcpServer.SetMetrics(a.metrics)

	slog.Info("serve_starting",
		slog.String("transport", a.cfg.Server.Transport),
		slog.String("database", a.store.Path()),
		slog.String("embedder", a.embedder.ModelName()),
		slog.String("generator", a.generator.ModelName()))

	switch strings.ToLower(a.cfg.Server.Transport) {
	case "stdio":
		return mcpServer.Serve(ctx)
	case "http":
		srv, err := api.New(api.Deps{
			Docs:      a.store,
			Indexer:   a.indexer,
			Extractor: a.extractor,
			Assistant: a.assistant,
			Metrics:   a.metrics,
			Config:    a.cfg,
			MCP:       mcpServer.HTTPHandler(),
		})
		if err != nil {
			return err
		}
		return srv.Start(ctx, a.cfg.Server.HTTPAddr)
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", a.cfg.Server.Transport)
	}
}

// reconfigureServerLogging swaps the command's logger for the server
// logger at the configured level.
func reconfigureServerLogging(flags *rootFlags, level string) (func(), error) {
	if flags.logCleanup != nil {
		flags.logCleanup()
		flags.logCleanup = nil
	}
	return logging.SetupServer(level)
}
