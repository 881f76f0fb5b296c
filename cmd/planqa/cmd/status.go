package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/embed"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/ui"
)

// backendProbeTimeout bounds each Ollama availability check.
const backendProbeTimeout = 2 * time.Second

func newStatusCmd(flags *rootFlags) *cobra.Command {
	var jsonOutput, noColor bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store contents and backend health",
		Long: `Show how many documents are ingested, the database location and size,
and whether the embedding and generation backends are reachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(flags, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			info, err := collectStatus(cmd.Context(), a)
			if err != nil {
				return err
			}
			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor())
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")

	return cmd
}

func collectStatus(ctx context.Context, a *app) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		DataPath:          a.store.Path(),
		EmbedderProvider:  a.cfg.Embeddings.Provider,
		GeneratorProvider: a.cfg.Generation.Provider,
	}

	docs, err := a.store.ListDocuments(ctx)
	if err != nil {
		return info, planerrors.New(planerrors.ErrCodeStorageFailed, "failed to list documents", err)
	}
	info.Documents = len(docs)
	for _, d := range docs {
		info.Pages += d.PageCount
		info.Chunks += d.ChunkCount
		if d.UploadedAt.After(info.LastIngested) {
			info.LastIngested = d.UploadedAt
		}
	}
	if st, err := os.Stat(a.store.Path()); err == nil {
		info.DatabaseSize = st.Size()
	}

	info.EmbedderModel, info.EmbedderStatus = embedderStatus(ctx, a.cfg)
	info.GeneratorModel, info.GeneratorStatus = generatorStatus(ctx, a.cfg)
	return info, nil
}

func embedderStatus(ctx context.Context, cfg *config.Config) (model, status string) {
	provider, err := embed.ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return "", "error"
	}
	if provider == embed.ProviderHash {
		return embed.HashModelName, "ready"
	}
	return cfg.Embeddings.Model, probeOllama(ctx, cfg.Embeddings.OllamaHost, cfg.Embeddings.Model)
}

func generatorStatus(ctx context.Context, cfg *config.Config) (model, status string) {
	switch strings.ToLower(cfg.Generation.Provider) {
	case "none", "extractive":
		return "extractive", "ready"
	case "ollama":
		return cfg.Generation.Model, probeOllama(ctx, cfg.Generation.OllamaHost, cfg.Generation.Model)
	default:
		return cfg.Generation.Model, "error"
	}
}

func probeOllama(ctx context.Context, host, model string) string {
	ctx, cancel := context.WithTimeout(ctx, backendProbeTimeout)
	defer cancel()
	if embed.ModelAvailable(ctx, host, model) {
		return "ready"
	}
	return "offline"
}
