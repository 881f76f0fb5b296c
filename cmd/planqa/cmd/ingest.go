package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/output"
	"github.com/Aman-CERP/planqa/internal/ui"
	"github.com/Aman-CERP/planqa/pkg/indexer"
)

type ingestOptions struct {
	plain   bool
	noColor bool
	json    bool
}

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest plan documents",
		Long: `Extract, chunk and embed plan documents into the local store.

Supported formats are PDF, DOCX, Markdown and plain text. Each file
becomes one document; its ID is printed when ingestion finishes.`,
		Example: `  planqa ingest gold-plan.pdf
  planqa ingest plans/*.pdf --plain
  planqa ingest gold-plan.pdf --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, flags, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain progress output (no TUI)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colors")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print ingested documents as JSON")

	return cmd
}

// ingestedDocument is one line of `planqa ingest --json` output.
type ingestedDocument struct {
	File       string `json:"file"`
	DocumentID string `json:"documentId,omitempty"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
	Error      string `json:"error,omitempty"`
}

func runIngest(ctx context.Context, cmd *cobra.Command, flags *rootFlags, files []string, opts ingestOptions) error {
	a, err := openApp(flags, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// With --json, stdout carries the result and progress goes to stderr.
	var progressOut io.Writer = cmd.OutOrStdout()
	if opts.json {
		progressOut = cmd.ErrOrStderr()
	}
	renderer := ui.NewRenderer(ui.NewConfig(progressOut,
		ui.WithForcePlain(opts.plain),
		ui.WithNoColor(opts.noColor || ui.DetectNoColor()),
		ui.WithTitle("planqa ingest"),
	))
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	current := ""
	idx, err := a.newIndexer(indexer.WithProgress(func(embedded, total int) {
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageEmbedding,
			Current:     embedded,
			Total:       total,
			CurrentFile: current,
		})
	}))
	if err != nil {
		_ = renderer.Stop()
		return err
	}

	start := time.Now()
	stats := ui.CompletionStats{
		Embedder: ui.EmbedderInfo{
			Provider:   a.cfg.Embeddings.Provider,
			Model:      a.embedder.ModelName(),
			Dimensions: a.embedder.Dimensions(),
		},
	}
	results := make([]ingestedDocument, 0, len(files))

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		current = filepath.Base(file)
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageExtracting,
			Current:     i,
			Total:       len(files),
			CurrentFile: current,
		})

		res, err := idx.Index(ctx, file)
		if err != nil {
			slog.Warn("ingest_failed", slog.String("file", file), slog.String("error", err.Error()))
			renderer.AddError(ui.ErrorEvent{File: current, Err: err})
			stats.Errors++
			results = append(results, ingestedDocument{File: file, Error: err.Error()})
			continue
		}
		stats.Documents++
		stats.Pages += res.Pages
		stats.Chunks += res.Chunks
		results = append(results, ingestedDocument{
			File:       file,
			DocumentID: res.DocumentID,
			Pages:      res.Pages,
			Chunks:     res.Chunks,
		})
	}

	stats.Duration = time.Since(start)
	renderer.Complete(stats)
	if err := renderer.Stop(); err != nil {
		return err
	}

	if opts.json {
		if err := output.New(cmd.OutOrStdout()).JSON(results); err != nil {
			return err
		}
	} else {
		out := output.New(cmd.OutOrStdout())
		for _, r := range results {
			if r.Error == "" {
				out.Successf("%s → %s", filepath.Base(r.File), r.DocumentID)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", stats.Errors, len(files))
	}
	return nil
}
