package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/output"
	"github.com/Aman-CERP/planqa/pkg/searcher"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode           string
	limit          int
	semanticWeight float64
	fusion         string
	noFallback     bool
	format         string
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <document> <query>",
		Short: "Search a document's chunks",
		Long: `Rank a document's chunks against a query.

The document may be given by ID or by the filename it was ingested as.

Modes:
  hybrid    cosine similarity fused with keyword signals (default)
  semantic  cosine similarity only
  keyword   phrase, token and document-frequency signals only`,
		Example: `  planqa search gold-plan.pdf "out-of-pocket maximum"
  planqa search 3f2a... "emergency room" --mode keyword --limit 3
  planqa search gold-plan.pdf "specialist copay" --fusion rrf --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args[1:], " ")
			return runSearch(cmd.Context(), cmd, flags, args[0], query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid", "Search mode: hybrid, semantic, keyword")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: search.top_k)")
	cmd.Flags().Float64Var(&opts.semanticWeight, "semantic-weight", -1, "Semantic share for hybrid mode, 0.0-1.0 (default: search.semantic_weight)")
	cmd.Flags().StringVar(&opts.fusion, "fusion", "", "Fusion strategy: adaptive, rrf (default: search.fusion)")
	cmd.Flags().BoolVar(&opts.noFallback, "no-fallback", false, "Do not merge keyword results into sparse hybrid results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, flags *rootFlags, ref, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	mode, err := searcher.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	a, err := openApp(flags, func(cfg *config.Config) {
		if opts.fusion != "" {
			cfg.Search.Fusion = opts.fusion
		}
		if opts.noFallback {
			cfg.Search.Fallback = false
		}
		if opts.semanticWeight >= 0 {
			cfg.Search.SemanticWeight = opts.semanticWeight
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	doc, err := a.resolveDocument(ctx, ref)
	if err != nil {
		return err
	}

	limit := opts.limit
	if limit <= 0 {
		limit = a.cfg.Search.TopK
	}
	results, err := a.assistant.Search(ctx, doc.ID, query, mode, limit, a.cfg.Search.SemanticWeight)
	if err != nil {
		return err
	}
	return output.New(cmd.OutOrStdout()).WithFormat(format).SearchResults(query, results)
}
