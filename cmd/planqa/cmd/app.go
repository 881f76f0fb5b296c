package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/planqa/internal/answer"
	"github.com/Aman-CERP/planqa/internal/chunk"
	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/embed"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/extract"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
	"github.com/Aman-CERP/planqa/pkg/indexer"
	"github.com/Aman-CERP/planqa/pkg/searcher"
)

// app is the wired set of components a command works with.
type app struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	embedder  embed.Embedder
	chunker   chunk.Chunker
	extractor *extract.Extractor
	metrics   *telemetry.QueryMetrics
	searcher  searcher.Searcher
	generator answer.Generator
	assistant *answer.Assistant
	indexer   *indexer.DocumentIndexer
}

// loadConfig loads configuration for the directory given by --config-dir,
// defaulting to the working directory.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	dir, err := configDir(flags)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, planerrors.New(planerrors.ErrCodeConfigInvalid, "failed to load config", err).
			WithSuggestion("Run 'planqa config show' to inspect the effective configuration")
	}
	return cfg, nil
}

// openApp loads configuration, applies override, and wires the store,
// retrieval and answering components. Close must be called when done.
func openApp(flags *rootFlags, override func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, planerrors.ValidationError(err.Error(), err)
		}
	}

	st, err := store.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "failed to open store", err).
			WithSuggestion("Check storage.data_dir and that no other planqa process holds the database")
	}

	a := &app{
		cfg:       cfg,
		store:     st,
		extractor: extract.NewExtractor(),
		metrics:   telemetry.NewQueryMetrics(),
		chunker: chunk.NewPageChunker(
			chunk.WithTargetChars(cfg.Chunking.TargetChars),
			chunk.WithOverlapChars(cfg.Chunking.OverlapChars),
		),
	}

	if err := a.wire(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg := a.cfg

	provider, err := embed.ParseProvider(cfg.Embeddings.Provider)
	if err != nil {
		return planerrors.ValidationError(err.Error(), err)
	}
	a.embedder, err = embed.NewEmbedder(embed.Options{
		Provider:   provider,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		Host:       cfg.Embeddings.OllamaHost,
		Timeout:    cfg.EmbeddingTimeout(),
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return err
	}

	mode, err := search.ParseFusionMode(cfg.Search.Fusion)
	if err != nil {
		return planerrors.ValidationError(err.Error(), err)
	}
	ranker := search.NewRanker(
		search.WithWorkers(cfg.Search.Workers),
		search.WithFusion(search.NewFusion(mode, cfg.Search.RRFConstant)),
	)
	ds, err := searcher.NewDocumentSearcher(
		searcher.WithChunkLister(a.store),
		searcher.WithEmbedder(a.embedder),
		searcher.WithRanker(ranker),
		searcher.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	a.searcher = ds
	if cfg.Search.Fallback {
		a.searcher = searcher.NewFallbackSearcher(ds,
			searcher.WithMinResults(cfg.Search.MinResults),
			searcher.WithFallbackMetrics(a.metrics),
		)
	}

	a.generator, err = newGenerator(cfg)
	if err != nil {
		return err
	}
	composer := answer.NewComposer(a.generator,
		answer.WithTemperature(cfg.Generation.Temperature),
		answer.WithHistoryWindow(cfg.Generation.HistoryMessages),
	)
	a.assistant, err = answer.NewAssistant(a.store, a.searcher, composer,
		answer.WithSemanticWeight(cfg.Search.SemanticWeight),
	)
	if err != nil {
		return err
	}

	a.indexer, err = a.newIndexer()
	return err
}

// newIndexer builds an indexer over the app's components plus extra.
func (a *app) newIndexer(extra ...indexer.Option) (*indexer.DocumentIndexer, error) {
	opts := []indexer.Option{
		indexer.WithStore(a.store),
		indexer.WithEmbedder(a.embedder),
		indexer.WithChunker(a.chunker),
		indexer.WithExtractor(a.extractor),
		indexer.WithBatchSize(a.cfg.Embeddings.BatchSize),
		indexer.WithMetrics(a.metrics),
	}
	return indexer.NewDocumentIndexer(append(opts, extra...)...)
}

func newGenerator(cfg *config.Config) (answer.Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Generation.Provider)) {
	case "ollama":
		return answer.NewOllamaGenerator(answer.OllamaConfig{
			Host:    cfg.Generation.OllamaHost,
			Model:   cfg.Generation.Model,
			Timeout: cfg.GenerationTimeout(),
		}), nil
	case "none", "extractive":
		return answer.ExtractiveGenerator{}, nil
	default:
		err := fmt.Errorf("unknown generation provider %q", cfg.Generation.Provider)
		return nil, planerrors.ValidationError(err.Error(), err).
			WithSuggestion("Set generation.provider to ollama or none")
	}
}

// resolveDocument accepts a document ID or an ingested filename.
// A filename matching several documents resolves to the newest one.
func (a *app) resolveDocument(ctx context.Context, ref string) (*store.Document, error) {
	doc, err := a.store.GetDocument(ctx, ref)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, store.ErrDocumentNotFound) {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "failed to load document", err)
	}

	docs, err := a.store.ListDocuments(ctx)
	if err != nil {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "failed to list documents", err)
	}
	var match *store.Document
	for _, d := range docs {
		if !strings.EqualFold(d.Filename, ref) {
			continue
		}
		if match == nil || d.UploadedAt.After(match.UploadedAt) {
			match = d
		}
	}
	if match == nil {
		return nil, planerrors.NotFoundError(ref, nil)
	}
	slog.Debug("document_resolved_by_name",
		slog.String("filename", ref),
		slog.String("document_id", match.ID))
	return match, nil
}

// Close releases the embedder and the store.
func (a *app) Close() error {
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	return a.store.Close()
}
