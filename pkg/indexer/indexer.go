// Package indexer ingests plan documents: extract pages, chunk them, embed
// the chunks in batches and persist everything in one store transaction.
//
//	idx, err := indexer.NewDocumentIndexer(
//	    indexer.WithStore(st),
//	    indexer.WithEmbedder(emb),
//	)
//	res, err := idx.Index(ctx, "plan.pdf")
//	fmt.Println(res.DocumentID, res.Chunks)
//
// DocumentIndexer is safe for concurrent use; writes serialize in the store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/planqa/internal/chunk"
	"github.com/Aman-CERP/planqa/internal/embed"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/extract"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
)

// ErrNilDependency is returned when a required collaborator is missing.
var ErrNilDependency = errors.New("required dependency is nil")

// Indexer adds and removes documents.
type Indexer interface {
	Index(ctx context.Context, path string) (*Result, error)
	Delete(ctx context.Context, documentID string) error
}

// Result summarizes one ingestion.
type Result struct {
	DocumentID string        `json:"documentId"`
	Filename   string        `json:"filename"`
	Pages      int           `json:"pages"`
	Chunks     int           `json:"chunks"`
	Duration   time.Duration `json:"duration"`
}

// ProgressFunc is called after each embedding batch.
type ProgressFunc func(embedded, total int)

// DocumentIndexer implements Indexer.
type DocumentIndexer struct {
	store     store.DocumentStore
	embedder  embed.Embedder
	chunker   chunk.Chunker
	extractor *extract.Extractor
	batchSize int
	metrics   *telemetry.QueryMetrics
	progress  ProgressFunc
}

var _ Indexer = (*DocumentIndexer)(nil)

// Option configures DocumentIndexer.
type Option func(*DocumentIndexer)

func WithStore(s store.DocumentStore) Option {
	return func(d *DocumentIndexer) { d.store = s }
}

func WithEmbedder(e embed.Embedder) Option {
	return func(d *DocumentIndexer) { d.embedder = e }
}

// WithChunker replaces the default PageChunker.
func WithChunker(c chunk.Chunker) Option {
	return func(d *DocumentIndexer) { d.chunker = c }
}

func WithExtractor(e *extract.Extractor) Option {
	return func(d *DocumentIndexer) { d.extractor = e }
}

// WithBatchSize sets how many chunks go into one embedding call.
func WithBatchSize(n int) Option {
	return func(d *DocumentIndexer) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(d *DocumentIndexer) { d.metrics = m }
}

func WithProgress(fn ProgressFunc) Option {
	return func(d *DocumentIndexer) { d.progress = fn }
}

// NewDocumentIndexer requires WithStore and WithEmbedder.
func NewDocumentIndexer(opts ...Option) (*DocumentIndexer, error) {
	d := &DocumentIndexer{batchSize: embed.DefaultBatchSize}
	for _, opt := range opts {
		opt(d)
	}
	if d.store == nil {
		return nil, fmt.Errorf("%w: store", ErrNilDependency)
	}
	if d.embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrNilDependency)
	}
	if d.chunker == nil {
		d.chunker = chunk.NewPageChunker()
	}
	if d.extractor == nil {
		d.extractor = extract.NewExtractor()
	}
	return d, nil
}

// Index extracts path and ingests its pages.
func (d *DocumentIndexer) Index(ctx context.Context, path string) (*Result, error) {
	doc, err := d.extractor.Extract(path)
	if err != nil {
		d.metrics.RecordIngest(telemetry.IngestEvent{Failed: true})
		return nil, err
	}
	return d.IndexPages(ctx, doc.Filename, doc.Pages)
}

// IndexPages ingests already extracted pages under filename.
func (d *DocumentIndexer) IndexPages(ctx context.Context, filename string, pages []extract.Page) (*Result, error) {
	start := time.Now()
	res, err := d.indexPages(ctx, filename, pages)
	if err != nil {
		d.metrics.RecordIngest(telemetry.IngestEvent{Failed: true})
		slog.Warn("ingest_failed", append([]any{slog.String("filename", filename)}, planerrors.LogAttrs(err)...)...)
		return nil, err
	}
	res.Duration = time.Since(start)
	d.metrics.RecordIngest(telemetry.IngestEvent{Pages: res.Pages, Chunks: res.Chunks, Duration: res.Duration})
	slog.Info("ingest_complete",
		slog.String("document_id", res.DocumentID),
		slog.String("filename", filename),
		slog.Int("pages", res.Pages),
		slog.Int("chunks", res.Chunks),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (d *DocumentIndexer) indexPages(ctx context.Context, filename string, pages []extract.Page) (*Result, error) {
	docID := uuid.NewString()

	storePages := make([]*store.Page, 0, len(pages))
	var chunks []*store.Chunk
	for _, p := range pages {
		storePages = append(storePages, &store.Page{DocumentID: docID, PageNumber: p.Number, Text: p.Text})
		for _, draft := range d.chunker.Chunk(p.Text, p.Number) {
			chunks = append(chunks, &store.Chunk{
				ID:         docID + ":" + draft.SequenceID,
				DocumentID: docID,
				PageNumber: draft.PageNumber,
				SequenceID: draft.SequenceID,
				Text:       draft.Text,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, planerrors.New(planerrors.ErrCodeNoText, "no text to index in "+filename, nil)
	}

	if err := d.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	doc := &store.Document{ID: docID, Filename: filename, UploadedAt: time.Now()}
	if err := d.store.SaveDocument(ctx, doc, storePages, chunks); err != nil {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "save document", err)
	}

	return &Result{DocumentID: docID, Filename: filename, Pages: len(storePages), Chunks: len(chunks)}, nil
}

// embedChunks fills Vector in place, batchSize chunks per call.
func (d *DocumentIndexer) embedChunks(ctx context.Context, chunks []*store.Chunk) error {
	for start := 0; start < len(chunks); start += d.batchSize {
		end := min(start+d.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		vecs, err := d.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return planerrors.New(planerrors.ErrCodeEmbeddingFailed, fmt.Sprintf("embed chunks %d-%d", start, end), err)
		}
		if len(vecs) != len(texts) {
			return planerrors.New(planerrors.ErrCodeEmbeddingFailed,
				fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vecs), len(texts)), nil)
		}
		for i, v := range vecs {
			chunks[start+i].Vector = v
		}
		if d.progress != nil {
			d.progress(end, len(chunks))
		}
	}
	return nil
}

// Delete removes a document with its pages, chunks and conversation.
func (d *DocumentIndexer) Delete(ctx context.Context, documentID string) error {
	err := d.store.DeleteDocument(ctx, documentID)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return planerrors.NotFoundError(documentID, err)
	}
	if err != nil {
		return planerrors.New(planerrors.ErrCodeStorageFailed, "delete document", err)
	}
	slog.Info("document_deleted", slog.String("document_id", documentID))
	return nil
}
