package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Aman-CERP/planqa/pkg/indexer"
)

// IngestFunc is called after each file is handled. err is nil on success.
type IngestFunc func(ev FileEvent, res *indexer.Result, err error)

// Ingester turns inbox events into indexer calls. A modified file is
// ingested again and its previous document removed.
type Ingester struct {
	indexer        indexer.Indexer
	deleteOnRemove bool
	onIngest       IngestFunc

	mu        sync.Mutex
	byPath    map[string]string
	indexedAt map[string]time.Time
}

// KnownDocument is a document already indexed from a watched file.
type KnownDocument struct {
	ID        string
	IndexedAt time.Time
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithDeleteOnRemove deletes a file's document when the file leaves the inbox.
func WithDeleteOnRemove(on bool) IngesterOption {
	return func(i *Ingester) { i.deleteOnRemove = on }
}

// WithOnIngest sets a callback run after every handled event.
func WithOnIngest(fn IngestFunc) IngesterOption {
	return func(i *Ingester) { i.onIngest = fn }
}

// WithKnownDocuments seeds the ingester with documents indexed by an earlier
// run, keyed by absolute file path. Scan skips a known file that has not
// changed since IndexedAt, and a later event for it replaces the seeded
// document instead of adding a second one.
func WithKnownDocuments(known map[string]KnownDocument) IngesterOption {
	return func(i *Ingester) {
		for path, doc := range known {
			i.byPath[path] = doc.ID
			i.indexedAt[path] = doc.IndexedAt
		}
	}
}

// NewIngester creates an ingester over idx.
func NewIngester(idx indexer.Indexer, opts ...IngesterOption) *Ingester {
	i := &Ingester{
		indexer:   idx,
		byPath:    make(map[string]string),
		indexedAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run handles batches from w until ctx is canceled or w is stopped.
func (i *Ingester) Run(ctx context.Context, w *Watcher) error {
	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			i.HandleBatch(ctx, batch)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// Scan ingests every accepted file already in dir, skipping known files
// that are unchanged since they were indexed.
func (i *Ingester) Scan(ctx context.Context, w *Watcher, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	batch := make([]FileEvent, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path, err := filepath.Abs(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if !w.Accepts(path) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed since ReadDir; the watcher reports the delete.
			continue
		}
		if i.unchanged(path, info.ModTime()) {
			slog.Debug("scan_unchanged", slog.String("path", path))
			continue
		}
		batch = append(batch, FileEvent{Path: path, Operation: OpCreate})
	}
	i.HandleBatch(ctx, batch)
	return nil
}

// HandleBatch applies a batch of events in order. Failures are logged
// and reported to the callback; they do not stop the batch.
func (i *Ingester) HandleBatch(ctx context.Context, batch []FileEvent) {
	for _, ev := range batch {
		if ctx.Err() != nil {
			return
		}
		switch ev.Operation {
		case OpCreate, OpModify:
			i.ingest(ctx, ev)
		case OpDelete:
			i.remove(ctx, ev)
		}
	}
}

func (i *Ingester) ingest(ctx context.Context, ev FileEvent) {
	res, err := i.indexer.Index(ctx, ev.Path)
	if err != nil {
		slog.Error("auto_ingest_failed",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()),
			slog.String("error", err.Error()))
		i.report(ev, nil, err)
		return
	}

	i.mu.Lock()
	prev := i.byPath[ev.Path]
	i.byPath[ev.Path] = res.DocumentID
	i.indexedAt[ev.Path] = time.Now()
	i.mu.Unlock()

	if prev != "" && prev != res.DocumentID {
		if err := i.indexer.Delete(ctx, prev); err != nil {
			slog.Warn("replace_document_failed",
				slog.String("path", ev.Path),
				slog.String("document_id", prev),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("auto_ingested",
		slog.String("path", ev.Path),
		slog.String("document_id", res.DocumentID),
		slog.Int("pages", res.Pages),
		slog.Int("chunks", res.Chunks))
	i.report(ev, res, nil)
}

func (i *Ingester) remove(ctx context.Context, ev FileEvent) {
	i.mu.Lock()
	id, ok := i.byPath[ev.Path]
	if ok && i.deleteOnRemove {
		delete(i.byPath, ev.Path)
		delete(i.indexedAt, ev.Path)
	}
	i.mu.Unlock()

	if !ok || !i.deleteOnRemove {
		return
	}
	err := i.indexer.Delete(ctx, id)
	if err != nil {
		slog.Warn("auto_delete_failed",
			slog.String("path", ev.Path),
			slog.String("document_id", id),
			slog.String("error", err.Error()))
	} else {
		slog.Info("auto_deleted", slog.String("path", ev.Path), slog.String("document_id", id))
	}
	i.report(ev, nil, err)
}

func (i *Ingester) report(ev FileEvent, res *indexer.Result, err error) {
	if i.onIngest != nil {
		i.onIngest(ev, res, err)
	}
}

func (i *Ingester) unchanged(path string, modTime time.Time) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	at, ok := i.indexedAt[path]
	return ok && i.byPath[path] != "" && !modTime.After(at)
}

// DocumentID returns the document ingested from path, if any.
func (i *Ingester) DocumentID(path string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id, ok := i.byPath[path]
	return id, ok
}
