package cmd

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/planqa/internal/output"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/watcher"
	"github.com/Aman-CERP/planqa/pkg/indexer"
)

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var deleteOnRemove, noScan bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Ingest documents dropped into a directory",
		Long: `Watch an inbox directory and ingest plan documents as they appear.

Files already in the directory are ingested first unless --no-scan is
given. A modified file is re-ingested and its previous document replaced.
With --delete-on-remove, removing a file deletes its document too.

Accepted extensions come from watch.extensions; events are debounced by
watch.debounce.`,
		Example: `  planqa watch ~/Downloads/plans
  planqa watch ./inbox --delete-on-remove`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, flags, args[0], deleteOnRemove, !noScan)
		},
	}

	cmd.Flags().BoolVar(&deleteOnRemove, "delete-on-remove", false, "Delete a document when its file is removed")
	cmd.Flags().BoolVar(&noScan, "no-scan", false, "Skip files already in the directory")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, flags *rootFlags, dir string, deleteOnRemove, scan bool) error {
	a, err := openApp(flags, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := output.New(cmd.OutOrStdout())
	w, err := watcher.New(watcher.Options{
		Debounce:   a.cfg.WatchDebounce(),
		Extensions: a.cfg.Watch.Extensions,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	known, err := knownDocuments(ctx, a.store, dir)
	if err != nil {
		return err
	}
	ing := watcher.NewIngester(a.indexer,
		watcher.WithKnownDocuments(known),
		watcher.WithDeleteOnRemove(deleteOnRemove),
		watcher.WithOnIngest(func(ev watcher.FileEvent, res *indexer.Result, err error) {
			name := filepath.Base(ev.Path)
			switch {
			case err != nil:
				out.Warningf("%s: %v", name, err)
			case res != nil:
				out.Successf("%s → %s (%d pages, %d chunks)", name, res.DocumentID, res.Pages, res.Chunks)
			default:
				out.Statusf("🗑️ ", "%s removed", name)
			}
		}),
	)

	startErr := make(chan error, 1)
	go func() { startErr <- w.Start(ctx, dir) }()

	out.Statusf("👀", "Watching %s (Ctrl+C to stop)", dir)
	if scan {
		if err := ing.Scan(ctx, w, dir); err != nil {
			return err
		}
		out.Status("📂", "Initial scan complete")
	}

	runErr := make(chan error, 1)
	go func() { runErr <- ing.Run(ctx, w) }()

	select {
	case err := <-startErr:
		// Start only returns early on a bad directory or a closed watcher.
		stop()
		<-runErr
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	out.Status("👋", "Stopped watching")
	return nil
}

// knownDocuments maps files in dir to the newest stored document with the
// same name, so a restarted watcher recognizes what it already ingested.
func knownDocuments(ctx context.Context, docs store.DocumentStore, dir string) (map[string]watcher.KnownDocument, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	list, err := docs.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]watcher.KnownDocument, len(list))
	for _, d := range list {
		path := filepath.Join(abs, d.Filename)
		if _, ok := known[path]; ok {
			continue
		}
		known[path] = watcher.KnownDocument{ID: d.ID, IndexedAt: d.UploadedAt}
	}
	return known, nil
}
