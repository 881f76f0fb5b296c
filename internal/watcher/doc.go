// Package watcher watches an inbox directory for plan documents and
// ingests them as they arrive.
//
// Events from fsnotify are filtered by extension, debounced so that editors
// and copy tools writing a file in several steps produce one event, and
// handed to an Ingester in batches:
//
//	w, err := watcher.New(watcher.Options{Extensions: []string{".pdf", ".txt"}})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, inbox) }()
//	ing := watcher.NewIngester(idx)
//	return ing.Run(ctx, w)
package watcher
