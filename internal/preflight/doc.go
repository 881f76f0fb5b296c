// Package preflight checks that planqa can run on this machine before a
// long ingestion or a server start.
//
// The checks cover the data directory (writable, free disk space), the open
// file limit, the loaded configuration, and the embedding and generation
// backends it selects:
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(ctx, cfg)
//	checker.PrintResults(results)
//	if checker.HasCriticalFailures(results) {
//	    // refuse to continue
//	}
package preflight
