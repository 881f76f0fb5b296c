// Package logging configures slog for planqa. Logs are JSON lines written
// to a size-rotated file under ~/.planqa/logs/, optionally mirrored to
// stderr, and can be read back with the Viewer behind `planqa logs`.
package logging
