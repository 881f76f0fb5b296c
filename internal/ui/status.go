package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes the store and the configured backends.
type StatusInfo struct {
	DataPath     string    `json:"data_path"`
	Documents    int       `json:"documents"`
	Pages        int       `json:"pages"`
	Chunks       int       `json:"chunks"`
	LastIngested time.Time `json:"last_ingested,omitzero"`
	DatabaseSize int64     `json:"database_size"`

	EmbedderProvider  string `json:"embedder_provider"`
	EmbedderModel     string `json:"embedder_model,omitempty"`
	EmbedderStatus    string `json:"embedder_status"` // "ready", "offline", "error"
	GeneratorProvider string `json:"generator_provider"`
	GeneratorModel    string `json:"generator_model,omitempty"`
	GeneratorStatus   string `json:"generator_status"`
}

// StatusRenderer displays store status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("planqa status"))

	_, _ = fmt.Fprintf(r.out, "  Documents:     %d\n", info.Documents)
	_, _ = fmt.Fprintf(r.out, "  Pages:         %d\n", info.Pages)
	_, _ = fmt.Fprintf(r.out, "  Chunks:        %d\n", info.Chunks)
	if !info.LastIngested.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last ingested: %s\n", formatTime(info.LastIngested))
	}
	_, _ = fmt.Fprintf(r.out, "  Database:      %s (%s)\n", info.DataPath, FormatBytes(info.DatabaseSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	r.backend(info.EmbedderProvider, info.EmbedderModel, info.EmbedderStatus)
	_, _ = fmt.Fprintln(r.out, "  Generator:")
	r.backend(info.GeneratorProvider, info.GeneratorModel, info.GeneratorStatus)
	return nil
}

func (r *StatusRenderer) backend(provider, model, status string) {
	_, _ = fmt.Fprintf(r.out, "    Provider: %s\n", provider)
	if model != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:    %s\n", model)
	}
	_, _ = fmt.Fprintf(r.out, "    Status:   %s\n", r.renderStatus(status))
}

// RenderJSON writes info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline":
		return r.styles.Warning.Render(status)
	case "error":
		return r.styles.Error.Render(status)
	default:
		return status
	}
}

func formatTime(t time.Time) string {
	diff := time.Since(t)
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
