// Package output renders planqa results for the terminal, as text or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/planqa/internal/answer"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
)

// Format selects text or JSON rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format flag value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", planerrors.ValidationError(fmt.Sprintf("unknown format %q", s), nil).
			WithSuggestion("Use --format text or --format json")
	}
}

// Writer writes formatted output.
type Writer struct {
	out    io.Writer
	format Format
	color  bool

	dim    lipgloss.Style
	accent lipgloss.Style
}

// New returns a text Writer. Color is enabled when out is a terminal.
func New(out io.Writer) *Writer {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	return &Writer{
		out:    out,
		format: FormatText,
		color:  color,
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		accent: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	}
}

// WithFormat returns w switched to format f.
func (w *Writer) WithFormat(f Format) *Writer {
	cp := *w
	cp.format = f
	return &cp
}

func (w *Writer) style(s lipgloss.Style, text string) string {
	if !w.color {
		return text
	}
	return s.Render(text)
}

// Status prints a message with an icon.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

func (w *Writer) Success(msg string) { w.Status("✅", msg) }

func (w *Writer) Successf(format string, args ...any) { w.Success(fmt.Sprintf(format, args...)) }

func (w *Writer) Warning(msg string) { w.Status("⚠️ ", msg) }

func (w *Writer) Warningf(format string, args ...any) { w.Warning(fmt.Sprintf(format, args...)) }

// Error prints err with its code and suggestion.
func (w *Writer) Error(err error) {
	_, _ = fmt.Fprint(w.out, planerrors.FormatForCLI(err))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress redraws a progress bar in place; the line ends once current
// reaches total.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}
	pct := float64(current) / float64(total) * 100
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", progressBar(current, total, 30), pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

func progressBar(current, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(max(current*width/total, 0), width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SearchHit is the JSON shape of one ranked chunk.
type SearchHit struct {
	Rank          int     `json:"rank"`
	ChunkID       string  `json:"chunkId"`
	PageNumber    int     `json:"pageNumber"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semanticScore"`
	LexicalScore  float64 `json:"lexicalScore"`
	Snippet       string  `json:"snippet"`
}

// Hits converts ranked chunks to SearchHits with snippetChars-long snippets.
func Hits(results []search.ScoredChunk, snippetChars int) []SearchHit {
	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{
			Rank:          i + 1,
			ChunkID:       r.Chunk.ID,
			PageNumber:    r.Chunk.PageNumber,
			Score:         r.FusedScore,
			SemanticScore: r.SemanticScore,
			LexicalScore:  r.LexicalScore,
			Snippet:       search.Snippet(r.Chunk.Text, snippetChars),
		}
	}
	return hits
}

// SearchResults prints ranked chunks.
func (w *Writer) SearchResults(query string, results []search.ScoredChunk) error {
	hits := Hits(results, 200)
	if w.format == FormatJSON {
		return w.JSON(map[string]any{"query": query, "results": hits})
	}
	if len(hits) == 0 {
		w.Warningf("No results for %q", query)
		return nil
	}
	for _, h := range hits {
		_, _ = fmt.Fprintf(w.out, "%s %s %s\n",
			w.style(w.accent, fmt.Sprintf("%2d.", h.Rank)),
			fmt.Sprintf("page %d", h.PageNumber),
			w.style(w.dim, fmt.Sprintf("score %.3f (semantic %.3f, lexical %.3f)", h.Score, h.SemanticScore, h.LexicalScore)))
		_, _ = fmt.Fprintf(w.out, "    %s\n", h.Snippet)
	}
	return nil
}

// Answer prints an answer followed by its citations.
func (w *Writer) Answer(ans *answer.Answer) error {
	if w.format == FormatJSON {
		return w.JSON(ans)
	}
	_, _ = fmt.Fprintln(w.out, ans.Text)
	w.Newline()
	if len(ans.Citations) > 0 {
		_, _ = fmt.Fprintln(w.out, w.style(w.accent, "Sources"))
		for _, c := range ans.Citations {
			_, _ = fmt.Fprintf(w.out, "  [Page %d] %s\n", c.PageNumber, c.Snippet)
		}
	}
	_, _ = fmt.Fprintln(w.out, w.style(w.dim, "Confidence: "+string(ans.Confidence)))
	return nil
}

// Documents prints the ingested documents.
func (w *Writer) Documents(docs []*store.Document) error {
	if w.format == FormatJSON {
		type row struct {
			ID         string `json:"id"`
			Filename   string `json:"filename"`
			UploadedAt string `json:"uploadedAt"`
			Pages      int    `json:"pages"`
			Chunks     int    `json:"chunks"`
		}
		rows := make([]row, len(docs))
		for i, d := range docs {
			rows[i] = row{d.ID, d.Filename, d.UploadedAt.UTC().Format("2006-01-02T15:04:05Z"), d.PageCount, d.ChunkCount}
		}
		return w.JSON(rows)
	}
	if len(docs) == 0 {
		w.Status("📭", "No documents ingested yet. Run 'planqa ingest <file>'.")
		return nil
	}
	for _, d := range docs {
		_, _ = fmt.Fprintf(w.out, "%s  %s  %s\n",
			w.style(w.accent, d.ID),
			d.Filename,
			w.style(w.dim, fmt.Sprintf("%d pages, %d chunks, %s", d.PageCount, d.ChunkCount, d.UploadedAt.Format("2006-01-02 15:04"))))
	}
	return nil
}

// Summary prints the extracted plan fields, then the unfound ones.
func (w *Writer) Summary(s *answer.PlanSummary) error {
	if w.format == FormatJSON {
		return w.JSON(s)
	}
	rows := []struct{ label, value string }{
		{"Deductible", s.Deductible},
		{"Out-of-pocket max", s.OutOfPocketMax},
		{"Primary care copay", s.PrimaryCareCopay},
		{"Specialist copay", s.SpecialistCopay},
		{"Emergency room copay", s.EmergencyRoomCopay},
		{"Urgent care copay", s.UrgentCareCopay},
		{"Preventive care", s.PreventiveCare},
		{"Referral required", s.ReferralRequired},
		{"Prior authorization", s.PriorAuthorization},
		{"Network", s.NetworkNotes},
		{"Drug tiers", s.DrugTierOverview},
	}
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		_, _ = fmt.Fprintf(w.out, "%-22s %s\n", w.style(w.accent, r.label+":"), r.value)
	}
	if len(s.UnknownFields) > 0 {
		w.Newline()
		_, _ = fmt.Fprintln(w.out, w.style(w.dim, "Not found in document: "+strings.Join(s.UnknownFields, ", ")))
	}
	return nil
}
