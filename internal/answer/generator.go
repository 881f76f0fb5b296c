package answer

import (
	"context"
	"strconv"
	"strings"

	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
)

// Task tells a Generator what kind of output is expected.
type Task string

const (
	TaskAnswer  Task = "answer"
	TaskSummary Task = "summary"
)

// Excerpt is a retrieved chunk handed to the generator.
type Excerpt struct {
	Text       string
	PageNumber int
	Snippet    string
}

// Prompt is a fully assembled generation request.
type Prompt struct {
	Task        Task
	System      string
	History     []store.Message
	User        string
	Excerpts    []Excerpt
	Temperature float64
}

// Generator produces text for a Prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	ModelName() string
}

// ExtractiveGenerator answers without a language model by quoting the
// excerpts verbatim. It is used when generation.provider is "none".
type ExtractiveGenerator struct {
	// MaxQuotes caps quoted excerpts per answer (default 3).
	MaxQuotes int
}

var _ Generator = ExtractiveGenerator{}

func (g ExtractiveGenerator) ModelName() string { return "extractive" }

func (g ExtractiveGenerator) Generate(_ context.Context, p Prompt) (string, error) {
	if p.Task == TaskSummary {
		return factLines(p.Excerpts, 60), nil
	}

	limit := g.MaxQuotes
	if limit <= 0 {
		limit = 3
	}
	var sb strings.Builder
	sb.WriteString("Here is what your plan document says about this:\n")
	for i, e := range p.Excerpts {
		if i == limit {
			break
		}
		quote := strings.ReplaceAll(search.Snippet(firstSentence(e.Snippet), 200), `"`, "'")
		sb.WriteString("\n- [Page ")
		sb.WriteString(strconv.Itoa(e.PageNumber))
		sb.WriteString(`: "`)
		sb.WriteString(quote)
		sb.WriteString(`"]`)
	}
	return sb.String(), nil
}

// firstSentence returns s up to and including its first full stop.
func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}

// factLines keeps lines that look like plan facts: they contain a digit,
// a currency sign or a colon.
func factLines(excerpts []Excerpt, max int) string {
	var lines []string
	for _, e := range excerpts {
		for _, line := range strings.Split(e.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || !strings.ContainsAny(line, "0123456789$%:") {
				continue
			}
			lines = append(lines, line)
			if len(lines) == max {
				return strings.Join(lines, "\n")
			}
		}
	}
	return strings.Join(lines, "\n")
}
