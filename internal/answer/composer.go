package answer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
)

// Confidence grades how well an answer is supported by the document.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const (
	// RefusalText is returned when retrieval finds nothing to ground on.
	RefusalText = "I can't find that information in your insurance plan document. Could you rephrase your question or ask about a different aspect of your plan?"

	// DefaultTemperature keeps answers close to the excerpts.
	DefaultTemperature = 0.3

	// HistoryWindow is the default number of prior messages sent with a question.
	HistoryWindow = 6

	fallbackCitationChars = 200
	notFoundMarker        = "can't find"
)

var citationPattern = regexp.MustCompile(`\[Page\s+(\d+):\s*"([^"]+)"\]`)

// Answer is a generated reply with its supporting citations.
type Answer struct {
	Text       string           `json:"answer"`
	Citations  []store.Citation `json:"citations"`
	Confidence Confidence       `json:"confidence"`
}

// Composer builds prompts around retrieved excerpts and interprets the
// generator's reply.
type Composer struct {
	gen         Generator
	temperature float64
	history     int
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) ComposerOption {
	return func(c *Composer) {
		if t >= 0 {
			c.temperature = t
		}
	}
}

// WithHistoryWindow overrides HistoryWindow. Zero sends no history.
func WithHistoryWindow(n int) ComposerOption {
	return func(c *Composer) {
		if n >= 0 {
			c.history = n
		}
	}
}

// NewComposer returns a Composer backed by gen.
func NewComposer(gen Generator, opts ...ComposerOption) *Composer {
	c := &Composer{gen: gen, temperature: DefaultTemperature, history: HistoryWindow}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generator returns the underlying generator.
func (c *Composer) Generator() Generator { return c.gen }

// Answer answers question from excerpts. With no excerpts it refuses
// without calling the generator.
func (c *Composer) Answer(ctx context.Context, question string, excerpts []Excerpt, level Level, history []store.Message) (*Answer, error) {
	if len(excerpts) == 0 {
		return &Answer{Text: RefusalText, Citations: []store.Citation{}, Confidence: ConfidenceLow}, nil
	}

	if len(history) > c.history {
		history = history[len(history)-c.history:]
	}
	text, err := c.gen.Generate(ctx, Prompt{
		Task:        TaskAnswer,
		System:      SystemPrompt(level),
		History:     history,
		User:        UserPrompt(question, excerpts),
		Excerpts:    excerpts,
		Temperature: c.temperature,
	})
	if err != nil {
		if _, ok := planerrors.As(err); ok {
			return nil, err
		}
		return nil, planerrors.New(planerrors.ErrCodeGenerationFailed, "generate answer", err)
	}

	citations := ParseCitations(text)
	if len(citations) == 0 {
		for _, e := range excerpts {
			citations = append(citations, store.Citation{
				PageNumber: e.PageNumber,
				Snippet:    search.Snippet(e.Snippet, fallbackCitationChars),
			})
		}
	}

	return &Answer{
		Text:       text,
		Citations:  citations,
		Confidence: gradeConfidence(text, len(excerpts)),
	}, nil
}

// SystemPrompt is the instruction block sent ahead of every question.
func SystemPrompt(level Level) string {
	return `You are an expert insurance plan interpreter helping users understand their insurance documents.

` + level.Instructions() + `

CRITICAL RULES:
1. ONLY answer based on the provided document excerpts. Never invent or assume information.
2. If the document doesn't contain the needed information, explicitly say "I can't find that information in your document" and suggest what the user might look for.
3. Always cite your sources by referencing the page number and including a brief snippet.
4. Never provide medical diagnosis or treatment recommendations. This is insurance navigation only.
5. If you're uncertain about the answer, indicate your confidence level.

Format citations as: [Page X: "relevant snippet"]`
}

// UserPrompt wraps the question with numbered, paged excerpts.
func UserPrompt(question string, excerpts []Excerpt) string {
	parts := make([]string, len(excerpts))
	for i, e := range excerpts {
		parts[i] = fmt.Sprintf("[Source %d, Page %d]:\n%s", i+1, e.PageNumber, e.Snippet)
	}
	return fmt.Sprintf("Based on the following excerpts from the insurance plan document, answer this question: %q\n\nDocument excerpts:\n%s",
		question, strings.Join(parts, "\n\n"))
}

// ParseCitations extracts every [Page N: "snippet"] marker from text.
func ParseCitations(text string) []store.Citation {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	citations := make([]store.Citation, 0, len(matches))
	for _, m := range matches {
		page, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		citations = append(citations, store.Citation{PageNumber: page, Snippet: m[2]})
	}
	if len(citations) == 0 {
		return nil
	}
	return citations
}

func gradeConfidence(text string, excerpts int) Confidence {
	refused := strings.Contains(strings.ToLower(text), notFoundMarker)
	switch {
	case excerpts >= 3 && utf8.RuneCountInString(text) > 100 && !refused:
		return ConfidenceHigh
	case excerpts == 0 || refused:
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}
