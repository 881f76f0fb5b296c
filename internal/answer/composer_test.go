package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/store"
)

// stubGenerator returns a fixed reply and records the prompts it saw.
type stubGenerator struct {
	reply   string
	err     error
	prompts []Prompt
}

func (s *stubGenerator) Generate(_ context.Context, p Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	return s.reply, s.err
}

func (s *stubGenerator) ModelName() string { return "stub" }

func sampleExcerpts(n int) []Excerpt {
	out := make([]Excerpt, n)
	for i := range out {
		text := fmt.Sprintf("Excerpt %d: specialist visits cost $%d.", i+1, 40+i)
		out[i] = Excerpt{Text: text, PageNumber: i + 1, Snippet: text}
	}
	return out
}

// --- TS01: Refusal ---

func TestComposer_Answer_RefusesWithoutExcerpts(t *testing.T) {
	// Given: a generator that must not be called
	gen := &stubGenerator{reply: "should not be used"}
	c := NewComposer(gen)

	// When: answering with no retrieved excerpts
	ans, err := c.Answer(context.Background(), "What is my deductible?", nil, LevelBeginner, nil)

	// Then: the fixed refusal is returned with low confidence
	require.NoError(t, err)
	assert.Equal(t, RefusalText, ans.Text)
	assert.Contains(t, strings.ToLower(ans.Text), "can't find")
	assert.Equal(t, ConfidenceLow, ans.Confidence)
	assert.Empty(t, ans.Citations)
	assert.NotNil(t, ans.Citations)
	assert.Empty(t, gen.prompts)
}

// --- TS02: Prompt assembly ---

func TestComposer_Answer_BuildsPrompt(t *testing.T) {
	gen := &stubGenerator{reply: "Specialist visits cost $40."}
	c := NewComposer(gen)

	_, err := c.Answer(context.Background(), "specialist copay?", sampleExcerpts(2), LevelAdvanced, nil)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Equal(t, TaskAnswer, p.Task)
	assert.Equal(t, DefaultTemperature, p.Temperature)
	assert.Contains(t, p.System, LevelAdvanced.Instructions())
	assert.Contains(t, p.System, `Format citations as: [Page X: "relevant snippet"]`)
	assert.Contains(t, p.User, `answer this question: "specialist copay?"`)
	assert.Contains(t, p.User, "[Source 1, Page 1]:\nExcerpt 1")
	assert.Contains(t, p.User, "[Source 2, Page 2]:\nExcerpt 2")
}

func TestComposer_Answer_TrimsHistory(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	c := NewComposer(gen, WithTemperature(0.1))
	var history []store.Message
	for i := 0; i < 10; i++ {
		history = append(history, store.Message{Role: store.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	_, err := c.Answer(context.Background(), "q", sampleExcerpts(1), LevelIntermediate, history)
	require.NoError(t, err)

	p := gen.prompts[0]
	require.Len(t, p.History, HistoryWindow)
	assert.Equal(t, "m4", p.History[0].Content)
	assert.Equal(t, "m9", p.History[5].Content)
	assert.Equal(t, 0.1, p.Temperature)
}

func TestComposer_Answer_NoHistoryWindow(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	c := NewComposer(gen, WithHistoryWindow(0))

	_, err := c.Answer(context.Background(), "q", sampleExcerpts(1), LevelIntermediate,
		[]store.Message{{Role: store.RoleUser, Content: "earlier"}})
	require.NoError(t, err)

	assert.Empty(t, gen.prompts[0].History)
}

// --- TS03: Citations ---

func TestComposer_Answer_ParsesCitations(t *testing.T) {
	gen := &stubGenerator{reply: `Your specialist copay is $40 [Page 2: "specialist visits cost $40"] and [Page 7: "after deductible"].`}
	c := NewComposer(gen)

	ans, err := c.Answer(context.Background(), "q", sampleExcerpts(2), LevelIntermediate, nil)

	require.NoError(t, err)
	assert.Equal(t, []store.Citation{
		{PageNumber: 2, Snippet: "specialist visits cost $40"},
		{PageNumber: 7, Snippet: "after deductible"},
	}, ans.Citations)
}

func TestComposer_Answer_FallsBackToExcerptCitations(t *testing.T) {
	long := strings.Repeat("x", 250)
	gen := &stubGenerator{reply: "No markers here."}
	c := NewComposer(gen)

	ans, err := c.Answer(context.Background(), "q", []Excerpt{
		{Text: long, PageNumber: 3, Snippet: long},
		{Text: "short", PageNumber: 4, Snippet: "short"},
	}, LevelIntermediate, nil)

	require.NoError(t, err)
	require.Len(t, ans.Citations, 2)
	assert.Equal(t, 3, ans.Citations[0].PageNumber)
	assert.Len(t, ans.Citations[0].Snippet, 200)
	assert.Equal(t, store.Citation{PageNumber: 4, Snippet: "short"}, ans.Citations[1])
}

func TestParseCitations(t *testing.T) {
	assert.Nil(t, ParseCitations("nothing"))
	assert.Equal(t, []store.Citation{{PageNumber: 12, Snippet: "a b"}},
		ParseCitations(`see [Page  12:"a b"]`))
}

// --- TS04: Confidence ---

func TestGradeConfidence(t *testing.T) {
	long := strings.Repeat("covered ", 20)
	tests := []struct {
		name     string
		text     string
		excerpts int
		want     Confidence
	}{
		{"many excerpts long answer", long, 3, ConfidenceHigh},
		{"few excerpts", long, 2, ConfidenceMedium},
		{"short answer", "Covered.", 5, ConfidenceMedium},
		{"refusal wording", "I can't find that information in your document. " + long, 5, ConfidenceLow},
		{"no excerpts", long, 0, ConfidenceLow},
		{"length counts characters not bytes", strings.Repeat("é", 60), 3, ConfidenceMedium},
		{"long accented answer", strings.Repeat("é", 101), 3, ConfidenceHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gradeConfidence(tt.text, tt.excerpts))
		})
	}
}

// --- TS05: Generator errors ---

func TestComposer_Answer_WrapsGeneratorError(t *testing.T) {
	c := NewComposer(&stubGenerator{err: errors.New("boom")})

	_, err := c.Answer(context.Background(), "q", sampleExcerpts(1), LevelIntermediate, nil)

	require.Error(t, err)
	assert.Equal(t, planerrors.ErrCodeGenerationFailed, planerrors.GetCode(err))
}

func TestComposer_Answer_KeepsPlanError(t *testing.T) {
	c := NewComposer(&stubGenerator{err: planerrors.ModelError("down", nil)})

	_, err := c.Answer(context.Background(), "q", sampleExcerpts(1), LevelIntermediate, nil)

	assert.Equal(t, planerrors.ErrCodeModelUnavailable, planerrors.GetCode(err))
}

// --- TS06: Summary ---

func TestParseSummary(t *testing.T) {
	text := "Deductible: $1,500 per person\n" +
		"Out-of-pocket maximum: $6,000\n" +
		"Specialist copay: $50\n" +
		"Network: PPO with national coverage\n"

	s := ParseSummary(text)

	assert.Equal(t, "$1,500 per person", s.Deductible)
	assert.Equal(t, "$6,000", s.OutOfPocketMax)
	assert.Equal(t, "$50", s.SpecialistCopay)
	assert.Equal(t, "PPO with national coverage", s.NetworkNotes)
	assert.Equal(t, text, s.FullText)
	assert.Contains(t, s.UnknownFields, "primaryCareCopay")
	assert.Contains(t, s.UnknownFields, "drugTierOverview")
	assert.NotContains(t, s.UnknownFields, "deductible")
	assert.Len(t, s.UnknownFields, 7)
}

func TestComposer_Summarize_TruncatesDocument(t *testing.T) {
	gen := &stubGenerator{reply: "Deductible: $500"}
	c := NewComposer(gen)
	doc := strings.Repeat("a", MaxSummaryChars+500)

	s, err := c.Summarize(context.Background(), doc, nil, LevelBeginner)

	require.NoError(t, err)
	assert.Equal(t, "$500", s.Deductible)
	p := gen.prompts[0]
	assert.Equal(t, TaskSummary, p.Task)
	assert.Contains(t, p.System, "Not found in document")
	assert.Contains(t, p.System, LevelBeginner.Instructions())
	assert.Len(t, strings.TrimPrefix(p.User, "Here is the insurance plan document:\n\n"), MaxSummaryChars)
}

// --- TS07: Extractive generator ---

func TestExtractiveGenerator_Answer(t *testing.T) {
	gen := ExtractiveGenerator{MaxQuotes: 2}
	c := NewComposer(gen)

	ans, err := c.Answer(context.Background(), "specialist?", sampleExcerpts(3), LevelIntermediate, nil)

	require.NoError(t, err)
	require.Len(t, ans.Citations, 2)
	assert.Equal(t, 1, ans.Citations[0].PageNumber)
	assert.Equal(t, "Excerpt 1: specialist visits cost $40.", ans.Citations[0].Snippet)
	assert.Equal(t, 2, ans.Citations[1].PageNumber)
	assert.Equal(t, "extractive", gen.ModelName())
}

func TestExtractiveGenerator_Summary(t *testing.T) {
	out, err := ExtractiveGenerator{}.Generate(context.Background(), Prompt{
		Task: TaskSummary,
		Excerpts: []Excerpt{
			{Text: "Welcome to your plan\nDeductible: $750\n\nPrimary care copay: $20"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Deductible: $750\nPrimary care copay: $20", out)

	s := ParseSummary(out)
	assert.Equal(t, "$750", s.Deductible)
	assert.Equal(t, "$20", s.PrimaryCareCopay)
}
