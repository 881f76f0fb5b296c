package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/planqa/internal/answer"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
)

func sampleResults() []search.ScoredChunk {
	return []search.ScoredChunk{
		{
			Chunk:         &store.Chunk{ID: "d:2-0", PageNumber: 2, Text: "Specialist copay is $50.\nAfter deductible."},
			FusedScore:    0.9,
			SemanticScore: 0.8,
			LexicalScore:  1,
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("yaml")
	assert.Equal(t, planerrors.ErrCodeInvalidInput, planerrors.GetCode(err))
}

func TestWriter_StatusIcons(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Success("Ingested plan.pdf")
	w.Warningf("%d pages empty", 2)
	w.Status("", "indented")

	out := buf.String()
	assert.Contains(t, out, "✅ Ingested plan.pdf")
	assert.Contains(t, out, "⚠️  2 pages empty")
	assert.Contains(t, out, "   indented\n")
}

func TestWriter_Error_IncludesSuggestion(t *testing.T) {
	buf := &bytes.Buffer{}
	New(buf).Error(planerrors.NotFoundError("abc", nil))

	assert.Contains(t, buf.String(), "ERR_206_DOCUMENT_NOT_FOUND")
	assert.Contains(t, buf.String(), "planqa list")
}

func TestWriter_Progress(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(1, 2, "embedding")
	w.Progress(2, 2, "done")
	w.Progress(0, 0, "ignored")

	out := buf.String()
	assert.Contains(t, out, "50% embedding")
	assert.Contains(t, out, "100% done\n")
	assert.NotContains(t, out, "ignored")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", progressBar(1, 2, 10))
	assert.Equal(t, "██████████", progressBar(5, 2, 10))
	assert.Equal(t, "░░░░░░░░░░", progressBar(1, 0, 10))
}

func TestWriter_SearchResults_Text(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).SearchResults("specialist", sampleResults()))

	out := buf.String()
	assert.Contains(t, out, " 1. page 2 score 0.900 (semantic 0.800, lexical 1.000)")
	assert.Contains(t, out, "    Specialist copay is $50. After deductible.")
}

func TestWriter_SearchResults_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, New(buf).SearchResults("nothing", nil))
	assert.Contains(t, buf.String(), `No results for "nothing"`)
}

func TestWriter_SearchResults_JSON(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).WithFormat(FormatJSON).SearchResults("specialist", sampleResults()))

	var got struct {
		Query   string      `json:"query"`
		Results []SearchHit `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "specialist", got.Query)
	require.Len(t, got.Results, 1)
	assert.Equal(t, SearchHit{
		Rank: 1, ChunkID: "d:2-0", PageNumber: 2, Score: 0.9, SemanticScore: 0.8, LexicalScore: 1,
		Snippet: "Specialist copay is $50. After deductible.",
	}, got.Results[0])
}

func TestWriter_Answer(t *testing.T) {
	buf := &bytes.Buffer{}
	ans := &answer.Answer{
		Text:       "Your specialist copay is $50.",
		Citations:  []store.Citation{{PageNumber: 2, Snippet: "Specialist copay is $50"}},
		Confidence: answer.ConfidenceMedium,
	}

	require.NoError(t, New(buf).Answer(ans))

	out := buf.String()
	assert.Contains(t, out, "Your specialist copay is $50.\n\nSources\n")
	assert.Contains(t, out, "  [Page 2] Specialist copay is $50\n")
	assert.Contains(t, out, "Confidence: medium")
}

func TestWriter_Documents(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	require.NoError(t, w.Documents(nil))
	assert.Contains(t, buf.String(), "No documents ingested yet")

	buf.Reset()
	docs := []*store.Document{{ID: "abc", Filename: "plan.pdf", UploadedAt: time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC), PageCount: 3, ChunkCount: 7}}
	require.NoError(t, w.WithFormat(FormatJSON).Documents(docs))
	assert.JSONEq(t, `[{"id":"abc","filename":"plan.pdf","uploadedAt":"2026-03-04T05:06:00Z","pages":3,"chunks":7}]`, buf.String())
}

func TestWriter_Summary(t *testing.T) {
	buf := &bytes.Buffer{}
	s := answer.ParseSummary("Deductible: $500\nSpecialist copay: $40")

	require.NoError(t, New(buf).Summary(s))

	out := buf.String()
	assert.Contains(t, out, "Deductible:")
	assert.Contains(t, out, "$500")
	assert.Contains(t, out, "Not found in document: outOfPocketMax")
	assert.NotContains(t, out, "Urgent care copay:")
}

func TestWriter_JSON_PropagatesError(t *testing.T) {
	w := New(failingWriter{})
	assert.Error(t, w.JSON(map[string]int{"a": 1}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }
