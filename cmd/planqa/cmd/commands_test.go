package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

type listedDocument struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
}

// ingestPlan ingests the gold plan and returns its document ID.
func ingestPlan(t *testing.T, home string) string {
	t.Helper()
	path := writePlan(t, t.TempDir(), "gold-plan.txt")

	out, err := execute(t, home, nil, "ingest", "--plain", "--json", path)
	require.NoError(t, err)

	var docs []ingestedDocument
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	require.Empty(t, docs[0].Error)
	return docs[0].DocumentID
}

// ===== AC01: ingest and list =====

func TestIngestCmd_IngestsAndLists(t *testing.T) {
	// Given: a three-page plan file
	home := testEnv(t)
	path := writePlan(t, t.TempDir(), "gold-plan.txt")

	// When: it is ingested with plain progress
	out, err := execute(t, home, nil, "ingest", "--plain", path)

	// Then: progress, completion and the new ID are printed
	require.NoError(t, err)
	assert.Contains(t, out, "Complete: 1 documents, 3 pages")
	assert.Contains(t, out, "gold-plan.txt →")

	// And: list shows the document with its pages and chunks
	out, err = execute(t, home, nil, "list", "--format", "json")
	require.NoError(t, err)
	var docs []listedDocument
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "gold-plan.txt", docs[0].Filename)
	assert.Equal(t, 3, docs[0].Pages)
	assert.GreaterOrEqual(t, docs[0].Chunks, 3)
}

func TestIngestCmd_ReportsFailures(t *testing.T) {
	// Given: one good file and one unsupported file
	home := testEnv(t)
	dir := t.TempDir()
	good := writePlan(t, dir, "gold-plan.txt")
	bad := filepath.Join(dir, "plan.xyz")
	writePlan(t, dir, "plan.xyz")

	// When: both are ingested
	out, err := execute(t, home, nil, "ingest", "--plain", "--json", good, bad)

	// Then: the good file is stored and the command fails naming the count
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	var docs []ingestedDocument
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 2)
	assert.NotEmpty(t, docs[0].DocumentID)
	assert.NotEmpty(t, docs[1].Error)
}

func TestIngestCmd_RequiresArgs(t *testing.T) {
	home := testEnv(t)

	_, err := execute(t, home, nil, "ingest")

	assert.Error(t, err)
}

func TestListCmd_Empty(t *testing.T) {
	home := testEnv(t)

	out, err := execute(t, home, nil, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents ingested yet")
}

// ===== AC02: search =====

func TestSearchCmd_Modes(t *testing.T) {
	home := testEnv(t)
	id := ingestPlan(t, home)

	tests := []struct {
		name string
		args []string
	}{
		{"hybrid by id", []string{"search", id, "deductible per person"}},
		{"keyword by filename", []string{"search", "gold-plan.txt", "deductible", "--mode", "keyword"}},
		{"semantic", []string{"search", id, "deductible", "--mode", "semantic"}},
		{"rrf without fallback", []string{"search", id, "deductible", "--fusion", "rrf", "--no-fallback"}},
		{"keyword only weight", []string{"search", id, "deductible", "--semantic-weight", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, home, nil, append(tt.args, "--format", "json")...)
			require.NoError(t, err)

			var got struct {
				Query   string `json:"query"`
				Results []struct {
					PageNumber int    `json:"pageNumber"`
					Snippet    string `json:"snippet"`
				} `json:"results"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			require.NotEmpty(t, got.Results)
			pages := make([]int, len(got.Results))
			for i, r := range got.Results {
				pages[i] = r.PageNumber
			}
			assert.Contains(t, pages, 2)
		})
	}
}

func TestSearchCmd_LimitCapsResults(t *testing.T) {
	home := testEnv(t)
	id := ingestPlan(t, home)

	out, err := execute(t, home, nil, "search", id, "copay", "--mode", "semantic", "--limit", "1", "--format", "json")

	require.NoError(t, err)
	var got struct {
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Results, 1)
}

func TestSearchCmd_Errors(t *testing.T) {
	home := testEnv(t)
	id := ingestPlan(t, home)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown document", []string{"search", "missing-plan.pdf", "deductible"}, planerrors.ErrCodeDocumentNotFound},
		{"bad mode", []string{"search", id, "deductible", "--mode", "fuzzy"}, planerrors.ErrCodeInvalidInput},
		{"bad format", []string{"search", id, "deductible", "--format", "xml"}, planerrors.ErrCodeInvalidInput},
		{"weight out of range", []string{"search", id, "deductible", "--semantic-weight", "1.5"}, planerrors.ErrCodeInvalidInput},
		{"blank query", []string{"search", id, "   "}, planerrors.ErrCodeQueryEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, home, nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, planerrors.GetCode(err))
		})
	}
}

// ===== AC03: ask, chat, summary =====

func TestAskCmd_AnswersWithCitations(t *testing.T) {
	// Given: an ingested plan and the extractive generator
	home := testEnv(t)
	id := ingestPlan(t, home)

	// When: a question is asked
	out, err := execute(t, home, nil, "ask", id, "What is the deductible?", "--format", "json")

	// Then: the answer quotes the plan and cites pages
	require.NoError(t, err)
	var ans struct {
		Answer    string `json:"answer"`
		Citations []struct {
			PageNumber int `json:"pageNumber"`
		} `json:"citations"`
		Confidence string `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ans))
	assert.Contains(t, ans.Answer, "[Page ")
	assert.NotEmpty(t, ans.Citations)
	assert.NotEmpty(t, ans.Confidence)
}

func TestAskCmd_InvalidLevel(t *testing.T) {
	home := testEnv(t)
	id := ingestPlan(t, home)

	_, err := execute(t, home, nil, "ask", id, "What is covered?", "--level", "expert")

	require.Error(t, err)
	assert.Equal(t, planerrors.ErrCodeInvalidLevel, planerrors.GetCode(err))
}

func TestChatCmd_PipedInputResumesConversation(t *testing.T) {
	// Given: a plan with one earlier question from `ask`
	home := testEnv(t)
	id := ingestPlan(t, home)
	_, err := execute(t, home, nil, "ask", id, "What is the deductible?")
	require.NoError(t, err)

	// When: chat reads two lines from a pipe
	in := strings.NewReader("Is a referral required?\n/quit\n")
	out, err := execute(t, home, in, "chat", "gold-plan.txt", "--level", "beginner")

	// Then: the earlier turns are resumed and the new question is answered
	require.NoError(t, err)
	assert.Contains(t, out, "Chatting about gold-plan.txt (level beginner)")
	assert.Contains(t, out, "Resuming conversation with 2 earlier messages.")
	assert.Contains(t, out, "Here is what your plan document says")
}

func TestSummaryCmd(t *testing.T) {
	home := testEnv(t)
	id := ingestPlan(t, home)

	out, err := execute(t, home, nil, "summary", id, "--format", "json")

	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
}

// ===== AC04: delete and status =====

func TestDeleteCmd(t *testing.T) {
	// Given: an ingested plan
	home := testEnv(t)
	id := ingestPlan(t, home)

	// When: it is deleted by filename
	out, err := execute(t, home, nil, "delete", "gold-plan.txt")

	// Then: it is gone and a second delete reports not found
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted gold-plan.txt ("+id+")")

	_, err = execute(t, home, nil, "delete", id)
	require.Error(t, err)
	assert.Equal(t, planerrors.ErrCodeDocumentNotFound, planerrors.GetCode(err))
}

func TestStatusCmd_JSON(t *testing.T) {
	home := testEnv(t)
	ingestPlan(t, home)

	out, err := execute(t, home, nil, "status", "--json")

	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, float64(1), info["documents"])
	assert.Equal(t, float64(3), info["pages"])
	assert.Equal(t, "hash", info["embedder_provider"])
	assert.Equal(t, "ready", info["embedder_status"])
	assert.Equal(t, "ready", info["generator_status"])
	assert.Contains(t, info["data_path"], filepath.Join(home, "data"))
}

func TestStatusCmd_Text(t *testing.T) {
	home := testEnv(t)

	out, err := execute(t, home, nil, "status", "--no-color")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:     0")
	assert.Contains(t, out, "Provider: hash")
}
