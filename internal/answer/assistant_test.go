package answer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/planqa/internal/embed"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/extract"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/pkg/indexer"
	"github.com/Aman-CERP/planqa/pkg/searcher"
)

type assistantFixture struct {
	store *store.SQLiteStore
	gen   *stubGenerator
	asst  *Assistant
	docID string
}

func newAssistantFixture(t *testing.T, gen Generator) *assistantFixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "planqa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	embedder := embed.NewHashEmbedder(32)
	idx, err := indexer.NewDocumentIndexer(indexer.WithStore(st), indexer.WithEmbedder(embedder))
	require.NoError(t, err)
	res, err := idx.IndexPages(ctx, "plan.pdf", []extract.Page{
		{Number: 1, Text: "Deductible: $1,500 per person per year."},
		{Number: 2, Text: "Specialist copay: $50 per visit after deductible."},
		{Number: 3, Text: "Preventive care visits are covered at 100% with no copay."},
	})
	require.NoError(t, err)

	ds, err := searcher.NewDocumentSearcher(searcher.WithChunkLister(st), searcher.WithEmbedder(embedder))
	require.NoError(t, err)

	asst, err := NewAssistant(st, searcher.NewFallbackSearcher(ds), NewComposer(gen))
	require.NoError(t, err)

	f := &assistantFixture{store: st, asst: asst, docID: res.DocumentID}
	if sg, ok := gen.(*stubGenerator); ok {
		f.gen = sg
	}
	return f
}

func TestNewAssistant_RequiresDependencies(t *testing.T) {
	_, err := NewAssistant(nil, nil, nil)
	assert.ErrorIs(t, err, searcher.ErrNilDependency)
}

// TS01: Ask stores both turns
func TestAssistant_Ask(t *testing.T) {
	// Given: an ingested three-page plan
	f := newAssistantFixture(t, &stubGenerator{reply: `Specialists cost $50 [Page 2: "Specialist copay: $50 per visit"].`})
	ctx := context.Background()

	// When: asking about specialists
	ans, err := f.asst.Ask(ctx, f.docID, "  specialist copay  ", LevelBeginner)

	// Then: the answer carries the model's citation
	require.NoError(t, err)
	assert.Equal(t, []store.Citation{{PageNumber: 2, Snippet: "Specialist copay: $50 per visit"}}, ans.Citations)
	assert.Equal(t, ConfidenceMedium, ans.Confidence)

	// And: every page was offered as an excerpt
	require.Len(t, f.gen.prompts, 1)
	assert.Len(t, f.gen.prompts[0].Excerpts, 3)
	assert.Contains(t, f.gen.prompts[0].User, `"specialist copay"`)

	// And: the conversation holds the question and the answer
	conv, err := f.asst.Conversation(ctx, f.docID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, store.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "specialist copay", conv.Messages[0].Content)
	assert.Equal(t, store.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "medium", conv.Messages[1].Confidence)
	assert.Equal(t, ans.Citations, conv.Messages[1].Citations)
	assert.Equal(t, "beginner", conv.Level)
}

func TestAssistant_Ask_SendsHistory(t *testing.T) {
	f := newAssistantFixture(t, &stubGenerator{reply: "ok"})
	ctx := context.Background()

	_, err := f.asst.Ask(ctx, f.docID, "deductible", LevelIntermediate)
	require.NoError(t, err)
	_, err = f.asst.Ask(ctx, f.docID, "and preventive care?", LevelIntermediate)
	require.NoError(t, err)

	require.Len(t, f.gen.prompts, 2)
	assert.Empty(t, f.gen.prompts[0].History)
	require.Len(t, f.gen.prompts[1].History, 2)
	assert.Equal(t, "deductible", f.gen.prompts[1].History[0].Content)

	conv, err := f.asst.Conversation(ctx, f.docID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 4)
}

// TS02: Validation
func TestAssistant_Ask_Validation(t *testing.T) {
	f := newAssistantFixture(t, &stubGenerator{reply: "ok"})
	ctx := context.Background()

	_, err := f.asst.Ask(ctx, f.docID, "   ", LevelIntermediate)
	assert.Equal(t, planerrors.ErrCodeQueryEmpty, planerrors.GetCode(err))

	_, err = f.asst.Ask(ctx, "", "deductible", LevelIntermediate)
	assert.Equal(t, planerrors.ErrCodeInvalidInput, planerrors.GetCode(err))

	_, err = f.asst.Ask(ctx, "missing", "deductible", LevelIntermediate)
	assert.Equal(t, planerrors.ErrCodeDocumentNotFound, planerrors.GetCode(err))
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)

	assert.Empty(t, f.gen.prompts)
}

func TestAssistant_Conversation_EmptyAndMissing(t *testing.T) {
	f := newAssistantFixture(t, &stubGenerator{})

	conv, err := f.asst.Conversation(context.Background(), f.docID)
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
	assert.NotNil(t, conv.Messages)

	_, err = f.asst.Conversation(context.Background(), "missing")
	assert.Equal(t, planerrors.ErrCodeDocumentNotFound, planerrors.GetCode(err))
}

// TS03: Summary without a model
func TestAssistant_Summarize_Extractive(t *testing.T) {
	f := newAssistantFixture(t, ExtractiveGenerator{})

	s, err := f.asst.Summarize(context.Background(), f.docID, LevelIntermediate)

	require.NoError(t, err)
	assert.Equal(t, "$1,500 per person per year.", s.Deductible)
	assert.Equal(t, "$50 per visit after deductible.", s.SpecialistCopay)
	assert.Equal(t, "visits are covered at 100% with no copay.", s.PreventiveCare)
	assert.Contains(t, s.UnknownFields, "drugTierOverview")
}

func TestAssistant_Ask_Extractive(t *testing.T) {
	f := newAssistantFixture(t, ExtractiveGenerator{})

	ans, err := f.asst.Ask(context.Background(), f.docID, "preventive care", LevelAdvanced)

	require.NoError(t, err)
	assert.NotEmpty(t, ans.Citations)
	assert.Contains(t, ans.Text, "[Page ")
	assert.Equal(t, ConfidenceHigh, ans.Confidence)
}

// TS04: Search validates before ranking
func TestAssistant_Search(t *testing.T) {
	f := newAssistantFixture(t, &stubGenerator{})
	ctx := context.Background()

	results, err := f.asst.Search(ctx, f.docID, "specialist copay", searcher.ModeKeyword, 2, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 2, results[0].Chunk.PageNumber)

	_, err = f.asst.Search(ctx, f.docID, " ", searcher.ModeHybrid, 5, 0.5)
	assert.Equal(t, planerrors.ErrCodeQueryEmpty, planerrors.GetCode(err))

	_, err = f.asst.Search(ctx, "missing", "copay", searcher.ModeHybrid, 5, 0.5)
	assert.Equal(t, planerrors.ErrCodeDocumentNotFound, planerrors.GetCode(err))
}
