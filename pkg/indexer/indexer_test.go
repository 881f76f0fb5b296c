package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/planqa/internal/chunk"
	"github.com/Aman-CERP/planqa/internal/embed"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/extract"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "planqa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// batchRecorder records batch sizes passed to EmbedBatch.
type batchRecorder struct {
	embed.Embedder
	sizes []int
	err   error
}

func (b *batchRecorder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b.sizes = append(b.sizes, len(texts))
	if b.err != nil {
		return nil, b.err
	}
	return b.Embedder.EmbedBatch(ctx, texts)
}

func TestNewDocumentIndexer_RequiresDependencies(t *testing.T) {
	_, err := NewDocumentIndexer(WithEmbedder(embed.NewHashEmbedder(4)))
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewDocumentIndexer(WithStore(newTestStore(t)))
	assert.ErrorIs(t, err, ErrNilDependency)
}

// TS01: Ingest a text file end to end
func TestDocumentIndexer_Index(t *testing.T) {
	// Given: a two-page plan summary on disk
	st := newTestStore(t)
	metrics := telemetry.NewQueryMetrics()
	idx, err := NewDocumentIndexer(WithStore(st), WithEmbedder(embed.NewHashEmbedder(16)), WithMetrics(metrics))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "plan.txt")
	require.NoError(t, os.WriteFile(path, []byte("Deductible is $500.\fPreventive care is covered."), 0o644))

	// When: indexing it
	res, err := idx.Index(context.Background(), path)

	// Then: the document, pages and embedded chunks are stored
	require.NoError(t, err)
	assert.Equal(t, "plan.txt", res.Filename)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 2, res.Chunks)

	doc, err := st.GetDocument(context.Background(), res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount)

	chunks, err := st.ListChunks(context.Background(), res.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, res.DocumentID+":1-0", chunks[0].ID)
	assert.Equal(t, 2, chunks[1].PageNumber)
	assert.Len(t, chunks[0].Vector, 16)
}

func TestDocumentIndexer_IndexPages_Batches(t *testing.T) {
	// Given: small chunks so one page yields many drafts
	rec := &batchRecorder{Embedder: embed.NewHashEmbedder(8)}
	var progress []int
	idx, err := NewDocumentIndexer(
		WithStore(newTestStore(t)),
		WithEmbedder(rec),
		WithChunker(chunk.NewPageChunker(chunk.WithTargetChars(20), chunk.WithOverlapChars(5))),
		WithBatchSize(3),
		WithProgress(func(done, total int) { progress = append(progress, done) }),
	)
	require.NoError(t, err)
	text := strings.Repeat("Copays apply. ", 10)

	// When: indexing one page
	res, err := idx.IndexPages(context.Background(), "plan.txt", []extract.Page{{Number: 1, Text: text}})

	// Then: chunks are embedded in batches of three
	require.NoError(t, err)
	require.Greater(t, res.Chunks, 3)
	for _, n := range rec.sizes {
		assert.LessOrEqual(t, n, 3)
	}
	assert.Equal(t, res.Chunks, progress[len(progress)-1])
}

func TestDocumentIndexer_EmbedFailureSavesNothing(t *testing.T) {
	st := newTestStore(t)
	idx, err := NewDocumentIndexer(WithStore(st), WithEmbedder(&batchRecorder{
		Embedder: embed.NewHashEmbedder(8),
		err:      errors.New("ollama down"),
	}))
	require.NoError(t, err)

	_, err = idx.IndexPages(context.Background(), "plan.txt", []extract.Page{{Number: 1, Text: "Copay $20."}})

	assert.Equal(t, planerrors.ErrCodeEmbeddingFailed, planerrors.GetCode(err))
	docs, err := st.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentIndexer_NoText(t *testing.T) {
	idx, err := NewDocumentIndexer(WithStore(newTestStore(t)), WithEmbedder(embed.NewHashEmbedder(8)))
	require.NoError(t, err)

	_, err = idx.IndexPages(context.Background(), "blank.txt", []extract.Page{{Number: 1, Text: "   "}})

	assert.Equal(t, planerrors.ErrCodeNoText, planerrors.GetCode(err))
}

func TestDocumentIndexer_IndexMissingFile(t *testing.T) {
	idx, err := NewDocumentIndexer(WithStore(newTestStore(t)), WithEmbedder(embed.NewHashEmbedder(8)))
	require.NoError(t, err)

	_, err = idx.Index(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))

	assert.Equal(t, planerrors.ErrCodeFileNotFound, planerrors.GetCode(err))
}

// TS02: Delete
func TestDocumentIndexer_Delete(t *testing.T) {
	st := newTestStore(t)
	idx, err := NewDocumentIndexer(WithStore(st), WithEmbedder(embed.NewHashEmbedder(8)))
	require.NoError(t, err)
	res, err := idx.IndexPages(context.Background(), "plan.txt", []extract.Page{{Number: 1, Text: "Copay $20."}})
	require.NoError(t, err)

	require.NoError(t, idx.Delete(context.Background(), res.DocumentID))

	_, err = st.GetDocument(context.Background(), res.DocumentID)
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)

	err = idx.Delete(context.Background(), res.DocumentID)
	assert.Equal(t, planerrors.ErrCodeDocumentNotFound, planerrors.GetCode(err))
	assert.ErrorIs(t, err, store.ErrDocumentNotFound)
}
