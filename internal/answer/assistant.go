package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/pkg/searcher"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 5
	// DefaultSnippetChars bounds each excerpt sent to the generator.
	DefaultSnippetChars = 300
)

// Backend is the persistence the assistant needs.
type Backend interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	ListPages(ctx context.Context, documentID string) ([]*store.Page, error)
	store.ConversationStore
}

// Assistant answers questions about an ingested document and keeps the
// conversation history.
type Assistant struct {
	backend        Backend
	searcher       searcher.Searcher
	composer       *Composer
	topK           int
	snippetChars   int
	semanticWeight float64
	now            func() time.Time
}

// AssistantOption configures an Assistant.
type AssistantOption func(*Assistant)

func WithTopK(k int) AssistantOption {
	return func(a *Assistant) {
		if k > 0 {
			a.topK = k
		}
	}
}

func WithSnippetChars(n int) AssistantOption {
	return func(a *Assistant) {
		if n > 0 {
			a.snippetChars = n
		}
	}
}

func WithSemanticWeight(w float64) AssistantOption {
	return func(a *Assistant) { a.semanticWeight = w }
}

// NewAssistant wires an assistant. All three collaborators are required.
func NewAssistant(backend Backend, s searcher.Searcher, c *Composer, opts ...AssistantOption) (*Assistant, error) {
	if backend == nil || s == nil || c == nil {
		return nil, searcher.ErrNilDependency
	}
	a := &Assistant{
		backend:        backend,
		searcher:       s,
		composer:       c,
		topK:           DefaultTopK,
		snippetChars:   DefaultSnippetChars,
		semanticWeight: search.DefaultSemanticWeight,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Ask retrieves excerpts for question, answers it and appends both turns
// to the document's latest conversation.
func (a *Assistant) Ask(ctx context.Context, documentID, question string, level Level) (*Answer, error) {
	question = strings.TrimSpace(question)
	if documentID == "" {
		return nil, planerrors.ValidationError("document ID is required", nil)
	}
	if question == "" {
		return nil, planerrors.New(planerrors.ErrCodeQueryEmpty, "question is empty", nil)
	}
	if err := a.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}

	start := a.now()
	results, err := a.searcher.SearchHybrid(ctx, documentID, question, a.topK, a.semanticWeight)
	if err != nil {
		return nil, err
	}
	excerpts := a.excerpts(results)

	conv, err := a.backend.LatestConversation(ctx, documentID)
	if err != nil {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "load conversation", err)
	}
	var history []store.Message
	if conv != nil {
		history = conv.Messages
	}

	ans, err := a.composer.Answer(ctx, question, excerpts, level, history)
	if err != nil {
		slog.Warn("answer_failed",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()))
		return nil, err
	}

	if conv == nil {
		conv = &store.Conversation{DocumentID: documentID}
	}
	conv.Level = string(level)
	now := a.now()
	conv.Messages = append(conv.Messages,
		store.Message{Role: store.RoleUser, Content: question, CreatedAt: now},
		store.Message{
			Role:       store.RoleAssistant,
			Content:    ans.Text,
			Citations:  ans.Citations,
			Confidence: string(ans.Confidence),
			CreatedAt:  now,
		})
	if err := a.backend.SaveConversation(ctx, conv); err != nil {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "save conversation", err)
	}

	slog.Info("question_answered",
		slog.String("document_id", documentID),
		slog.String("level", string(level)),
		slog.Int("excerpts", len(excerpts)),
		slog.Int("citations", len(ans.Citations)),
		slog.String("confidence", string(ans.Confidence)),
		slog.Duration("duration", a.now().Sub(start)))
	return ans, nil
}

// Search ranks the chunks of a known document. Unlike the bare searchers it
// rejects blank queries and unknown document IDs.
func (a *Assistant) Search(ctx context.Context, documentID, query string, mode searcher.Mode, limit int, semanticWeight float64) ([]search.ScoredChunk, error) {
	if documentID == "" {
		return nil, planerrors.ValidationError("document ID is required", nil)
	}
	if strings.TrimSpace(query) == "" {
		return nil, planerrors.New(planerrors.ErrCodeQueryEmpty, "query is empty", nil)
	}
	if err := a.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}
	results, err := searcher.Search(ctx, a.searcher, mode, documentID, query, limit, semanticWeight)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Conversation returns the latest conversation about documentID, or an
// empty one when no question has been asked yet.
func (a *Assistant) Conversation(ctx context.Context, documentID string) (*store.Conversation, error) {
	if err := a.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}
	conv, err := a.backend.LatestConversation(ctx, documentID)
	if err != nil {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "load conversation", err)
	}
	if conv == nil {
		return &store.Conversation{DocumentID: documentID, Messages: []store.Message{}}, nil
	}
	return conv, nil
}

// Summarize produces a plan summary from the document's full text.
func (a *Assistant) Summarize(ctx context.Context, documentID string, level Level) (*PlanSummary, error) {
	if err := a.requireDocument(ctx, documentID); err != nil {
		return nil, err
	}
	pages, err := a.backend.ListPages(ctx, documentID)
	if err != nil {
		return nil, planerrors.New(planerrors.ErrCodeStorageFailed, "load pages", err)
	}

	texts := make([]string, len(pages))
	excerpts := make([]Excerpt, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
		excerpts[i] = Excerpt{Text: p.Text, PageNumber: p.PageNumber, Snippet: search.Snippet(p.Text, a.snippetChars)}
	}
	return a.composer.Summarize(ctx, strings.Join(texts, "\n\n"), excerpts, level)
}

func (a *Assistant) requireDocument(ctx context.Context, documentID string) error {
	_, err := a.backend.GetDocument(ctx, documentID)
	if errors.Is(err, store.ErrDocumentNotFound) {
		return planerrors.NotFoundError(documentID, err)
	}
	if err != nil {
		return planerrors.New(planerrors.ErrCodeStorageFailed, fmt.Sprintf("load document %s", documentID), err)
	}
	return nil
}

func (a *Assistant) excerpts(results []search.ScoredChunk) []Excerpt {
	out := make([]Excerpt, len(results))
	for i, r := range results {
		out[i] = Excerpt{
			Text:       r.Chunk.Text,
			PageNumber: r.Chunk.PageNumber,
			Snippet:    search.Snippet(r.Chunk.Text, a.snippetChars),
		}
	}
	return out
}
