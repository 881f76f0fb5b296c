package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Aman-CERP/planqa/internal/answer"
	planerrors "github.com/Aman-CERP/planqa/internal/errors"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/pkg/searcher"
)

const maxSearchLimit = 50

// DocumentResponse is one row of GET /api/documents.
type DocumentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
	PageCount  int       `json:"pageCount"`
	ChunkCount int       `json:"chunkCount"`
}

// SearchHit is one ranked chunk in a search response.
type SearchHit struct {
	ChunkID       string  `json:"chunkId"`
	PageNumber    int     `json:"pageNumber"`
	SequenceID    string  `json:"sequenceId"`
	Text          string  `json:"text"`
	Score         float64 `json:"score"`
	SemanticScore float64 `json:"semanticScore"`
	LexicalScore  float64 `json:"lexicalScore"`
}

// SearchResponse is the body of a search request.
type SearchResponse struct {
	Query   string      `json:"query"`
	Mode    string      `json:"mode"`
	Results []SearchHit `json:"results"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	DocID    string `json:"docId"`
	Question string `json:"question"`
	Level    string `json:"level"`
}

// SummaryRequest is the body of POST /api/summary.
type SummaryRequest struct {
	DocID string `json:"docId"`
	Level string `json:"level"`
}

// ConversationResponse is the body of GET /api/documents/:id/conversation.
type ConversationResponse struct {
	ID       string          `json:"id,omitempty"`
	DocID    string          `json:"docId"`
	Level    string          `json:"level,omitempty"`
	Messages []store.Message `json:"messages"`
}

func toDocumentResponse(d *store.Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID,
		Filename:   d.Filename,
		UploadedAt: d.UploadedAt.UTC(),
		PageCount:  d.PageCount,
		ChunkCount: d.ChunkCount,
	}
}

// uploadDocument stores the "file" form field under its own name in a
// scratch directory, then ingests it.
func (s *Server) uploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return planerrors.ValidationError("multipart field \"file\" is required", err)
	}
	name := filepath.Base(fh.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return planerrors.ValidationError("upload has no filename", nil)
	}
	if !s.extractor.Supported(name) {
		return planerrors.New(planerrors.ErrCodeUnsupportedFormat, "unsupported file type "+filepath.Ext(name), nil)
	}

	dir, err := os.MkdirTemp("", "planqa-upload-")
	if err != nil {
		return planerrors.InternalError("create upload directory", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	src, err := fh.Open()
	if err != nil {
		return planerrors.ValidationError("read upload", err)
	}
	defer func() { _ = src.Close() }()

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return planerrors.InternalError("create upload file", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return planerrors.InternalError("write upload file", err)
	}
	if err := dst.Close(); err != nil {
		return planerrors.InternalError("write upload file", err)
	}

	res, err := s.indexer.Index(c.Request().Context(), path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) listDocuments(c echo.Context) error {
	docs, err := s.docs.ListDocuments(c.Request().Context())
	if err != nil {
		return planerrors.New(planerrors.ErrCodeStorageFailed, "list documents", err)
	}
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) deleteDocument(c echo.Context) error {
	if err := s.indexer.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) searchDocument(c echo.Context) error {
	query := c.QueryParam("q")
	mode, err := searcher.ParseMode(c.QueryParam("mode"))
	if err != nil {
		return err
	}

	limit := s.config.Search.TopK
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return planerrors.ValidationError(fmt.Sprintf("limit must be a positive integer, got %q", raw), err)
		}
		limit = min(n, maxSearchLimit)
	}

	weight := s.config.Search.SemanticWeight
	if raw := c.QueryParam("semanticWeight"); raw != "" {
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil || w < 0 || w > 1 {
			return planerrors.ValidationError(fmt.Sprintf("semanticWeight must be between 0.0 and 1.0, got %q", raw), err)
		}
		weight = w
	}

	results, err := s.assistant.Search(c.Request().Context(), c.Param("id"), query, mode, limit, weight)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: query, Mode: string(mode), Results: toHits(results)})
}

func toHits(results []search.ScoredChunk) []SearchHit {
	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		if r.Chunk == nil {
			continue
		}
		hits = append(hits, SearchHit{
			ChunkID:       r.Chunk.ID,
			PageNumber:    r.Chunk.PageNumber,
			SequenceID:    r.Chunk.SequenceID,
			Text:          r.Chunk.Text,
			Score:         r.FusedScore,
			SemanticScore: r.SemanticScore,
			LexicalScore:  r.LexicalScore,
		})
	}
	return hits
}

func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return planerrors.ValidationError("invalid JSON body", err)
	}
	if strings.TrimSpace(req.DocID) == "" {
		return planerrors.ValidationError("docId is required", nil)
	}
	level, err := answer.ParseLevel(req.Level)
	if err != nil {
		return err
	}

	ans, err := s.assistant.Ask(c.Request().Context(), req.DocID, req.Question, level)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ans)
}

func (s *Server) conversation(c echo.Context) error {
	conv, err := s.assistant.Conversation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	msgs := conv.Messages
	if msgs == nil {
		msgs = []store.Message{}
	}
	return c.JSON(http.StatusOK, ConversationResponse{
		ID:       conv.ID,
		DocID:    conv.DocumentID,
		Level:    conv.Level,
		Messages: msgs,
	})
}

func (s *Server) summary(c echo.Context) error {
	var req SummaryRequest
	if err := c.Bind(&req); err != nil {
		return planerrors.ValidationError("invalid JSON body", err)
	}
	if strings.TrimSpace(req.DocID) == "" {
		return planerrors.ValidationError("docId is required", nil)
	}
	level, err := answer.ParseLevel(req.Level)
	if err != nil {
		return err
	}

	summary, err := s.assistant.Summarize(c.Request().Context(), req.DocID, level)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
