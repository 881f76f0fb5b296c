package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/planqa/internal/answer"
	"github.com/Aman-CERP/planqa/internal/config"
	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
	"github.com/Aman-CERP/planqa/pkg/searcher"
	"github.com/Aman-CERP/planqa/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "planqa"

const maxLimit = 50

// Server is the MCP server for planqa.
// It lets AI clients search and question ingested plan documents.
type Server struct {
	mcp       *mcp.Server
	docs      store.DocumentStore
	assistant *answer.Assistant
	config    *config.Config
	logger    *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "list_documents",
		Description: "List the ingested insurance plan documents with their IDs. Call this first to find the docId the other tools need.",
	},
	{
		Name:        "search_document",
		Description: "Find the passages of one plan document most relevant to a query. Hybrid mode blends keyword and semantic matching; keyword and semantic modes use one signal only.",
	},
	{
		Name:        "ask_document",
		Description: "Answer a question about a plan document using only its text, with page citations and a confidence grade. Follow-up questions see the conversation so far.",
	},
	{
		Name:        "summarize_document",
		Description: "Extract the headline benefits of a plan document: deductible, out-of-pocket maximum, copays, referral and prior authorization rules.",
	},
}

// NewServer creates a new MCP server over the document store and assistant.
func NewServer(docs store.DocumentStore, assistant *answer.Assistant, cfg *config.Config) (*Server, error) {
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	if assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		docs:      docs,
		assistant: assistant,
		config:    cfg,
		logger:    slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// SetMetrics sets the query metrics collector.
// When set, a query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpListDocumentsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpSearchDocumentHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpAskDocumentHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description}, s.mcpSummarizeDocumentHandler)

	s.logger.Info("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpListDocumentsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (
	*mcp.CallToolResult,
	ListDocumentsOutput,
	error,
) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}

	output := ListDocumentsOutput{Documents: make([]DocumentOutput, 0, len(docs))}
	for _, d := range docs {
		output.Documents = append(output.Documents, DocumentOutput{
			ID:         d.ID,
			Filename:   d.Filename,
			UploadedAt: d.UploadedAt.UTC().Format(time.RFC3339),
			Pages:      d.PageCount,
			Chunks:     d.ChunkCount,
		})
	}
	return textResult(FormatDocuments(docs)), output, nil
}

func (s *Server) mcpSearchDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocumentInput) (
	*mcp.CallToolResult,
	SearchDocumentOutput,
	error,
) {
	requestID := generateRequestID()
	start := time.Now()

	if strings.TrimSpace(input.DocID) == "" {
		return nil, SearchDocumentOutput{}, NewInvalidParamsError("docId parameter is required")
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchDocumentOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	mode, err := searcher.ParseMode(input.Mode)
	if err != nil {
		return nil, SearchDocumentOutput{}, MapError(err)
	}

	limit := clampLimit(input.Limit, s.config.Search.TopK, 1, maxLimit)
	weight := s.config.Search.SemanticWeight
	if input.SemanticWeight != nil {
		weight = *input.SemanticWeight
	}
	if weight < 0 || weight > 1 {
		return nil, SearchDocumentOutput{}, NewInvalidParamsError("semanticWeight must be between 0.0 and 1.0")
	}

	s.logger.Info("search_document started",
		slog.String("request_id", requestID),
		slog.String("document_id", input.DocID),
		slog.String("mode", string(mode)),
		slog.Int("limit", limit))

	results, err := s.assistant.Search(ctx, input.DocID, input.Query, mode, limit, weight)
	if err != nil {
		s.logger.Error("search_document failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, SearchDocumentOutput{}, MapError(err)
	}

	results = filterValidResults(results)
	output := SearchDocumentOutput{
		Results: make([]SearchResultOutput, 0, len(results)),
		Count:   len(results),
	}
	for _, r := range results {
		output.Results = append(output.Results, SearchResultOutput{
			ChunkID:       r.Chunk.ID,
			PageNumber:    r.Chunk.PageNumber,
			Text:          r.Chunk.Text,
			Score:         r.FusedScore,
			SemanticScore: r.SemanticScore,
			LexicalScore:  r.LexicalScore,
		})
	}

	s.logger.Info("search_document completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(results)))

	return textResult(FormatSearchResults(input.Query, results)), output, nil
}

func (s *Server) mcpAskDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskDocumentInput) (
	*mcp.CallToolResult,
	AskDocumentOutput,
	error,
) {
	level, err := answer.ParseLevel(input.Level)
	if err != nil {
		return nil, AskDocumentOutput{}, MapError(err)
	}

	ans, err := s.assistant.Ask(ctx, input.DocID, input.Question, level)
	if err != nil {
		return nil, AskDocumentOutput{}, MapError(err)
	}

	output := AskDocumentOutput{
		Answer:     ans.Text,
		Citations:  ans.Citations,
		Confidence: string(ans.Confidence),
	}
	return textResult(FormatAnswer(ans)), output, nil
}

func (s *Server) mcpSummarizeDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, input SummarizeDocumentInput) (
	*mcp.CallToolResult,
	*answer.PlanSummary,
	error,
) {
	if strings.TrimSpace(input.DocID) == "" {
		return nil, nil, NewInvalidParamsError("docId parameter is required")
	}
	level, err := answer.ParseLevel(input.Level)
	if err != nil {
		return nil, nil, MapError(err)
	}

	summary, err := s.assistant.Summarize(ctx, input.DocID, level)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return textResult(FormatSummary(summary)), summary, nil
}

// Serve runs the MCP server on stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// HTTPHandler serves the same tools over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

// clampLimit applies def when n is unset and bounds the result to [lo, hi].
func clampLimit(n, def, lo, hi int) int {
	if n <= 0 {
		n = def
	}
	return max(lo, min(n, hi))
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
