package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/planqa/internal/store"
	"github.com/Aman-CERP/planqa/internal/telemetry"
)

const (
	uriScheme          = "planqa://"
	documentURIPrefix  = uriScheme + "documents/"
	queryMetricsURI    = uriScheme + "query_metrics"
	queryMetricsPeriod = "session"
)

// registerResources exposes document page text as a resource template.
func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentURIPrefix + "{documentId}",
		Name:        "document-text",
		Description: "Full page text of an ingested plan document",
		MIMEType:    "text/plain",
	}, s.handleDocumentResource)
}

// handleDocumentResource returns every page of a document, each headed by
// its page number.
func (s *Server) handleDocumentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	docID := strings.TrimPrefix(uri, documentURIPrefix)
	if docID == "" || docID == uri || strings.Contains(docID, "/") {
		return nil, NewResourceNotFoundError(uri)
	}

	pages, err := s.documentPages(ctx, docID)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("--- Page %d ---\n", p.PageNumber))
		sb.WriteString(p.Text)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     sb.String(),
		}},
	}, nil
}

func (s *Server) documentPages(ctx context.Context, docID string) ([]*store.Page, error) {
	if _, err := s.docs.GetDocument(ctx, docID); err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, NewResourceNotFoundError(documentURIPrefix + docID)
		}
		return nil, MapError(err)
	}
	pages, err := s.docs.ListPages(ctx, docID)
	if err != nil {
		return nil, MapError(err)
	}
	return pages, nil
}

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	ModeCounts          map[string]int64    `json:"mode_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	FallbackCount int64   `json:"fallback_count"`
	TimePeriod    string  `json:"time_period"`
	ZeroResultPct float64 `json:"zero_result_pct"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         queryMetricsURI,
			Description: "Search telemetry for this session: modes, top terms and zero-result queries",
			MIMEType:    "application/json",
		},
		s.handleQueryMetricsResource,
	)
}

func (s *Server) handleQueryMetricsResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	content, err := json.MarshalIndent(buildQueryMetricsOutput(metrics.Snapshot()), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      queryMetricsURI,
			MIMEType: "application/json",
			Text:     string(content),
		}},
	}, nil
}

func buildQueryMetricsOutput(snap telemetry.Snapshot) QueryMetricsOutput {
	output := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:  snap.TotalQueries,
			FallbackCount: snap.FallbackCount,
			TimePeriod:    queryMetricsPeriod,
			ZeroResultPct: snap.ZeroResultPercentage(),
		},
		ModeCounts:          make(map[string]int64, len(snap.ModeCounts)),
		TopTerms:            make([]QueryTermCount, 0, len(snap.TopTerms)),
		ZeroResultQueries:   snap.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snap.LatencyDistribution)),
	}
	if output.ZeroResultQueries == nil {
		output.ZeroResultQueries = []string{}
	}
	for mode, count := range snap.ModeCounts {
		output.ModeCounts[mode] = count
	}
	for _, tc := range snap.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, count := range snap.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}
	return output
}
