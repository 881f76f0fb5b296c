package mcp

import (
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/planqa/internal/answer"
	"github.com/Aman-CERP/planqa/internal/search"
	"github.com/Aman-CERP/planqa/internal/store"
)

// maxResultChars bounds chunk text shown per search result.
const maxResultChars = 600

// FormatSearchResults formats ranked chunks as markdown.
func FormatSearchResults(query string, results []search.ScoredChunk) string {
	valid := filterValidResults(results)

	if len(valid) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(valid)))
	if len(valid) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range valid {
		sb.WriteString(fmt.Sprintf("### %d. Page %d (score %.3f)\n\n", i+1, r.Chunk.PageNumber, r.FusedScore))
		sb.WriteString(fmt.Sprintf("*semantic %.3f, lexical %.3f*\n\n", r.SemanticScore, r.LexicalScore))
		sb.WriteString("> ")
		sb.WriteString(strings.ReplaceAll(search.Snippet(r.Chunk.Text, maxResultChars), "\n", "\n> "))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// FormatAnswer formats an answer with its citations.
func FormatAnswer(ans *answer.Answer) string {
	var sb strings.Builder
	sb.WriteString(ans.Text)
	sb.WriteString("\n\n")
	if len(ans.Citations) > 0 {
		sb.WriteString("**Sources**\n\n")
		for _, c := range ans.Citations {
			sb.WriteString(fmt.Sprintf("- Page %d: \"%s\"\n", c.PageNumber, c.Snippet))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Confidence: **%s**\n", ans.Confidence))
	return sb.String()
}

// FormatDocuments formats the document list as a markdown table.
func FormatDocuments(docs []*store.Document) string {
	if len(docs) == 0 {
		return "No documents have been ingested yet."
	}

	var sb strings.Builder
	sb.WriteString("| ID | Filename | Pages | Chunks | Uploaded |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %d | %d | %s |\n",
			d.ID, d.Filename, d.PageCount, d.ChunkCount, d.UploadedAt.UTC().Format("2006-01-02 15:04")))
	}
	return sb.String()
}

// FormatSummary formats the extracted plan fields.
func FormatSummary(s *answer.PlanSummary) string {
	rows := []struct{ label, value string }{
		{"Deductible", s.Deductible},
		{"Out-of-pocket maximum", s.OutOfPocketMax},
		{"Primary care copay", s.PrimaryCareCopay},
		{"Specialist copay", s.SpecialistCopay},
		{"Emergency room copay", s.EmergencyRoomCopay},
		{"Urgent care copay", s.UrgentCareCopay},
		{"Preventive care", s.PreventiveCare},
		{"Referral required", s.ReferralRequired},
		{"Prior authorization", s.PriorAuthorization},
		{"Network", s.NetworkNotes},
		{"Drug tiers", s.DrugTierOverview},
	}

	var sb strings.Builder
	sb.WriteString("## Plan Summary\n\n")
	for _, r := range rows {
		if r.value != "" {
			sb.WriteString(fmt.Sprintf("- **%s:** %s\n", r.label, r.value))
		}
	}
	if len(s.UnknownFields) > 0 {
		sb.WriteString(fmt.Sprintf("\nNot found in document: %s\n", strings.Join(s.UnknownFields, ", ")))
	}
	return sb.String()
}

func filterValidResults(results []search.ScoredChunk) []search.ScoredChunk {
	valid := make([]search.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Chunk != nil {
			valid = append(valid, r)
		}
	}
	return valid
}

// textResult wraps markdown as the human-readable part of a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
