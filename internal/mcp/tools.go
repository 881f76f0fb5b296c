package mcp

import "github.com/Aman-CERP/planqa/internal/store"

// SearchDocumentInput defines the input schema for the search_document tool.
type SearchDocumentInput struct {
	DocID          string   `json:"docId" jsonschema:"ID of the document to search, see list_documents"`
	Query          string   `json:"query" jsonschema:"the search query to execute"`
	Mode           string   `json:"mode,omitempty" jsonschema:"hybrid (default), keyword or semantic"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	SemanticWeight *float64 `json:"semanticWeight,omitempty" jsonschema:"share of the semantic score in hybrid mode, 0.0-1.0"`
}

// SearchDocumentOutput defines the output schema for the search_document tool.
type SearchDocumentOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked chunks, best first"`
	Count   int                  `json:"count"`
}

// SearchResultOutput is one ranked chunk.
type SearchResultOutput struct {
	ChunkID       string  `json:"chunkId"`
	PageNumber    int     `json:"pageNumber" jsonschema:"1-indexed page the chunk came from"`
	Text          string  `json:"text"`
	Score         float64 `json:"score" jsonschema:"fused relevance score"`
	SemanticScore float64 `json:"semanticScore"`
	LexicalScore  float64 `json:"lexicalScore"`
}

// AskDocumentInput defines the input schema for the ask_document tool.
type AskDocumentInput struct {
	DocID    string `json:"docId" jsonschema:"ID of the document to ask about"`
	Question string `json:"question" jsonschema:"the question about the plan"`
	Level    string `json:"level,omitempty" jsonschema:"beginner, intermediate (default) or advanced"`
}

// AskDocumentOutput defines the output schema for the ask_document tool.
type AskDocumentOutput struct {
	Answer     string           `json:"answer"`
	Citations  []store.Citation `json:"citations"`
	Confidence string           `json:"confidence" jsonschema:"high, medium or low"`
}

// ListDocumentsInput defines the input schema for the list_documents tool (no parameters).
type ListDocumentsInput struct{}

// ListDocumentsOutput defines the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
}

// DocumentOutput describes one stored document.
type DocumentOutput struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploadedAt"`
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
}

// SummarizeDocumentInput defines the input schema for the summarize_document tool.
type SummarizeDocumentInput struct {
	DocID string `json:"docId" jsonschema:"ID of the document to summarize"`
	Level string `json:"level,omitempty" jsonschema:"beginner, intermediate (default) or advanced"`
}
