// Package store persists documents, their pages and chunks, and the
// conversations held about them in a single SQLite database.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrDocumentNotFound is returned when a document ID is unknown.
var ErrDocumentNotFound = errors.New("document not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Document is an uploaded plan document.
type Document struct {
	ID         string
	Filename   string
	UploadedAt time.Time
	PageCount  int // Filled by reads, ignored on save
	ChunkCount int // Filled by reads, ignored on save
}

// Page is the extracted text of one document page.
type Page struct {
	ID         string
	DocumentID string
	PageNumber int // 1-indexed
	Text       string
}

// Chunk is a retrievable unit of page text with its embedding vector.
// Chunks are immutable once saved and only removed with their document.
type Chunk struct {
	ID         string    // Unique within a document
	DocumentID string    // Owning document
	PageNumber int       // 1-indexed
	SequenceID string    // "<page>-<index>"
	Text       string    // Trimmed, never empty
	Vector     []float32 // Uniform length within a document
}

// Role identifies who wrote a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation points an answer at the page it came from.
type Citation struct {
	PageNumber int    `json:"pageNumber"`
	Snippet    string `json:"snippet"`
}

// Message is one turn of a conversation. Citations and Confidence are only
// set on assistant messages.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Citations  []Citation `json:"citations,omitempty"`
	Confidence string     `json:"confidence,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Conversation is the message history held about one document.
type Conversation struct {
	ID         string
	DocumentID string
	Level      string
	Messages   []Message
	CreatedAt  time.Time
}

// ChunkLister is the read boundary the retrieval core depends on.
type ChunkLister interface {
	// ListChunks returns a document's chunks in insertion order.
	ListChunks(ctx context.Context, documentID string) ([]*Chunk, error)
}

// DocumentStore persists documents together with their pages and chunks.
type DocumentStore interface {
	ChunkLister

	SaveDocument(ctx context.Context, doc *Document, pages []*Page, chunks []*Chunk) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)
	ListPages(ctx context.Context, documentID string) ([]*Page, error)
	DeleteDocument(ctx context.Context, id string) error
}

// ConversationStore persists conversation history per document.
type ConversationStore interface {
	LatestConversation(ctx context.Context, documentID string) (*Conversation, error)
	SaveConversation(ctx context.Context, conv *Conversation) error
}

// Store is the full persistence surface.
type Store interface {
	DocumentStore
	ConversationStore
	Close() error
}
