package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore implements Store on SQLite.
//
// The connection pool is pinned to a single connection so PRAGMAs such as
// foreign_keys apply to every statement. Writers additionally take a
// cross-process FileLock in the database directory.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	lock   *FileLock
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path.
// An empty path opens an in-memory database for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	var lock *FileLock
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
		lock = NewFileLock(dir)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores most DSN params, so PRAGMAs go through Exec.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path, lock: lock}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Debug("store_opened", slog.String("path", path))
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id          TEXT PRIMARY KEY,
		filename    TEXT NOT NULL,
		uploaded_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pages (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		page_number INTEGER NOT NULL,
		text        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pages_document_id ON pages(document_id);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		page_number INTEGER NOT NULL,
		sequence_id TEXT NOT NULL,
		text        TEXT NOT NULL,
		embedding   TEXT NOT NULL,
		UNIQUE (document_id, sequence_id)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);

	CREATE TABLE IF NOT EXISTS conversations (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		level       TEXT NOT NULL,
		messages    TEXT NOT NULL,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_document_id ON conversations(document_id);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// writeLock takes the cross-process lock for file-backed stores.
func (s *SQLiteStore) writeLock() (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	if err := s.lock.Lock(); err != nil {
		return nil, err
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// SaveDocument stores a document with its pages and chunks in one transaction.
// Pages and chunks without an ID get one assigned.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *Document, pages []*Page, chunks []*Chunk) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	unlock, err := s.writeLock()
	if err != nil {
		return err
	}
	defer unlock()

	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, filename, uploaded_at) VALUES (?, ?, ?)`,
		doc.ID, doc.Filename, doc.UploadedAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to insert document %s: %w", doc.ID, err)
	}

	pageStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pages (id, document_id, page_number, text) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare page statement: %w", err)
	}
	defer pageStmt.Close()

	for _, p := range pages {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.DocumentID = doc.ID
		if _, err := pageStmt.ExecContext(ctx, p.ID, doc.ID, p.PageNumber, p.Text); err != nil {
			return fmt.Errorf("failed to insert page %d: %w", p.PageNumber, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, page_number, sequence_id, text, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk statement: %w", err)
	}
	defer chunkStmt.Close()

	for _, c := range chunks {
		if c.ID == "" {
			c.ID = doc.ID + ":" + c.SequenceID
		}
		c.DocumentID = doc.ID
		embedding, err := json.Marshal(c.Vector)
		if err != nil {
			return fmt.Errorf("failed to encode embedding for chunk %s: %w", c.ID, err)
		}
		if _, err := chunkStmt.ExecContext(ctx,
			c.ID, doc.ID, c.PageNumber, c.SequenceID, c.Text, string(embedding)); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document with its page and chunk counts.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	row := s.db.QueryRowContext(ctx, documentSelect+` WHERE d.id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, documentSelect+` ORDER BY d.uploaded_at DESC, d.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

const documentSelect = `
	SELECT d.id, d.filename, d.uploaded_at,
		(SELECT COUNT(*) FROM pages p WHERE p.document_id = d.id),
		(SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
	FROM documents d`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var uploaded int64
	if err := row.Scan(&doc.ID, &doc.Filename, &uploaded, &doc.PageCount, &doc.ChunkCount); err != nil {
		return nil, err
	}
	doc.UploadedAt = time.UnixMilli(uploaded)
	return &doc, nil
}

// ListPages returns a document's pages ordered by page number.
func (s *SQLiteStore) ListPages(ctx context.Context, documentID string) ([]*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, page_number, text FROM pages
		 WHERE document_id = ? ORDER BY page_number, rowid`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := []*Page{}
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNumber, &p.Text); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, &p)
	}
	return pages, rows.Err()
}

// ListChunks returns a document's chunks in insertion order. An unknown
// document has no chunks.
func (s *SQLiteStore) ListChunks(ctx context.Context, documentID string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, page_number, sequence_id, text, embedding FROM chunks
		 WHERE document_id = ? ORDER BY rowid`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	chunks := []*Chunk{}
	for rows.Next() {
		var c Chunk
		var embedding string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.PageNumber, &c.SequenceID, &c.Text, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &c.Vector); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for chunk %s: %w", c.ID, err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document. Pages, chunks and conversations follow
// through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	unlock, err := s.writeLock()
	if err != nil {
		return err
	}
	defer unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return nil
}

// LatestConversation returns the most recent conversation about a document,
// or nil when none exists yet.
func (s *SQLiteStore) LatestConversation(ctx context.Context, documentID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var conv Conversation
	var messages string
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, level, messages, created_at FROM conversations
		 WHERE document_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, documentID).
		Scan(&conv.ID, &conv.DocumentID, &conv.Level, &messages, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", conv.ID, err)
	}
	conv.CreatedAt = time.UnixMilli(created)
	return &conv, nil
}

// SaveConversation inserts or replaces a conversation. A conversation
// without an ID gets one assigned.
func (s *SQLiteStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil || conv.DocumentID == "" {
		return fmt.Errorf("conversation document ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	unlock, err := s.writeLock()
	if err != nil {
		return err
	}
	defer unlock()

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, document_id, level, messages, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET level = excluded.level, messages = excluded.messages`,
		conv.ID, conv.DocumentID, conv.Level, string(messages), conv.CreatedAt.UnixMilli())
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, conv.DocumentID)
		}
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// Path returns the database path, empty for in-memory stores.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database. Calling Close more than once is safe.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
