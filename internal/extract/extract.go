// Package extract reads plan documents from disk and splits them into pages.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"code.sajari.com/docconv/v2"

	planerrors "github.com/Aman-CERP/planqa/internal/errors"
)

// DefaultMaxFileSize rejects uploads larger than 50MB.
const DefaultMaxFileSize = 50 << 20

// Page is one page of extracted text, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// Document is the result of Extract.
type Document struct {
	Path     string
	Filename string
	Pages    []Page
}

// Reader turns a file into plain text. pageCount is 0 when unknown.
type Reader interface {
	CanRead(path string) bool
	ReadText(path string) (text string, pageCount int, err error)
}

// TextReader reads plain text and markdown as-is.
type TextReader struct{}

func (TextReader) CanRead(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

func (TextReader) ReadText(path string) (string, int, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("reading text file: %w", err)
	}
	return string(buf), 0, nil
}

// DocconvReader converts office and PDF formats through docconv. PDF
// conversion needs poppler's pdftotext on PATH.
type DocconvReader struct{}

func (DocconvReader) CanRead(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".odt", ".rtf":
		return true
	}
	return false
}

func (DocconvReader) ReadText(path string) (string, int, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read document: %w", err)
	}
	pages, _ := strconv.Atoi(strings.TrimSpace(res.Meta["Pages"]))
	return res.Body, pages, nil
}

// Extractor picks the first Reader that accepts a path.
type Extractor struct {
	readers []Reader
	maxSize int64
}

// NewExtractor returns an Extractor with the text and docconv readers.
func NewExtractor(readers ...Reader) *Extractor {
	if len(readers) == 0 {
		readers = []Reader{TextReader{}, DocconvReader{}}
	}
	return &Extractor{readers: readers, maxSize: DefaultMaxFileSize}
}

// SupportedExtensions lists the extensions the default readers accept.
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".pdf", ".docx", ".odt", ".rtf"}
}

// Supported reports whether some reader accepts path.
func (e *Extractor) Supported(path string) bool {
	return e.reader(path) != nil
}

func (e *Extractor) reader(path string) Reader {
	for _, r := range e.readers {
		if r.CanRead(path) {
			return r
		}
	}
	return nil
}

// Extract reads path and splits it into pages.
func (e *Extractor) Extract(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, planerrors.New(planerrors.ErrCodeFileNotFound, "file not found: "+path, err)
		}
		return nil, planerrors.Wrap(planerrors.ErrCodeExtractionFailed, err)
	}
	if info.IsDir() {
		return nil, planerrors.ValidationError(path+" is a directory", nil)
	}
	if info.Size() > e.maxSize {
		return nil, planerrors.ValidationError(fmt.Sprintf("%s is %d bytes, limit is %d", path, info.Size(), e.maxSize), nil)
	}

	r := e.reader(path)
	if r == nil {
		return nil, planerrors.New(planerrors.ErrCodeUnsupportedFormat, "unsupported file type "+filepath.Ext(path), nil).
			WithSuggestion("Supported: " + strings.Join(SupportedExtensions(), ", "))
	}

	text, pageCount, err := r.ReadText(path)
	if err != nil {
		return nil, planerrors.New(planerrors.ErrCodeExtractionFailed, "extract "+filepath.Base(path), err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, planerrors.New(planerrors.ErrCodeNoText, "no text found in "+filepath.Base(path), nil).
			WithSuggestion("Scanned PDFs need OCR before ingestion")
	}

	return &Document{
		Path:     path,
		Filename: filepath.Base(path),
		Pages:    SplitPages(text, pageCount),
	}, nil
}

// SplitPages splits text on form feeds when present. Otherwise it cuts the
// text into pageCount runs of ceil(len/pageCount) runes. Blank pages are
// skipped but keep their numbers; if every page is blank the whole text is
// returned as page 1.
func SplitPages(text string, pageCount int) []Page {
	var pages []Page

	if strings.Contains(text, "\f") {
		for i, part := range strings.Split(text, "\f") {
			if t := strings.TrimSpace(part); t != "" {
				pages = append(pages, Page{Number: i + 1, Text: t})
			}
		}
	} else {
		runes := []rune(text)
		if pageCount <= 0 {
			pageCount = 1
		}
		perPage := (len(runes) + pageCount - 1) / pageCount
		for i := 0; i < pageCount && perPage > 0; i++ {
			start := i * perPage
			if start >= len(runes) {
				break
			}
			end := min(start+perPage, len(runes))
			if t := strings.TrimSpace(string(runes[start:end])); t != "" {
				pages = append(pages, Page{Number: i + 1, Text: t})
			}
		}
	}

	if len(pages) == 0 {
		return []Page{{Number: 1, Text: text}}
	}
	return pages
}
