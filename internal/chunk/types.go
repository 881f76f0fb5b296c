package chunk

// Chunk size defaults, expressed in characters using a 4 chars/token heuristic.
const (
	CharsPerToken        = 4
	DefaultTargetTokens  = 1000
	DefaultOverlapTokens = 175
	DefaultTargetChars   = DefaultTargetTokens * CharsPerToken
	DefaultOverlapChars  = DefaultOverlapTokens * CharsPerToken

	// A cut is moved back to a '.' or '\n' found within this many characters.
	sentenceSnapWindow = 200
)

// Draft is a chunk as produced by the chunker, before an embedding vector
// and storage identity are attached to it.
type Draft struct {
	Text       string // Trimmed, never empty
	PageNumber int    // 1-indexed page the text came from
	SequenceID string // "<page>-<index>", unique within a page
}

// Chunker splits the text of one page into drafts.
type Chunker interface {
	Chunk(text string, pageNumber int) []Draft
}
