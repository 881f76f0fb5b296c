package chunk

import (
	"strconv"
	"strings"
)

// PageChunkerOptions configures the page chunker.
type PageChunkerOptions struct {
	TargetChars  int // Segment length before snapping (default: DefaultTargetChars)
	OverlapChars int // Characters shared by consecutive segments (default: DefaultOverlapChars)
}

// Option configures a PageChunker.
type Option func(*PageChunkerOptions)

// WithTargetChars sets the segment length before sentence snapping.
func WithTargetChars(n int) Option {
	return func(o *PageChunkerOptions) { o.TargetChars = n }
}

// WithOverlapChars sets how many characters consecutive segments share.
func WithOverlapChars(n int) Option {
	return func(o *PageChunkerOptions) { o.OverlapChars = n }
}

// PageChunker splits page text into overlapping fixed-size segments, snapping
// each cut back to the nearest sentence end or line break when one is close.
type PageChunker struct {
	options PageChunkerOptions
}

var _ Chunker = (*PageChunker)(nil)

// NewPageChunker creates a page chunker.
//
// A zero target falls back to the default; a zero overlap keeps the default
// overlap-to-target ratio. An overlap that is not smaller than the target is
// clamped so the cursor always moves forward.
func NewPageChunker(opts ...Option) *PageChunker {
	o := PageChunkerOptions{TargetChars: DefaultTargetChars}
	for _, opt := range opts {
		opt(&o)
	}
	if o.TargetChars <= 0 {
		o.TargetChars = DefaultTargetChars
	}
	if o.OverlapChars <= 0 {
		o.OverlapChars = o.TargetChars * DefaultOverlapChars / DefaultTargetChars
	}
	if o.OverlapChars >= o.TargetChars {
		o.OverlapChars = o.TargetChars - 1
	}
	return &PageChunker{options: o}
}

// Options returns the effective chunker options.
func (c *PageChunker) Options() PageChunkerOptions {
	return c.options
}

// Chunk splits text into drafts for the given page.
//
// Lengths are measured in runes so multi-byte characters are never split.
// Empty input yields no drafts; input shorter than the target yields exactly
// one draft holding the trimmed text.
func (c *PageChunker) Chunk(text string, pageNumber int) []Draft {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return []Draft{}
	}

	drafts := make([]Draft, 0, n/c.options.TargetChars+1)
	index := 0
	start := 0

	for start < n {
		end := min(start+c.options.TargetChars, n)

		chunkEnd := end
		if end < n {
			if bp := lastBreak(runes, end, max(start, end-sentenceSnapWindow)); bp >= 0 {
				chunkEnd = bp + 1
			}
		}

		if trimmed := strings.TrimSpace(string(runes[start:chunkEnd])); trimmed != "" {
			drafts = append(drafts, Draft{
				Text:       trimmed,
				PageNumber: pageNumber,
				SequenceID: strconv.Itoa(pageNumber) + "-" + strconv.Itoa(index),
			})
			index++
		}

		// The segment reached end of text; nothing is left to cover.
		if end == n {
			break
		}

		start = max(start+1, chunkEnd-c.options.OverlapChars)
		if start >= end {
			start = end
		}
	}

	return drafts
}

// lastBreak returns the index of the last '.' or '\n' at or before from that
// lies strictly after floor, or -1 when there is none.
func lastBreak(runes []rune, from, floor int) int {
	if from >= len(runes) {
		from = len(runes) - 1
	}
	for i := from; i > floor; i-- {
		if runes[i] == '.' || runes[i] == '\n' {
			return i
		}
	}
	return -1
}
