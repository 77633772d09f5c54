// Package chunker splits raw document text into bounded-size segments.
// Splitting is deterministic: the same input always yields the same
// chunk boundaries.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/campusdesk/retrievald/internal/domain"
)

// Chunker splits document text into segments of at most maxChars characters.
type Chunker struct {
	maxChars int
}

// New creates a Chunker. maxChars must be positive.
func New(maxChars int) (*Chunker, error) {
	if maxChars <= 0 {
		return nil, domain.ErrInvalidConfig
	}
	return &Chunker{maxChars: maxChars}, nil
}

// Split breaks text into an ordered sequence of chunk texts.
// Paragraph boundaries (blank lines) are respected where possible;
// oversized paragraphs are split on the whitespace boundary nearest
// the size limit. Returns ErrEmptyDocument if the input has no
// extractable text.
func (c *Chunker) Split(text string) ([]string, error) {
	if !hasExtractableText(text) {
		return nil, domain.ErrEmptyDocument
	}

	var chunks []string
	var current strings.Builder

	for _, para := range splitParagraphs(text) {
		// Flush if the paragraph would not fit into the current chunk.
		if current.Len() > 0 && current.Len()+2+len(para) > c.maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if len(para) <= c.maxChars {
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(para)
			continue
		}

		// Paragraph alone exceeds the limit: emit what is buffered,
		// then split the paragraph on whitespace.
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		chunks = append(chunks, c.splitOversized(para)...)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks, nil
}

// splitOversized splits a single paragraph longer than maxChars on the
// whitespace boundary nearest the limit, falling back to a hard cut for
// unbroken runs.
func (c *Chunker) splitOversized(para string) []string {
	var chunks []string
	rest := para
	for len(rest) > c.maxChars {
		cut := lastWhitespaceBefore(rest, c.maxChars)
		if cut <= 0 {
			cut = runeBoundaryAt(rest, c.maxChars)
		}
		chunk := strings.TrimRightFunc(rest[:cut], unicode.IsSpace)
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = strings.TrimLeftFunc(rest[cut:], unicode.IsSpace)
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

// runeBoundaryAt backs offset up to the nearest rune start so a hard
// cut never tears a multi-byte rune.
func runeBoundaryAt(s string, offset int) int {
	for offset > 0 && !utf8.RuneStart(s[offset]) {
		offset--
	}
	if offset == 0 {
		// single rune wider than the limit, cut after it
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return offset
}

// lastWhitespaceBefore returns the byte offset of the last whitespace
// rune at or before limit, or -1 if none exists. The offset never lands
// inside a multi-byte rune.
func lastWhitespaceBefore(s string, limit int) int {
	best := -1
	for i, r := range s {
		if i > limit {
			break
		}
		if unicode.IsSpace(r) {
			best = i
		}
	}
	return best
}

// splitParagraphs splits text on blank lines, trimming each paragraph
// and dropping empty ones.
func splitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(normalized, "\n\n")
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func hasExtractableText(text string) bool {
	return strings.TrimSpace(text) != ""
}
