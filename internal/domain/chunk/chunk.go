package chunk

import "fmt"

// MaxTextChars is the hard upper bound on chunk text length.
const MaxTextChars = 2000

// Chunk is a bounded segment of a document's text, the unit of retrieval.
type Chunk struct {
	docID     string
	index     int
	text      string
	charCount int
	vector    []float32
	page      int
	section   string
}

// New validates and creates a Chunk. The vector is attached later by ingestion.
func New(docID string, index int, text string) (Chunk, error) {
	if docID == "" {
		return Chunk{}, fmt.Errorf("chunk document ID is required")
	}
	if index < 0 {
		return Chunk{}, fmt.Errorf("chunk index must be non-negative")
	}
	if text == "" {
		return Chunk{}, fmt.Errorf("chunk text is required")
	}
	if len([]rune(text)) > MaxTextChars {
		return Chunk{}, fmt.Errorf("chunk text too long (max %d chars)", MaxTextChars)
	}

	return Chunk{
		docID:     docID,
		index:     index,
		text:      text,
		charCount: len([]rune(text)),
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(docID string, index int, text string, vector []float32, page int, section string) Chunk {
	return Chunk{
		docID: docID, index: index, text: text,
		charCount: len([]rune(text)), vector: vector,
		page: page, section: section,
	}
}

// ID returns the chunk identifier, unique across the corpus.
func (c *Chunk) ID() string { return fmt.Sprintf("%s:%d", c.docID, c.index) }

// DocID returns the owning document identifier.
func (c *Chunk) DocID() string { return c.docID }

// Index returns the 0-based position within the document.
func (c *Chunk) Index() int { return c.index }

// Text returns the chunk text content.
func (c *Chunk) Text() string { return c.text }

// CharCount returns the text length in runes.
func (c *Chunk) CharCount() int { return c.charCount }

// Vector returns the embedding vector (nil before ingestion embeds it).
func (c *Chunk) Vector() []float32 { return c.vector }

// Page returns the source page number (0 = unknown).
func (c *Chunk) Page() int { return c.page }

// Section returns the source section label, if any.
func (c *Chunk) Section() string { return c.section }

// SetVector attaches the embedding vector in place.
func (c *Chunk) SetVector(v []float32) { c.vector = v }

// WithLocation returns a copy annotated with source page and section.
func (c *Chunk) WithLocation(page int, section string) Chunk {
	cp := *c
	cp.page = page
	cp.section = section
	return cp
}
