package search

// Result is a single ranked search hit. Semantic and lexical scores are on a
// shared [0,1] scale; combined is their weighted sum.
type Result struct {
	chunkID      string
	docID        string
	chunkIndex   int
	text         string
	semantic     float64
	lexical      float64
	combined     float64
	page         int
	section      string
	docCreatedAt int64
}

// NewResult creates a search result.
func NewResult(
	chunkID, docID string, chunkIndex int, text string,
	semantic, lexical, combined float64,
	page int, section string, docCreatedAt int64,
) Result {
	return Result{
		chunkID: chunkID, docID: docID, chunkIndex: chunkIndex, text: text,
		semantic: semantic, lexical: lexical, combined: combined,
		page: page, section: section, docCreatedAt: docCreatedAt,
	}
}

// ChunkID returns the chunk identifier.
func (r *Result) ChunkID() string { return r.chunkID }

// DocID returns the owning document identifier.
func (r *Result) DocID() string { return r.docID }

// ChunkIndex returns the 0-based chunk position within its document.
func (r *Result) ChunkIndex() int { return r.chunkIndex }

// Text returns the chunk text content.
func (r *Result) Text() string { return r.text }

// Semantic returns the normalized dense similarity score.
func (r *Result) Semantic() float64 { return r.semantic }

// Lexical returns the normalized keyword relevance score.
func (r *Result) Lexical() float64 { return r.lexical }

// Combined returns the weighted hybrid score.
func (r *Result) Combined() float64 { return r.combined }

// Page returns the source page number (0 = unknown).
func (r *Result) Page() int { return r.page }

// Section returns the source section label, if any.
func (r *Result) Section() string { return r.section }

// DocCreatedAt returns the owning document's creation time (unix millis).
func (r *Result) DocCreatedAt() int64 { return r.docCreatedAt }
