package search

// Candidate is a chunk returned by vector candidate generation, before
// version filtering and lexical re-scoring. Semantic is cosine
// similarity normalized to [0,1].
type Candidate struct {
	ChunkID    string
	DocID      string
	DocVersion int
	ChunkIndex int
	Text       string
	Page       int
	Section    string
	Semantic   float64
}
