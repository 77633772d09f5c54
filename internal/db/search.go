package db

// KNNQuery is the input for vector similarity candidate generation.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 re-scoring over a bounded candidate set.
// CandidateIDs restricts scoring to those chunk IDs via a TAG pre-filter;
// it must be non-empty, keeping the lexical pass off the full corpus.
type TextQuery struct {
	IndexName    string
	Query        string
	CandidateIDs []string
	Limit        int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
