package chi

// ErrorCode identifies the failure class in error responses.
type ErrorCode string

// Error response codes.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeInvalidQuery         ErrorCode = "invalid_query"
	CodeInvalidConfig        ErrorCode = "invalid_config"
	CodeEmptyDocument        ErrorCode = "empty_document"
	CodeDocumentNotFound     ErrorCode = "document_not_found"
	CodeIngestionConflict    ErrorCode = "ingestion_conflict"
	CodePartialBatchFailure  ErrorCode = "partial_batch_failure"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeVectorDimMismatch    ErrorCode = "vector_dim_mismatch"
	CodeRateLimited          ErrorCode = "rate_limited"
	CodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IngestDocumentRequest is the POST /documents payload.
type IngestDocumentRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Owner string `json:"owner"`
	Text  string `json:"text"`
}

// DocumentResponse mirrors the document record with its lifecycle state.
type DocumentResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title,omitempty"`
	Owner         string `json:"owner,omitempty"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	ChunkCount    int    `json:"chunk_count"`
	Truncated     bool   `json:"truncated"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// ChunkItem is one stored chunk of a document's visible version.
type ChunkItem struct {
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	CharCount  int    `json:"char_count"`
	Page       int    `json:"page,omitempty"`
	Section    string `json:"section,omitempty"`
}

// DocumentChunksResponse is the GET /documents/{id}/chunks response.
type DocumentChunksResponse struct {
	DocumentID string      `json:"document_id"`
	Chunks     []ChunkItem `json:"chunks"`
}

// SearchWeights overrides the configured score weights for one request.
type SearchWeights struct {
	Semantic float64 `json:"semantic"`
	Lexical  float64 `json:"lexical"`
}

// SearchRequest is the POST /search payload. Omitted fields fall back
// to configured defaults.
type SearchRequest struct {
	Query          string         `json:"query"`
	K              int            `json:"k,omitempty"`
	Threshold      *float64       `json:"threshold,omitempty"`
	Weights        *SearchWeights `json:"weights,omitempty"`
	MaxPerDocument int            `json:"max_per_document,omitempty"`
}

// SearchResultItem is one ranked hit.
type SearchResultItem struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Text          string  `json:"text"`
	SemanticScore float64 `json:"semantic_score"`
	LexicalScore  float64 `json:"lexical_score"`
	CombinedScore float64 `json:"combined_score"`
	Page          int     `json:"page,omitempty"`
	Section       string  `json:"section,omitempty"`
}

// SearchResponse is the POST /search response. Degraded is set when
// lexical scoring fell back to substring matching.
type SearchResponse struct {
	Results  []SearchResultItem `json:"results"`
	Degraded bool               `json:"degraded,omitempty"`
}

// HealthResponse is the GET /health response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
