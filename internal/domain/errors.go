package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument signals a document with no extractable text.
	ErrEmptyDocument = errors.New("empty document")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidQuery signals an empty or malformed search query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidConfig signals search parameters that violate configuration constraints.
	ErrInvalidConfig = errors.New("invalid search config")
	// ErrIngestionConflict signals a concurrent ingestion attempt on the same document.
	ErrIngestionConflict = errors.New("ingestion already in progress")
	// ErrInvalidToken signals an ingestion token that does not match the active ingestion.
	ErrInvalidToken = errors.New("invalid ingestion token")
	// ErrEmbeddingUnavailable signals an embedding provider failure (transient, caller may retry).
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// PartialBatchFailureError wraps an embedding failure for one chunk of an
// ingestion batch. The whole batch is rolled back; the index of the failing
// chunk is kept for the recorded failure reason.
type PartialBatchFailureError struct {
	ChunkIndex int
	Err        error
}

func (e *PartialBatchFailureError) Error() string {
	return fmt.Sprintf("batch failed at chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *PartialBatchFailureError) Unwrap() error { return e.Err }

// NewPartialBatchFailure creates a batch failure error for the given chunk.
func NewPartialBatchFailure(chunkIndex int, err error) error {
	return &PartialBatchFailureError{ChunkIndex: chunkIndex, Err: err}
}
