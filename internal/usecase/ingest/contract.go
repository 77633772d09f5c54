package ingest

import (
	"context"
	"time"

	"github.com/campusdesk/retrievald/internal/domain"
	domchunk "github.com/campusdesk/retrievald/internal/domain/chunk"
	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
)

// Repository defines the storage contract for the ingestion pipeline.
type Repository interface {
	Upsert(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	SetStatus(ctx context.Context, id string, status domdoc.Status, reason string, now int64) error
	WriteChunks(ctx context.Context, docID string, version int, chunks []domchunk.Chunk) error
	ActivateVersion(ctx context.Context, id string, version, chunkCount int, truncated bool, now int64) error
	DeleteChunkVersions(ctx context.Context, docID string, keepVersion int) error
	Delete(ctx context.Context, id string) error
	GetChunks(ctx context.Context, docID string, version, count int) ([]domchunk.Chunk, error)

	AcquireLock(ctx context.Context, docID, token string, ttl time.Duration) error
	CheckLock(ctx context.Context, docID, token string) error
	ReleaseLock(ctx context.Context, docID string) error
}

// Chunker splits document text into bounded segments.
type Chunker interface {
	Split(text string) ([]string, error)
}

// Embedder vectorizes chunk texts in batch.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
