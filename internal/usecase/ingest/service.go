// Package ingest drives the document ingestion pipeline: chunk, embed,
// write the chunk set under a fresh version, flip visibility, collect
// the old set. Per-document ingestions are serialized by a lock; failure
// anywhere rolls the whole batch back and records the reason on the
// document.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusdesk/retrievald/internal/domain"
	domchunk "github.com/campusdesk/retrievald/internal/domain/chunk"
	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
	"github.com/campusdesk/retrievald/internal/logger"
	"github.com/campusdesk/retrievald/internal/metrics"
)

// Config bounds the ingestion pipeline.
type Config struct {
	MaxChunksPerDoc int
	VectorDim       int
	LockTTL         time.Duration
}

// Service handles document ingestion and deletion.
type Service struct {
	repo    Repository
	chunker Chunker
	embed   Embedder
	cfg     Config
	now     func() int64
}

// New creates an ingestion service.
func New(repo Repository, chunker Chunker, embed Embedder, cfg Config) *Service {
	return &Service{
		repo:    repo,
		chunker: chunker,
		embed:   embed,
		cfg:     cfg,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// BeginIngestion marks the document processing and returns the ingestion
// token. Rejects with ErrIngestionConflict when an ingestion is already
// in flight for the document.
func (s *Service) BeginIngestion(ctx context.Context, docID string) (string, error) {
	if _, err := s.repo.Get(ctx, docID); err != nil {
		return "", fmt.Errorf("begin ingestion %s: %w", docID, err)
	}

	token := uuid.NewString()
	if err := s.repo.AcquireLock(ctx, docID, token, s.cfg.LockTTL); err != nil {
		if errors.Is(err, domain.ErrIngestionConflict) {
			metrics.IngestDocumentsTotal.WithLabelValues("conflict").Inc()
		}
		return "", err
	}

	if err := s.repo.SetStatus(ctx, docID, domdoc.StatusProcessing, "", s.now()); err != nil {
		_ = s.repo.ReleaseLock(ctx, docID)
		return "", fmt.Errorf("mark processing %s: %w", docID, err)
	}

	return token, nil
}

// CommitChunks persists the full chunk set under a fresh version and
// atomically makes it visible. Either all chunks of the batch become
// visible or none: any failure rolls back the written version and marks
// the document failed with the reason.
func (s *Service) CommitChunks(
	ctx context.Context, docID, token string, chunks []domchunk.Chunk, truncated bool,
) error {
	if err := s.repo.CheckLock(ctx, docID, token); err != nil {
		return err
	}
	defer func() { _ = s.repo.ReleaseLock(ctx, docID) }()

	doc, err := s.repo.Get(ctx, docID)
	if err != nil {
		return fmt.Errorf("get document %s: %w", docID, err)
	}

	newVersion := doc.ActiveVersion() + 1

	if err := s.repo.WriteChunks(ctx, docID, newVersion, chunks); err != nil {
		s.rollback(ctx, docID, doc.ActiveVersion(), fmt.Sprintf("chunk write failed: %v", err))
		return fmt.Errorf("write chunks %s v%d: %w", docID, newVersion, err)
	}

	if err := s.repo.ActivateVersion(ctx, docID, newVersion, len(chunks), truncated, s.now()); err != nil {
		s.rollback(ctx, docID, doc.ActiveVersion(), fmt.Sprintf("version activation failed: %v", err))
		return fmt.Errorf("activate %s v%d: %w", docID, newVersion, err)
	}

	// Old chunk set is unreachable after the flip; failure here leaks
	// keys until the next re-ingestion, nothing more.
	if err := s.repo.DeleteChunkVersions(ctx, docID, newVersion); err != nil {
		logger.FromContext(ctx).Warn("old chunk version cleanup failed",
			zap.String("doc_id", docID), zap.Error(err))
	}

	metrics.IngestChunksTotal.Add(float64(len(chunks)))
	if truncated {
		metrics.IngestDocumentsTotal.WithLabelValues("truncated").Inc()
	}
	metrics.IngestDocumentsTotal.WithLabelValues("completed").Inc()
	return nil
}

// Ingest runs the whole pipeline for a document: create or refresh the
// record, chunk, embed, commit. Embedding failure for any chunk fails
// the entire batch; the document ends failed with zero new chunks
// visible.
func (s *Service) Ingest(ctx context.Context, docID, title, owner, text string) (domdoc.Document, error) {
	start := time.Now()

	if err := s.upsertDocument(ctx, docID, title, owner); err != nil {
		return domdoc.Document{}, err
	}

	token, err := s.BeginIngestion(ctx, docID)
	if err != nil {
		return domdoc.Document{}, err
	}

	texts, truncated, err := s.splitAndCap(text)
	if err != nil {
		s.fail(ctx, docID, err.Error())
		_ = s.repo.ReleaseLock(ctx, docID)
		return domdoc.Document{}, err
	}

	chunks, err := s.embedChunks(ctx, docID, texts)
	if err != nil {
		s.fail(ctx, docID, err.Error())
		_ = s.repo.ReleaseLock(ctx, docID)
		metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
		return domdoc.Document{}, err
	}

	if err := s.CommitChunks(ctx, docID, token, chunks, truncated); err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("failed").Inc()
		return domdoc.Document{}, err
	}

	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	updated, err := s.repo.Get(ctx, docID)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("reload document %s: %w", docID, err)
	}
	return updated, nil
}

// GetDocument returns the document record with its lifecycle status.
func (s *Service) GetDocument(ctx context.Context, docID string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, docID)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document %s: %w", docID, err)
	}
	return doc, nil
}

// GetDocumentChunks returns the visible chunk set: the active version of
// a completed document. Documents without a completed version have no
// visible chunks.
func (s *Service) GetDocumentChunks(ctx context.Context, docID string) ([]domchunk.Chunk, error) {
	doc, err := s.repo.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", docID, err)
	}
	if doc.Status() != domdoc.StatusCompleted {
		return nil, nil
	}

	chunks, err := s.repo.GetChunks(ctx, docID, doc.ActiveVersion(), doc.ChunkCount())
	if err != nil {
		return nil, fmt.Errorf("get chunks %s v%d: %w", docID, doc.ActiveVersion(), err)
	}
	return chunks, nil
}

// DeleteDocument removes the document and cascades to its chunks. The
// document record goes first, so a concurrent search sees the chunks
// either fully present or fully absent.
func (s *Service) DeleteDocument(ctx context.Context, docID string) error {
	if err := s.repo.Delete(ctx, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// upsertDocument creates the record if missing, keeping the original
// creation time on re-ingestion.
func (s *Service) upsertDocument(ctx context.Context, docID, title, owner string) error {
	_, err := s.repo.Get(ctx, docID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDocumentNotFound):
		doc, err := domdoc.New(docID, title, owner, s.now())
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
		if err := s.repo.Upsert(ctx, &doc); err != nil {
			return fmt.Errorf("create document %s: %w", docID, err)
		}
		return nil
	default:
		return fmt.Errorf("get document %s: %w", docID, err)
	}
}

// splitAndCap chunks the text and truncates deterministically at the
// per-document cap, earliest chunks retained.
func (s *Service) splitAndCap(text string) ([]string, bool, error) {
	texts, err := s.chunker.Split(text)
	if err != nil {
		return nil, false, err
	}

	if len(texts) > s.cfg.MaxChunksPerDoc {
		return texts[:s.cfg.MaxChunksPerDoc], true, nil
	}
	return texts, false, nil
}

// embedChunks builds the chunk set with embeddings attached. Any
// per-chunk embedding failure fails the whole batch.
func (s *Service) embedChunks(ctx context.Context, docID string, texts []string) ([]domchunk.Chunk, error) {
	metrics.EmbeddingBatchSize.Observe(float64(len(texts)))

	batch, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch for %s: %w", docID, err)
	}
	if len(batch.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed batch for %s: got %d vectors for %d chunks",
			docID, len(batch.Embeddings), len(texts))
	}

	chunks := make([]domchunk.Chunk, len(texts))
	for i, t := range texts {
		c, err := domchunk.New(docID, i, t)
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %s: %w", i, docID, err)
		}
		if s.cfg.VectorDim > 0 && len(batch.Embeddings[i]) != s.cfg.VectorDim {
			return nil, fmt.Errorf("chunk %d of %s: got dim %d, want %d: %w",
				i, docID, len(batch.Embeddings[i]), s.cfg.VectorDim, domain.ErrVectorDimMismatch)
		}
		c.SetVector(batch.Embeddings[i])
		chunks[i] = c
	}
	return chunks, nil
}

// rollback removes the partially written version and records the failure.
func (s *Service) rollback(ctx context.Context, docID string, keepVersion int, reason string) {
	if err := s.repo.DeleteChunkVersions(ctx, docID, keepVersion); err != nil {
		logger.FromContext(ctx).Error("rollback cleanup failed",
			zap.String("doc_id", docID), zap.Error(err))
	}
	s.fail(ctx, docID, reason)
}

// fail marks the document failed with the recorded reason.
func (s *Service) fail(ctx context.Context, docID, reason string) {
	if err := s.repo.SetStatus(ctx, docID, domdoc.StatusFailed, reason, s.now()); err != nil {
		logger.FromContext(ctx).Error("failed to record ingestion failure",
			zap.String("doc_id", docID), zap.Error(err))
	}
}
