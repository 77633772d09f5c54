// Package document persists Document records and their versioned chunk
// sets. A document's chunk set is written under a fresh version and made
// visible by flipping active_version on the document hash in a single
// HSET. Readers resolve chunks against the active version only, so a
// half-written set is never observable.
package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campusdesk/retrievald/internal/db"
	"github.com/campusdesk/retrievald/internal/domain"
	domchunk "github.com/campusdesk/retrievald/internal/domain/chunk"
	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
)

// store is the consumer interface for document persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// Repo implements the document and chunk-set repositories.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes the full document record.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) error {
	key := docKey(doc.ID())
	if err := r.store.HSet(ctx, key, buildDocFields(doc)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := docKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return parseDocFields(id, m), nil
}

// GetMulti returns documents for the given IDs in one pipelined round trip.
// Missing documents are absent from the result map, not an error.
func (r *Repo) GetMulti(ctx context.Context, ids []string) (map[string]domdoc.Document, error) {
	if len(ids) == 0 {
		return map[string]domdoc.Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}

	docs := make(map[string]domdoc.Document, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		docs[ids[i]] = parseDocFields(ids[i], m)
	}
	return docs, nil
}

// SetStatus updates the lifecycle status and failure reason in one HSET.
func (r *Repo) SetStatus(ctx context.Context, id string, status domdoc.Status, reason string, now int64) error {
	key := docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	fields := map[string]string{
		"status":         string(status),
		"failure_reason": reason,
		"updated_at":     strconv.FormatInt(now, 10),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// WriteChunks persists a full chunk set under the given version in one
// pipelined batch. The set stays invisible until ActivateVersion flips
// the document's active_version to it.
func (r *Repo) WriteChunks(ctx context.Context, docID string, version int, chunks []domchunk.Chunk) error {
	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		items[i] = db.HashSetItem{
			Key:    chunkKey(docID, version, chunks[i].Index()),
			Fields: buildChunkFields(&chunks[i], version),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("write chunk set %s v%d: %w", docID, version, err)
	}
	return nil
}

// ActivateVersion flips the document to the given chunk set version and
// marks it completed, in a single HSET. This is the atomic visibility
// switch for the whole set.
func (r *Repo) ActivateVersion(
	ctx context.Context, id string, version, chunkCount int, truncated bool, now int64,
) error {
	key := docKey(id)
	fields := map[string]string{
		"status":         string(domdoc.StatusCompleted),
		"failure_reason": "",
		"active_version": strconv.Itoa(version),
		"chunk_count":    strconv.Itoa(chunkCount),
		"truncated":      strconv.FormatBool(truncated),
		"updated_at":     strconv.FormatInt(now, 10),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("activate %s v%d: %w", key, version, err)
	}
	return nil
}

// DeleteChunkVersions removes all chunk hashes of the document except
// keepVersion (0 keeps nothing). Used for old-set garbage collection
// after a version flip and for rollback of a failed write.
func (r *Repo) DeleteChunkVersions(ctx context.Context, docID string, keepVersion int) error {
	keys, err := r.store.Scan(ctx, chunkScanPattern(docID))
	if err != nil {
		return fmt.Errorf("scan chunks %s: %w", docID, err)
	}

	var toDelete []string
	keep := chunkVersionPrefix(docID, keepVersion)
	for _, k := range keys {
		if keepVersion > 0 && strings.HasPrefix(k, keep) {
			continue
		}
		toDelete = append(toDelete, k)
	}
	if len(toDelete) == 0 {
		return nil
	}

	if err := r.store.DelMulti(ctx, toDelete); err != nil {
		return fmt.Errorf("delete chunk versions %s: %w", docID, err)
	}
	return nil
}

// Delete removes the document and all its chunks. The document record
// goes first so concurrent searches stop resolving the chunks before
// the chunk hashes disappear.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}

	return r.DeleteChunkVersions(ctx, id, 0)
}

// GetChunks returns the chunk set of the given version, resolved in one
// pipelined round trip. Indices are contiguous 0..count-1 by invariant.
func (r *Repo) GetChunks(ctx context.Context, docID string, version, count int) ([]domchunk.Chunk, error) {
	if count <= 0 {
		return nil, nil
	}

	keys := make([]string, count)
	for i := range keys {
		keys[i] = chunkKey(docID, version, i)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall chunks %s v%d: %w", docID, version, err)
	}

	chunks := make([]domchunk.Chunk, 0, count)
	for _, m := range maps {
		if len(m) == 0 {
			continue
		}
		chunks = append(chunks, parseChunkFields(m))
	}
	return chunks, nil
}

// AcquireLock takes the per-document ingestion lock with the given token.
// Returns ErrIngestionConflict if another ingestion holds it.
func (r *Repo) AcquireLock(ctx context.Context, docID, token string, ttl time.Duration) error {
	ok, err := r.store.SetNX(ctx, lockKey(docID), []byte(token), ttl)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", docID, err)
	}
	if !ok {
		return domain.ErrIngestionConflict
	}
	return nil
}

// CheckLock verifies the token still holds the ingestion lock.
func (r *Repo) CheckLock(ctx context.Context, docID, token string) error {
	val, err := r.store.Get(ctx, lockKey(docID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrInvalidToken
		}
		return fmt.Errorf("check lock %s: %w", docID, err)
	}
	if string(val) != token {
		return domain.ErrInvalidToken
	}
	return nil
}

// ReleaseLock drops the ingestion lock. Safe to call when already expired.
func (r *Repo) ReleaseLock(ctx context.Context, docID string) error {
	if err := r.store.Del(ctx, lockKey(docID)); err != nil {
		return fmt.Errorf("release lock %s: %w", docID, err)
	}
	return nil
}

func docKey(id string) string {
	return fmt.Sprintf("%sdoc:%s", domain.KeyPrefix, id)
}

func lockKey(id string) string {
	return fmt.Sprintf("%slock:%s", domain.KeyPrefix, id)
}

func chunkKey(docID string, version, index int) string {
	return fmt.Sprintf("%schunk:%s:v%d:%d", domain.KeyPrefix, docID, version, index)
}

func chunkVersionPrefix(docID string, version int) string {
	return fmt.Sprintf("%schunk:%s:v%d:", domain.KeyPrefix, docID, version)
}

func chunkScanPattern(docID string) string {
	return fmt.Sprintf("%schunk:%s:v*", domain.KeyPrefix, docID)
}
