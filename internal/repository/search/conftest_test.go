package search

import (
	"context"
	"strconv"
	"testing"

	"github.com/campusdesk/retrievald/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn     func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchLexicalFn func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchLexical(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchLexicalFn != nil {
		return m.searchLexicalFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func hitEntry(key, chunkID, docID string, version, index int, text string, score float64) db.SearchEntry {
	fields := map[string]string{
		"doc_id":      docID,
		"doc_version": strconv.Itoa(version),
		"chunk_index": strconv.Itoa(index),
		"__content":   text,
	}
	if chunkID != "" {
		fields["chunk_id"] = chunkID
	}
	return db.SearchEntry{Key: key, Score: score, Fields: fields}
}
