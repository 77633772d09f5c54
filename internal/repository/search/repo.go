// Package search reads the FT chunk index: KNN candidate generation and
// candidate-restricted BM25 scoring.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/campusdesk/retrievald/internal/db"
	"github.com/campusdesk/retrievald/internal/domain"
	domsearch "github.com/campusdesk/retrievald/internal/domain/search"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchLexical(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// candidateReturnFields are the chunk hash fields resolved per KNN hit.
var candidateReturnFields = []string{
	"chunk_id", "doc_id", "doc_version", "chunk_index",
	"__content", "page", "section", "__vector_score",
}

// KNNCandidates returns up to limit chunks nearest to the query vector,
// ordered by descending semantic similarity.
func (r *Repo) KNNCandidates(
	ctx context.Context, vector []float32, limit int,
) ([]domsearch.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    domain.ChunkIndexName,
		Vector:       vector,
		K:            limit,
		ReturnFields: candidateReturnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	return parseCandidates(sr), nil
}

// LexicalScores runs BM25 scoring of queryText restricted to the given
// candidate chunk IDs. Chunks with no lexical overlap are absent from
// the returned map. db.ErrQuerySyntax stays matchable through the wrap
// so the caller can fall back to substring matching.
func (r *Repo) LexicalScores(
	ctx context.Context, queryText string, candidateIDs []string,
) (map[string]float64, error) {
	if len(candidateIDs) == 0 {
		return map[string]float64{}, nil
	}

	q := &db.TextQuery{
		IndexName:    domain.ChunkIndexName,
		Query:        queryText,
		CandidateIDs: candidateIDs,
		Limit:        len(candidateIDs),
	}

	sr, err := r.store.SearchLexical(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search lexical: %w", err)
	}

	scores := make(map[string]float64, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := entry.Fields["chunk_id"]
		if id == "" {
			id = chunkIDFromKey(entry.Key)
		}
		if id != "" {
			scores[id] = entry.Score
		}
	}
	return scores, nil
}

// parseCandidates converts db.SearchResult entries into candidates.
func parseCandidates(sr *db.SearchResult) []domsearch.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	candidates := make([]domsearch.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		version, _ := strconv.Atoi(entry.Fields["doc_version"])
		index, _ := strconv.Atoi(entry.Fields["chunk_index"])
		page, _ := strconv.Atoi(entry.Fields["page"])

		id := entry.Fields["chunk_id"]
		if id == "" {
			id = chunkIDFromKey(entry.Key)
		}

		candidates = append(candidates, domsearch.Candidate{
			ChunkID:    id,
			DocID:      entry.Fields["doc_id"],
			DocVersion: version,
			ChunkIndex: index,
			Text:       entry.Fields["__content"],
			Page:       page,
			Section:    entry.Fields["section"],
			Semantic:   entry.Score,
		})
	}
	return candidates
}

// chunkIDFromKey recovers "docID:index" from a chunk hash key of the
// form retrieval:chunk:{docID}:v{version}:{index}.
func chunkIDFromKey(key string) string {
	rest, ok := strings.CutPrefix(key, domain.ChunkKeyPrefix)
	if !ok {
		return ""
	}
	i := strings.LastIndex(rest, ":v")
	j := strings.LastIndex(rest, ":")
	if i < 0 || j <= i {
		return ""
	}
	return rest[:i] + ":" + rest[j+1:]
}
