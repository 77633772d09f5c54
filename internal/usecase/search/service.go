// Package search orchestrates the query path: embed the query, generate
// vector candidates, resolve them against active document versions,
// re-score lexically within the candidate window, combine.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/campusdesk/retrievald/internal/db"
	"github.com/campusdesk/retrievald/internal/domain"
	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
	domsearch "github.com/campusdesk/retrievald/internal/domain/search"
	"github.com/campusdesk/retrievald/internal/logger"
	"github.com/campusdesk/retrievald/internal/metrics"
)

// Service handles hybrid retrieval over the chunk corpus.
type Service struct {
	repo           Repository
	docs           DocumentReader
	embed          Embedder
	candidateLimit int
}

// New creates a search service. candidateLimit caps the vector-only
// candidate window (recall/latency tradeoff, see config).
func New(repo Repository, docs DocumentReader, embed Embedder, candidateLimit int) *Service {
	return &Service{repo: repo, docs: docs, embed: embed, candidateLimit: candidateLimit}
}

// Response is the outcome of one search call. Degraded is set when
// lexical scoring fell back to in-process substring matching.
type Response struct {
	Results  []domsearch.Result
	Degraded bool
}

// Search runs the hybrid query path. An empty result list is a
// successful call, distinct from an error.
func (s *Service) Search(ctx context.Context, params *domsearch.Params) (*Response, error) {
	start := time.Now()

	embStart := time.Now()
	embResult, err := s.embed.Embed(ctx, params.Query())
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("embedding_error").Inc()
		return nil, fmt.Errorf("vectorize query: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	metrics.SearchDuration.WithLabelValues("embed").Observe(time.Since(embStart).Seconds())

	knnStart := time.Now()
	candidates, err := s.repo.KNNCandidates(ctx, embResult.Embedding, s.candidateLimit)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("knn candidates: %w", err)
	}
	metrics.SearchDuration.WithLabelValues("knn").Observe(time.Since(knnStart).Seconds())

	candidates, docs, err := s.resolveActive(ctx, candidates)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SearchCandidates.Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
		metrics.SearchDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
		return &Response{}, nil
	}

	lexStart := time.Now()
	lexical, degraded, err := s.lexicalScores(ctx, params.Query(), candidates)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SearchDuration.WithLabelValues("lexical").Observe(time.Since(lexStart).Seconds())

	results := combineScores(candidates, lexical, docs, params)

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())

	return &Response{Results: results, Degraded: degraded}, nil
}

// resolveActive drops candidates whose chunk version is not the active
// version of a completed document. A chunk set mid-swap or mid-delete is
// either fully resolved or fully dropped, never partially.
func (s *Service) resolveActive(
	ctx context.Context, candidates []domsearch.Candidate,
) ([]domsearch.Candidate, map[string]domdoc.Document, error) {
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.DocID] {
			seen[c.DocID] = true
			ids = append(ids, c.DocID)
		}
	}

	docs, err := s.docs.GetMulti(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve documents: %w", err)
	}

	active := candidates[:0]
	for _, c := range candidates {
		doc, ok := docs[c.DocID]
		if !ok || doc.Status() != domdoc.StatusCompleted || doc.ActiveVersion() != c.DocVersion {
			continue
		}
		active = append(active, c)
	}
	return active, docs, nil
}

// lexicalScores scores the query against the candidate window. A query
// with no extractable tokens yields zero lexical scores (pure semantic
// ranking). An index-side syntax failure degrades to in-process
// substring matching instead of failing the search.
func (s *Service) lexicalScores(
	ctx context.Context, query string, candidates []domsearch.Candidate,
) (map[string]float64, bool, error) {
	tokens := extractTokens(query)
	if len(tokens) == 0 {
		return map[string]float64{}, false, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChunkID
	}

	scores, err := s.repo.LexicalScores(ctx, query, ids)
	if err != nil {
		if !errors.Is(err, db.ErrQuerySyntax) {
			return nil, false, fmt.Errorf("lexical scores: %w", err)
		}
		logger.FromContext(ctx).Warn("lexical query rejected by index, falling back to substring matching",
			zap.Error(err))
		metrics.SearchLexicalFallbacksTotal.Inc()
		return substringScores(tokens, candidates), true, nil
	}
	return scores, false, nil
}

// substringScores is the degraded lexical scorer: each candidate scores
// the fraction of query tokens it contains, case-insensitively.
func substringScores(tokens []string, candidates []domsearch.Candidate) map[string]float64 {
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		text := strings.ToLower(c.Text)
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				matched++
			}
		}
		if matched > 0 {
			scores[c.ChunkID] = float64(matched) / float64(len(tokens))
		}
	}
	return scores
}

// extractTokens splits the query into lowercased letter/digit runs.
// Works for non-Latin scripts since it is rune-based.
func extractTokens(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
