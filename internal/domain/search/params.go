package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/campusdesk/retrievald/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	// DefaultK is the result count when the caller does not specify one.
	DefaultK = 10
	// MaxK is the hard cap on requested results.
	MaxK = 50
	// WeightTolerance is the allowed floating error when checking that
	// weights sum to one.
	WeightTolerance = 1e-6
)

// Weights splits the combined score between the semantic and lexical signals.
type Weights struct {
	semantic float64
	lexical  float64
}

// NewWeights validates that both weights are non-negative and sum to 1
// within WeightTolerance.
func NewWeights(semantic, lexical float64) (Weights, error) {
	if semantic < 0 || lexical < 0 {
		return Weights{}, fmt.Errorf("weights must be non-negative: %w", domain.ErrInvalidConfig)
	}
	if math.Abs(semantic+lexical-1) > WeightTolerance {
		return Weights{}, fmt.Errorf(
			"weights must sum to 1, got %g: %w", semantic+lexical, domain.ErrInvalidConfig,
		)
	}
	return Weights{semantic: semantic, lexical: lexical}, nil
}

// Semantic returns the dense-similarity weight.
func (w Weights) Semantic() float64 { return w.semantic }

// Lexical returns the keyword-relevance weight.
func (w Weights) Lexical() float64 { return w.lexical }

// Params is a validated search request.
type Params struct {
	query     string
	k         int
	threshold float64
	weights   Weights
	maxPerDoc int
}

// NewParams validates and normalizes search parameters.
// k defaults to DefaultK when zero; maxPerDoc zero disables document-level
// deduplication.
func NewParams(query string, k int, threshold float64, w Weights, maxPerDoc int) (Params, error) {
	if strings.TrimSpace(query) == "" {
		return Params{}, fmt.Errorf("query is required: %w", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Params{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidQuery)
	}
	if k == 0 {
		k = DefaultK
	}
	if k < 0 || k > MaxK {
		return Params{}, fmt.Errorf("k must be between 1 and %d: %w", MaxK, domain.ErrInvalidConfig)
	}
	if threshold < 0 || threshold > 1 {
		return Params{}, fmt.Errorf("threshold must be between 0 and 1: %w", domain.ErrInvalidConfig)
	}
	if maxPerDoc < 0 {
		return Params{}, fmt.Errorf("max_per_document must be non-negative: %w", domain.ErrInvalidConfig)
	}

	return Params{
		query:     query,
		k:         k,
		threshold: threshold,
		weights:   w,
		maxPerDoc: maxPerDoc,
	}, nil
}

// Query returns the search query text.
func (p *Params) Query() string { return p.query }

// K returns the maximum results to return.
func (p *Params) K() int { return p.k }

// Threshold returns the minimum combined score for a result to be returned.
func (p *Params) Threshold() float64 { return p.threshold }

// Weights returns the score combination weights.
func (p *Params) Weights() Weights { return p.weights }

// MaxPerDoc returns the per-document result cap (0 = unlimited).
func (p *Params) MaxPerDoc() int { return p.maxPerDoc }
