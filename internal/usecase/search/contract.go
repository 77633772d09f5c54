package search

import (
	"context"

	"github.com/campusdesk/retrievald/internal/domain"
	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
	domsearch "github.com/campusdesk/retrievald/internal/domain/search"
)

// Repository defines the index-read contract for search operations.
type Repository interface {
	KNNCandidates(ctx context.Context, vector []float32, limit int) ([]domsearch.Candidate, error)
	LexicalScores(ctx context.Context, queryText string, candidateIDs []string) (map[string]float64, error)
}

// DocumentReader resolves candidate chunks against document records.
type DocumentReader interface {
	GetMulti(ctx context.Context, ids []string) (map[string]domdoc.Document, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
