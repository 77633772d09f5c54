// Package index bootstraps the FT chunk index.
package index

import (
	"context"
	"fmt"

	"github.com/campusdesk/retrievald/internal/db"
	"github.com/campusdesk/retrievald/internal/domain"
)

// manager is the consumer interface for index lifecycle (ISP).
type manager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// HNSWConfig holds HNSW build parameters for the vector field.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// EnsureChunkIndex creates the chunk index if it does not exist.
// Idempotent, called once at startup.
func EnsureChunkIndex(ctx context.Context, m manager, vectorDim int, hnsw HNSWConfig) error {
	exists, err := m.IndexExists(ctx, domain.ChunkIndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", domain.ChunkIndexName, err)
	}
	if exists {
		return nil
	}

	def := buildChunkIndex(vectorDim, hnsw)
	if err := def.Validate(); err != nil {
		return fmt.Errorf("chunk index definition: %w", err)
	}

	if err := m.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", domain.ChunkIndexName, err)
	}
	return nil
}

// buildChunkIndex defines the schema over chunk hashes: TAG fields for
// identity filtering, NUMERIC for version resolution, TEXT for BM25,
// HNSW/COSINE vector for candidate generation.
func buildChunkIndex(vectorDim int, hnsw HNSWConfig) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     domain.ChunkIndexName,
		Prefixes: []string{domain.ChunkKeyPrefix},
		Fields: []db.IndexField{
			{Name: "chunk_id", Type: db.IndexFieldTag},
			{Name: "doc_id", Type: db.IndexFieldTag},
			{Name: "doc_version", Type: db.IndexFieldNumeric},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{Name: "__content", Type: db.IndexFieldText},
			{
				Name:              "__vector",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           hnsw.M,
				VectorEFConstruct: hnsw.EFConstruct,
			},
		},
	}
}
