package search

import (
	"errors"
	"testing"

	"github.com/campusdesk/retrievald/internal/domain"
)

func validWeights(t *testing.T) Weights {
	t.Helper()
	w, err := NewWeights(0.7, 0.3)
	if err != nil {
		t.Fatalf("NewWeights: %v", err)
	}
	return w
}

func TestNewWeights(t *testing.T) {
	tests := []struct {
		name     string
		semantic float64
		lexical  float64
		wantErr  bool
	}{
		{name: "default split", semantic: 0.7, lexical: 0.3},
		{name: "pure semantic", semantic: 1.0, lexical: 0.0},
		{name: "float tolerance", semantic: 0.1 + 0.2, lexical: 0.7},
		{name: "sum below one", semantic: 0.4, lexical: 0.4, wantErr: true},
		{name: "sum above one", semantic: 0.8, lexical: 0.3, wantErr: true},
		{name: "negative weight", semantic: 1.2, lexical: -0.2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWeights(tt.semantic, tt.lexical)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidConfig) {
					t.Errorf("NewWeights(%g, %g) error = %v, want ErrInvalidConfig",
						tt.semantic, tt.lexical, err)
				}
				return
			}
			if err != nil {
				t.Errorf("NewWeights(%g, %g) unexpected error: %v", tt.semantic, tt.lexical, err)
			}
		})
	}
}

func TestNewParamsEmptyQuery(t *testing.T) {
	_, err := NewParams("", 5, 0.78, validWeights(t), 0)
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("error = %v, want ErrInvalidQuery", err)
	}
}

func TestNewParamsDefaultsK(t *testing.T) {
	p, err := NewParams("query", 0, 0.78, validWeights(t), 0)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	if p.K() != DefaultK {
		t.Errorf("K = %d, want %d", p.K(), DefaultK)
	}
}

func TestNewParamsBounds(t *testing.T) {
	w := validWeights(t)

	tests := []struct {
		name      string
		k         int
		threshold float64
		maxPerDoc int
		want      error
	}{
		{name: "k above cap", k: MaxK + 1, threshold: 0.5, want: domain.ErrInvalidConfig},
		{name: "negative k", k: -1, threshold: 0.5, want: domain.ErrInvalidConfig},
		{name: "threshold above one", k: 10, threshold: 1.5, want: domain.ErrInvalidConfig},
		{name: "negative threshold", k: 10, threshold: -0.1, want: domain.ErrInvalidConfig},
		{name: "negative max per doc", k: 10, threshold: 0.5, maxPerDoc: -1, want: domain.ErrInvalidConfig},
		{name: "valid", k: MaxK, threshold: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParams("query", tt.k, tt.threshold, w, tt.maxPerDoc)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
