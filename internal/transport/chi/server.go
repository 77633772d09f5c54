// Package chi exposes the retrieval engine over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/campusdesk/retrievald/internal/domain"
	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
	domsearch "github.com/campusdesk/retrievald/internal/domain/search"
	healthuc "github.com/campusdesk/retrievald/internal/usecase/health"
	ingestuc "github.com/campusdesk/retrievald/internal/usecase/ingest"
	searchuc "github.com/campusdesk/retrievald/internal/usecase/search"
)

// Defaults are applied when the search request omits threshold or weights.
type Defaults struct {
	SemanticWeight float64
	LexicalWeight  float64
	Threshold      float64
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the usecases to HTTP routes.
type Server struct {
	ingest        *ingestuc.Service
	search        *searchuc.Service
	health        *healthuc.Service
	defaults      Defaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	search *searchuc.Service,
	health *healthuc.Service,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:   ingest,
		search:   search,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		partialBatchHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery),
		sentinelHandler(domain.ErrInvalidConfig, http.StatusBadRequest, CodeInvalidConfig),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, CodeEmptyDocument),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrIngestionConflict, http.StatusConflict, CodeIngestionConflict),
		sentinelHandler(domain.ErrInvalidToken, http.StatusConflict, CodeIngestionConflict),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingUnavailable),
	}
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.IngestDocument)
		r.Get("/documents/{documentID}", s.GetDocument)
		r.Get("/documents/{documentID}/chunks", s.GetDocumentChunks)
		r.Delete("/documents/{documentID}", s.DeleteDocument)
		r.Post("/search", s.Search)
	})
}

// IngestDocument handles POST /api/v1/documents: runs the full pipeline
// synchronously and returns the resulting document record.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "document id is required")
		return
	}

	doc, err := s.ingest.Ingest(r.Context(), req.ID, req.Title, req.Owner, req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, documentToDTO(&doc))
}

// GetDocument handles GET /api/v1/documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")

	doc, err := s.ingest.GetDocument(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToDTO(&doc))
}

// GetDocumentChunks handles GET /api/v1/documents/{documentID}/chunks:
// the chunk set of the document's visible version.
func (s *Server) GetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")

	chunks, err := s.ingest.GetDocumentChunks(r.Context(), docID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]ChunkItem, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		items[i] = ChunkItem{
			ChunkID:    c.ID(),
			ChunkIndex: c.Index(),
			Text:       c.Text(),
			CharCount:  c.CharCount(),
			Page:       c.Page(),
			Section:    c.Section(),
		}
	}

	writeJSON(w, http.StatusOK, DocumentChunksResponse{DocumentID: docID, Chunks: items})
}

// DeleteDocument handles DELETE /api/v1/documents/{documentID}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentID")

	if err := s.ingest.DeleteDocument(r.Context(), docID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	params, err := s.buildParams(&req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.Search(r.Context(), &params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]SearchResultItem, len(resp.Results))
	for i := range resp.Results {
		res := &resp.Results[i]
		items[i] = SearchResultItem{
			ChunkID:       res.ChunkID(),
			DocumentID:    res.DocID(),
			ChunkIndex:    res.ChunkIndex(),
			Text:          res.Text(),
			SemanticScore: res.Semantic(),
			LexicalScore:  res.Lexical(),
			CombinedScore: res.Combined(),
			Page:          res.Page(),
			Section:       res.Section(),
		}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: items, Degraded: resp.Degraded})
}

// buildParams validates the request against configured defaults.
func (s *Server) buildParams(req *SearchRequest) (domsearch.Params, error) {
	semantic, lexical := s.defaults.SemanticWeight, s.defaults.LexicalWeight
	if req.Weights != nil {
		semantic, lexical = req.Weights.Semantic, req.Weights.Lexical
	}
	weights, err := domsearch.NewWeights(semantic, lexical)
	if err != nil {
		return domsearch.Params{}, err
	}

	threshold := s.defaults.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	return domsearch.NewParams(req.Query, req.K, threshold, weights, req.MaxPerDocument)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func documentToDTO(doc *domdoc.Document) DocumentResponse {
	return DocumentResponse{
		ID:            doc.ID(),
		Title:         doc.Title(),
		Owner:         doc.Owner(),
		Status:        string(doc.Status()),
		FailureReason: doc.FailureReason(),
		ChunkCount:    doc.ChunkCount(),
		Truncated:     doc.Truncated(),
		CreatedAt:     doc.CreatedAt(),
		UpdatedAt:     doc.UpdatedAt(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidConfig,
		domain.ErrEmptyDocument,
		domain.ErrDocumentNotFound,
		domain.ErrIngestionConflict,
		domain.ErrInvalidToken,
		domain.ErrRateLimited,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// partialBatchHandler reports which chunk sank an ingestion batch.
func partialBatchHandler(w http.ResponseWriter, err error, _ string) bool {
	var pbf *domain.PartialBatchFailureError
	if !errors.As(err, &pbf) {
		return false
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{
		"code":        CodePartialBatchFailure,
		"message":     fmt.Sprintf("embedding failed at chunk %d, batch rolled back", pbf.ChunkIndex),
		"chunk_index": pbf.ChunkIndex,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
