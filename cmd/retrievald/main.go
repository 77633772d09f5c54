package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/campusdesk/retrievald/internal/chunker"
	"github.com/campusdesk/retrievald/internal/config"
	dbRedis "github.com/campusdesk/retrievald/internal/db/redis"
	"github.com/campusdesk/retrievald/internal/domain"
	logpkg "github.com/campusdesk/retrievald/internal/logger"
	"github.com/campusdesk/retrievald/internal/metrics"
	documentrepo "github.com/campusdesk/retrievald/internal/repository/document"
	indexrepo "github.com/campusdesk/retrievald/internal/repository/index"
	searchrepo "github.com/campusdesk/retrievald/internal/repository/search"
	chiTransport "github.com/campusdesk/retrievald/internal/transport/chi"
	openaiEmb "github.com/campusdesk/retrievald/internal/transport/openai"
	embeddinguc "github.com/campusdesk/retrievald/internal/usecase/embedding"
	healthuc "github.com/campusdesk/retrievald/internal/usecase/health"
	ingestuc "github.com/campusdesk/retrievald/internal/usecase/ingest"
	searchuc "github.com/campusdesk/retrievald/internal/usecase/search"
	"github.com/campusdesk/retrievald/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting retrievald API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Chunk index bootstrap (idempotent)
	if err := indexrepo.EnsureChunkIndex(ctx, store, cfg.Embedding.Dimensions, indexrepo.HNSWConfig{
		M:           cfg.Retrieval.HNSWM,
		EFConstruct: cfg.Retrieval.HNSWEFConstruct,
	}); err != nil {
		logger.Fatal("Failed to ensure chunk index", zap.Error(err))
	}

	// Register Prometheus metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	// Embedder chain: OpenAI -> rate limited -> instruction prefix.
	// Document and query pipelines get separate prefixes for asymmetric models.
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	embedder := embeddinguc.NewRateLimited(base, cfg.Embedding.RequestsPerSecond, cfg.Embedding.Burst)
	docEmbedder := withInstruction(embedder, cfg.Embedding.DocumentInstruction)
	queryEmbedder := withInstruction(embedder, cfg.Embedding.QueryInstruction)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Repositories
	docRepo := documentrepo.New(store)
	searchRepo := searchrepo.New(store)

	// Usecase services
	chk, err := chunker.New(cfg.Ingestion.MaxChunkChars)
	if err != nil {
		logger.Fatal("Failed to create chunker", zap.Error(err))
	}

	ingestSvc := ingestuc.New(docRepo, chk, docEmbedder, ingestuc.Config{
		MaxChunksPerDoc: cfg.Ingestion.MaxChunksPerDoc,
		VectorDim:       cfg.Embedding.Dimensions,
		LockTTL:         time.Duration(cfg.Ingestion.LockTTLSec) * time.Second,
	})
	searchSvc := searchuc.New(searchRepo, docRepo, queryEmbedder, cfg.Retrieval.CandidateLimit)
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(embedder))

	server := chiTransport.NewServer(ingestSvc, searchSvc, healthSvc, chiTransport.Defaults{
		SemanticWeight: cfg.Retrieval.SemanticWeight,
		LexicalWeight:  cfg.Retrieval.LexicalWeight,
		Threshold:      cfg.Retrieval.Threshold,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// batchEmbedder is the full embedding surface both pipelines need.
type batchEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// withInstruction wraps the embedder with an instruction prefix when one
// is configured.
func withInstruction(inner batchEmbedder, instruction string) batchEmbedder {
	if instruction == "" {
		return inner
	}
	return domain.NewInstructionEmbedder(inner, instruction)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
