// Package embedding holds embedder decorators shared by both pipelines.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/campusdesk/retrievald/internal/domain"
)

// RateLimited throttles embedding calls to stay inside provider quotas.
// Wait blocks until a slot is available or the context is cancelled, so
// caller-supplied timeouts still bound the operation.
type RateLimited struct {
	inner   domain.Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a token-bucket limiter.
// requestsPerSecond <= 0 disables throttling.
func NewRateLimited(inner domain.Embedder, requestsPerSecond float64, burst int) *RateLimited {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &RateLimited{inner: inner, limiter: limiter}
}

// Embed waits for a limiter slot, then delegates.
func (r *RateLimited) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := r.wait(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return r.inner.Embed(ctx, text)
}

// BatchEmbed consumes one limiter slot per batch call.
func (r *RateLimited) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if err := r.wait(ctx); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	if be, ok := r.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, r.inner, texts)
}

// HealthCheck bypasses the limiter.
func (r *RateLimited) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (r *RateLimited) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return nil
}
