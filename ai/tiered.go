package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TieredEmbedder produces embeddings from a primary provider with bounded
// retries, falling back to a second tier when the primary is exhausted or
// not configured. Vectors produced after a primary failure are tagged
// Fallback so callers can track degraded quality.
type TieredEmbedder struct {
	primary     Embedder
	fallback    Embedder
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

var _ BatchEmbedder = (*TieredEmbedder)(nil)
var _ QueryEmbedder = (*TieredEmbedder)(nil)

// TieredOption configures a TieredEmbedder.
type TieredOption func(*TieredEmbedder)

// WithRetryPolicy sets the retry budget and initial backoff delay for the
// primary tier.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) TieredOption {
	return func(t *TieredEmbedder) {
		t.maxAttempts = maxAttempts
		t.baseDelay = baseDelay
	}
}

// WithLogger sets the logger. A nil logger falls back to slog.Default().
func WithLogger(logger *slog.Logger) TieredOption {
	return func(t *TieredEmbedder) {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger.With("component", "tiered-embedder")
	}
}

// NewTieredEmbedder creates a two-tier embedder. The primary may be nil for
// fallback-only operation; the fallback is required and must not fail under
// normal conditions (a local deterministic embedder fits).
func NewTieredEmbedder(primary, fallback Embedder, opts ...TieredOption) (*TieredEmbedder, error) {
	if fallback == nil {
		return nil, ErrFallbackRequired
	}

	t := &TieredEmbedder{
		primary:     primary,
		fallback:    fallback,
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		logger:      slog.Default().With("component", "tiered-embedder"),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// EmbedQuery embeds a single query text through the tiers.
func (t *TieredEmbedder) EmbedQuery(ctx context.Context, query string) (Embedding, error) {
	embeddings, err := t.EmbedBatch(ctx, []string{query})
	if err != nil {
		return Embedding{}, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts through the primary tier with retries, then the
// fallback tier. A caller-side context cancellation is returned as-is and
// never triggers the fallback. An error is returned only when every tier
// has failed.
func (t *TieredEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return []Embedding{}, nil
	}

	var primaryErr error
	if t.primary != nil {
		var vectors [][]float32
		primaryErr = RetryWithBackoff(ctx, func() error {
			v, err := t.primary.EmbedTexts(ctx, texts)
			if err != nil {
				return err
			}
			if len(v) != len(texts) {
				return fmt.Errorf("%w: expected %d, got %d", ErrVectorCountMismatch, len(texts), len(v))
			}
			vectors = v
			return nil
		}, t.maxAttempts, t.baseDelay)

		if primaryErr == nil {
			return tagged(vectors, t.primary.Name(), false), nil
		}

		if ctx.Err() != nil {
			return nil, primaryErr
		}

		t.logger.Warn("primary embedder exhausted, using fallback",
			"provider", t.primary.Name(),
			"attempts", t.maxAttempts,
			"error", primaryErr)
	}

	vectors, err := t.fallback.EmbedTexts(ctx, texts)
	if err != nil {
		if primaryErr != nil {
			return nil, fmt.Errorf("all embedding tiers failed: primary: %w; fallback: %w", primaryErr, err)
		}
		return nil, fmt.Errorf("fallback embedder failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrVectorCountMismatch, len(texts), len(vectors))
	}

	return tagged(vectors, t.fallback.Name(), primaryErr != nil), nil
}

func tagged(vectors [][]float32, provider string, fallback bool) []Embedding {
	embeddings := make([]Embedding, len(vectors))
	for i, v := range vectors {
		embeddings[i] = Embedding{
			Vector:   v,
			Provider: provider,
			Fallback: fallback,
		}
	}
	return embeddings
}
