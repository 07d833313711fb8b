package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrFallbackRequired is returned when a tiered embedder is built
	// without a fallback tier
	ErrFallbackRequired = errors.New("fallback embedder required")

	// ErrInnerEmbedderRequired is returned when a caching embedder is
	// built without an inner embedder
	ErrInnerEmbedderRequired = errors.New("inner embedder required")

	// ErrVectorCountMismatch is returned when a provider yields a
	// different number of vectors than texts submitted
	ErrVectorCountMismatch = errors.New("provider returned wrong number of vectors")
)
