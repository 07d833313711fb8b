package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the width of the vectors this embedder produces.
	// All vectors from one embedder have the same dimension.
	Dimension() int

	// Name identifies the provider that produced a vector. Vectors are only
	// comparable when they carry the same provider name.
	Name() string
}

// BatchEmbedder produces provider-tagged embeddings for batches of text.
// Implementations must be thread-safe for concurrent use.
type BatchEmbedder interface {
	// EmbedBatch generates one Embedding per input text, in input order.
	// Implementations decide how failures are absorbed; an error means no
	// usable vectors could be produced for the batch.
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}

// QueryEmbedder produces a provider-tagged embedding for a single query.
// Implementations must be thread-safe for concurrent use.
type QueryEmbedder interface {
	// EmbedQuery embeds one query text. An error means no usable vector
	// could be produced.
	EmbedQuery(ctx context.Context, query string) (Embedding, error)
}

// Embedding is a provider-tagged vector.
type Embedding struct {
	// Vector is the embedding itself.
	Vector []float32

	// Provider names the embedder that produced Vector.
	Provider string

	// Fallback marks vectors produced by the fallback tier after the
	// primary was unavailable, so callers can track degraded quality.
	Fallback bool
}
