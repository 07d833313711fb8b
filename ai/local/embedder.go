package local

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strings"

	"github.com/go-crypt/x/blake2b"

	"github.com/poiesic/relevit/ai"
)

// Embedder is a deterministic local embedder. It feature-hashes tokens into
// a fixed-width signed term-frequency vector and L2-normalizes the result.
// No network, no model files, identical text always embeds identically, so
// it can serve as an always-available fallback tier.
//
// The vectors carry no learned semantics; similarity reduces to weighted
// token overlap. That is the accepted quality floor for degraded operation.
type Embedder struct {
	dimension int
}

var _ ai.Embedder = (*Embedder)(nil)

// ErrInvalidDimension is returned for non-positive vector widths.
var ErrInvalidDimension = errors.New("dimension must be greater than 0")

// NewEmbedder creates a local embedder producing vectors of the given width.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(dimension int) (ai.Embedder, error) {
	if dimension < 1 {
		return nil, ErrInvalidDimension
	}
	return &Embedder{dimension: dimension}, nil
}

// EmbedText generates a deterministic vector for a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

// EmbedTexts generates deterministic vectors for multiple texts, in input
// order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// Dimension returns the configured vector width.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Name identifies vectors produced by this provider.
func (e *Embedder) Name() string {
	return "local"
}

func (e *Embedder) embed(text string) []float32 {
	vector := make([]float32, e.dimension)

	for _, token := range tokenize(text) {
		h := hashToken(token)
		idx := int(h % uint64(e.dimension))
		if h>>63 == 1 {
			vector[idx] -= 1
		} else {
			vector[idx] += 1
		}
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}

func tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		cleaned := strings.Trim(word, ".,!?;:'\"-()[]{}")
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}

func hashToken(token string) uint64 {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(token))
	return binary.LittleEndian.Uint64(h.Sum(nil))
}
