package local

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func TestNewEmbedder_InvalidDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDimension)

	_, err = NewEmbedder(-5)
	require.Error(t, err)
}

func TestEmbedder_Deterministic(t *testing.T) {
	embedder, err := NewEmbedder(384)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := embedder.EmbedText(ctx, "hybrid retrieval engines")
	require.NoError(t, err)
	second, err := embedder.EmbedText(ctx, "hybrid retrieval engines")
	require.NoError(t, err)

	assert.Equal(t, first, second, "identical text must embed identically")
}

func TestEmbedder_DimensionAndName(t *testing.T) {
	embedder, err := NewEmbedder(128)
	require.NoError(t, err)

	assert.Equal(t, 128, embedder.Dimension())
	assert.Equal(t, "local", embedder.Name())

	vector, err := embedder.EmbedText(context.Background(), "check the width")
	require.NoError(t, err)
	assert.Len(t, vector, 128)
}

func TestEmbedder_UnitNorm(t *testing.T) {
	embedder, err := NewEmbedder(384)
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "climate policy accords and emissions")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5, "non-empty text embeds to a unit vector")
}

func TestEmbedder_EmptyText(t *testing.T) {
	embedder, err := NewEmbedder(64)
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, vector, 64)

	for i, v := range vector {
		assert.Zerof(t, v, "component %d of empty-text vector", i)
	}
}

func TestEmbedder_TokenOverlapDrivesSimilarity(t *testing.T) {
	embedder, err := NewEmbedder(384)
	require.NoError(t, err)

	ctx := context.Background()
	base, err := embedder.EmbedText(ctx, "climate change policy")
	require.NoError(t, err)
	related, err := embedder.EmbedText(ctx, "climate policy accords")
	require.NoError(t, err)
	unrelated, err := embedder.EmbedText(ctx, "quantum chromodynamics lattice")
	require.NoError(t, err)

	assert.Greater(t, cosine(base, related), cosine(base, unrelated),
		"texts sharing tokens must score closer than disjoint texts")
}

func TestEmbedder_CaseAndPunctuationFolded(t *testing.T) {
	embedder, err := NewEmbedder(384)
	require.NoError(t, err)

	ctx := context.Background()
	plain, err := embedder.EmbedText(ctx, "climate policy")
	require.NoError(t, err)
	shouty, err := embedder.EmbedText(ctx, "CLIMATE, Policy!")
	require.NoError(t, err)

	assert.Equal(t, plain, shouty)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	embedder, err := NewEmbedder(96)
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	single, err := embedder.EmbedText(context.Background(), "two")
	require.NoError(t, err)
	assert.Equal(t, single, vectors[1], "batch order must follow input order")
}

func TestEmbedder_CanceledContext(t *testing.T) {
	embedder, err := NewEmbedder(96)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = embedder.EmbedText(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = embedder.EmbedTexts(ctx, []string{"anything"})
	assert.ErrorIs(t, err, context.Canceled)
}
