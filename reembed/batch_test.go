package reembed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/relevit/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBatchEmbedder implements ai.BatchEmbedder for testing
type testBatchEmbedder struct {
	mu        sync.Mutex
	calls     int
	embedFunc func(ctx context.Context, texts []string) ([]ai.Embedding, error)
}

func (e *testBatchEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]ai.Embedding, error) {
	e.mu.Lock()
	e.calls++
	fn := e.embedFunc
	e.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}
	embeddings := make([]ai.Embedding, len(texts))
	for i, text := range texts {
		embeddings[i] = ai.Embedding{Vector: []float32{float32(len(text)), 1, 0}, Provider: "fresh"}
	}
	return embeddings, nil
}

func (e *testBatchEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func TestBatchProcessor_Process(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	added := addTestChunks(t, repo, 2)

	embedder := &testBatchEmbedder{}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	err := processor.Process(ctx, added)
	require.NoError(t, err)

	// Vectors and provider tags were refreshed in the store
	for _, chunk := range added {
		updated, err := repo.GetChunk(ctx, chunk.Id)
		require.NoError(t, err)
		assert.Equal(t, "fresh", updated.Provider)
		require.Len(t, updated.Vector, 3)
		assert.Equal(t, float32(len(updated.Text)), updated.Vector[0])
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	embedder := &testBatchEmbedder{}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	err := processor.Process(context.Background(), nil)
	require.NoError(t, err, "empty batch should not error")
	assert.Equal(t, 0, embedder.callCount())
}

func TestBatchProcessor_EmbeddingError(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	added := addTestChunks(t, repo, 1)

	embedder := &testBatchEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
			return nil, errors.New("persistent error")
		},
	}
	processor := NewBatchProcessor(repo, embedder, 2, 10*time.Millisecond)

	err := processor.Process(ctx, added)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent error")
	assert.Equal(t, 2, embedder.callCount(), "should exhaust all attempts")

	// Store is untouched on failure
	stored, err := repo.GetChunk(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "stale", stored.Provider)
}

func TestBatchProcessor_Retry(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	added := addTestChunks(t, repo, 1)

	attempts := 0
	embedder := &testBatchEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
			attempts++
			if attempts < 2 {
				return nil, errors.New("temporary error")
			}
			// Success on second attempt
			embeddings := make([]ai.Embedding, len(texts))
			for i := range texts {
				embeddings[i] = ai.Embedding{Vector: []float32{1, 0, 0}, Provider: "fresh"}
			}
			return embeddings, nil
		},
	}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	err := processor.Process(ctx, added)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "should retry on failure")

	updated, err := repo.GetChunk(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "fresh", updated.Provider)
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	added := addTestChunks(t, repo, 2)

	embedder := &testBatchEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
			return []ai.Embedding{{Vector: []float32{1}, Provider: "fresh"}}, nil
		},
	}
	processor := NewBatchProcessor(repo, embedder, 1, 10*time.Millisecond)

	err := processor.Process(context.Background(), added)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	added := addTestChunks(t, repo, 1)

	embedder := &testBatchEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
			cancel() // Cancel during embedding
			return nil, errors.New("error")
		},
	}
	processor := NewBatchProcessor(repo, embedder, 3, 10*time.Millisecond)

	err := processor.Process(ctx, added)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
