package reembed

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/storage"
	"github.com/poiesic/relevit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (storage.ChunkRepository, storage.CheckpointRepository, func()) {
	_, chunks, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	checkpoints := badger.NewCheckpointRepository(backend)

	cleanup := func() {
		backend.Close()
	}

	return chunks, checkpoints, cleanup
}

// addTestChunks stores count chunks spread over a handful of documents.
func addTestChunks(t *testing.T, repo storage.ChunkRepository, count int) []*core.Chunk {
	chunks := make([]*core.Chunk, count)
	for i := 0; i < count; i++ {
		chunks[i] = &core.Chunk{
			DocumentID:    core.ID(1 + i/4),
			SequenceIndex: i % 4,
			Text:          fmt.Sprintf("passage number %d", i),
			Vector:        []float32{1, 0, 0},
			Provider:      "stale",
		}
	}
	added, err := repo.AddChunks(context.Background(), chunks...)
	require.NoError(t, err)
	require.Len(t, added, count)
	return added
}

func TestChunkIterator_Basic(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	addTestChunks(t, repo, 3)

	iter := NewChunkIterator(repo, 2) // Batch size of 2
	count := 0
	var ids []core.ID

	err := iter.ForEach(ctx, 0, func(chunks []*core.Chunk) error {
		count += len(chunks)
		for _, c := range chunks {
			ids = append(ids, c.Id)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, count, "should iterate all 3 chunks")
	assert.Len(t, ids, 3, "should have 3 IDs")
}

func TestChunkIterator_BatchSizes(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	addTestChunks(t, repo, 10)

	tests := []struct {
		name          string
		batchSize     int
		expectedBatch int
	}{
		{"batch size 1", 1, 10},
		{"batch size 3", 3, 4}, // 3+3+3+1
		{"batch size 5", 5, 2}, // 5+5
		{"batch size 10", 10, 1},
		{"batch size 100", 100, 1}, // All in one batch
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iter := NewChunkIterator(repo, tt.batchSize)
			batchCount := 0
			totalChunks := 0

			err := iter.ForEach(ctx, 0, func(chunks []*core.Chunk) error {
				batchCount++
				totalChunks += len(chunks)
				assert.LessOrEqual(t, len(chunks), tt.batchSize, "batch should not exceed batchSize")
				return nil
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expectedBatch, batchCount, "batch count")
			assert.Equal(t, 10, totalChunks, "total chunks")
		})
	}
}

func TestChunkIterator_Resume(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	addTestChunks(t, repo, 7)

	// Record the full iteration order
	var order []core.ID
	iter := NewChunkIterator(repo, 3)
	err := iter.ForEach(ctx, 0, func(chunks []*core.Chunk) error {
		for _, c := range chunks {
			order = append(order, c.Id)
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, order, 7)

	// Resuming after the third chunk yields exactly the remainder, in the
	// same order
	var resumed []core.ID
	err = iter.ForEach(ctx, order[2], func(chunks []*core.Chunk) error {
		for _, c := range chunks {
			resumed = append(resumed, c.Id)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, order[3:], resumed)
}

func TestChunkIterator_EmptyStore(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	iter := NewChunkIterator(repo, 10)
	called := false

	err := iter.ForEach(context.Background(), 0, func(chunks []*core.Chunk) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, called, "callback should not be called for an empty store")
}

func TestChunkIterator_ErrorHandling(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	addTestChunks(t, repo, 2)

	iter := NewChunkIterator(repo, 1)
	called := 0

	expectedErr := assert.AnError
	err := iter.ForEach(ctx, 0, func(chunks []*core.Chunk) error {
		called++
		if called == 1 {
			return expectedErr
		}
		return nil
	})

	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return callback error")
	assert.Equal(t, 1, called, "should stop on first error")
}

func TestChunkIterator_ContextCancellation(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	addTestChunks(t, repo, 5)

	iter := NewChunkIterator(repo, 1)
	called := 0

	err := iter.ForEach(ctx, 0, func(chunks []*core.Chunk) error {
		called++
		if called == 2 {
			cancel()
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, called, "should process until context canceled")
}

func TestChunkIterator_InvalidBatchSize(t *testing.T) {
	repo, _, cleanup := setupTestStore(t)
	defer cleanup()

	// Zero batch size should be handled gracefully
	iter := NewChunkIterator(repo, 0)
	assert.Greater(t, iter.batchSize, 0, "should use default batch size for invalid input")

	// Negative batch size
	iter = NewChunkIterator(repo, -10)
	assert.Greater(t, iter.batchSize, 0, "should use default batch size for negative input")
}
