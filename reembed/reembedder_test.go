package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/relevit/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReembedder_Run(t *testing.T) {
	repo, checkpoints, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	addTestChunks(t, repo, 10)

	var buf bytes.Buffer
	embedder := &testBatchEmbedder{}
	config := &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxAttempts:    3,
		RetryDelay:     10 * time.Millisecond,
	}

	reembedder := NewReembedder(repo, checkpoints, embedder, config, &buf)
	err := reembedder.Run(ctx)
	require.NoError(t, err)

	// Every chunk carries the new provider tag and vector
	updated, err := repo.ListChunks(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, updated, 10)
	for _, chunk := range updated {
		assert.Equal(t, "fresh", chunk.Provider, "chunk %d should be reembedded", chunk.Id)
		assert.NotEmpty(t, chunk.Vector)
	}

	// Checkpoint is cleared on completion
	checkpoint, err := checkpoints.LoadCheckpoint(ctx, checkpointKind)
	require.NoError(t, err)
	assert.Nil(t, checkpoint)

	// Check progress output
	output := buf.String()
	assert.Contains(t, output, "10/10", "should show completion")
	assert.Contains(t, output, "Reembedding complete", "should report completion")
}

func TestReembedder_EmptyStore(t *testing.T) {
	repo, checkpoints, cleanup := setupTestStore(t)
	defer cleanup()

	var buf bytes.Buffer
	embedder := &testBatchEmbedder{}

	reembedder := NewReembedder(repo, checkpoints, embedder, DefaultConfig(), &buf)
	err := reembedder.Run(context.Background())
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "0 chunks", "should report zero chunks")
	assert.Equal(t, 0, embedder.callCount())
}

func TestReembedder_ContextCancellation(t *testing.T) {
	repo, checkpoints, cleanup := setupTestStore(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	addTestChunks(t, repo, 10)

	// Cancel after processing a few batches
	callCount := 0
	embedder := &testBatchEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
			callCount++
			if callCount == 2 {
				cancel()
			}
			embeddings := make([]ai.Embedding, len(texts))
			for i := range embeddings {
				embeddings[i] = ai.Embedding{Vector: []float32{1, 0, 0}, Provider: "fresh"}
			}
			return embeddings, nil
		},
	}

	var buf bytes.Buffer
	config := &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxAttempts:    3,
		RetryDelay:     10 * time.Millisecond,
	}

	reembedder := NewReembedder(repo, checkpoints, embedder, config, &buf)
	err := reembedder.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The interrupted run left its checkpoint behind
	checkpoint, err := checkpoints.LoadCheckpoint(context.Background(), checkpointKind)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, uint64(6), checkpoint.Processed)
}

func TestReembedder_EmbeddingError(t *testing.T) {
	repo, checkpoints, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	added := addTestChunks(t, repo, 1)

	embedder := &testBatchEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
			return nil, errors.New("persistent error")
		},
	}

	var buf bytes.Buffer
	config := &Config{
		BatchSize:      1,
		ReportInterval: 1,
		MaxAttempts:    2,
		RetryDelay:     10 * time.Millisecond,
	}

	reembedder := NewReembedder(repo, checkpoints, embedder, config, &buf)
	err := reembedder.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persistent error")

	// Nothing was written
	stored, err := repo.GetChunk(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "stale", stored.Provider)
}

func TestReembedder_ResumesFromCheckpoint(t *testing.T) {
	repo, checkpoints, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	addTestChunks(t, repo, 6)

	// First run survives one batch, then the provider goes down
	embedder := &testBatchEmbedder{}
	embedder.embedFunc = func(ctx context.Context, texts []string) ([]ai.Embedding, error) {
		if embedder.callCount() > 1 {
			return nil, errors.New("provider down")
		}
		embeddings := make([]ai.Embedding, len(texts))
		for i := range embeddings {
			embeddings[i] = ai.Embedding{Vector: []float32{1, 0, 0}, Provider: "fresh"}
		}
		return embeddings, nil
	}

	config := &Config{
		BatchSize:      2,
		ReportInterval: 2,
		MaxAttempts:    1,
		RetryDelay:     10 * time.Millisecond,
	}

	var buf bytes.Buffer
	reembedder := NewReembedder(repo, checkpoints, embedder, config, &buf)
	err := reembedder.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, embedder.callCount())

	checkpoint, err := checkpoints.LoadCheckpoint(ctx, checkpointKind)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, uint64(2), checkpoint.Processed)

	// Second run with a healthy provider picks up after the first batch
	embedder.embedFunc = nil
	buf.Reset()
	err = reembedder.Run(ctx)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Resuming from checkpoint (2 of 6 chunks done)")

	// Only the remaining two batches were embedded
	assert.Equal(t, 4, embedder.callCount())

	updated, err := repo.ListChunks(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, updated, 6)
	for _, chunk := range updated {
		assert.Equal(t, "fresh", chunk.Provider)
	}

	checkpoint, err = checkpoints.LoadCheckpoint(ctx, checkpointKind)
	require.NoError(t, err)
	assert.Nil(t, checkpoint, "checkpoint should be cleared on completion")
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Greater(t, config.BatchSize, 0, "batch size should be positive")
	assert.Greater(t, config.ReportInterval, 0, "report interval should be positive")
	assert.Greater(t, config.MaxAttempts, 0, "max attempts should be positive")
	assert.Greater(t, config.RetryDelay, time.Duration(0), "retry delay should be positive")
}

func TestReembedder_ProgressTracking(t *testing.T) {
	repo, checkpoints, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	addTestChunks(t, repo, 25)

	var buf bytes.Buffer
	embedder := &testBatchEmbedder{}
	config := &Config{
		BatchSize:      5,
		ReportInterval: 10, // Report every 10 chunks
		MaxAttempts:    3,
		RetryDelay:     10 * time.Millisecond,
	}

	reembedder := NewReembedder(repo, checkpoints, embedder, config, &buf)
	err := reembedder.Run(ctx)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Progress:", "should show progress")
	assert.Contains(t, output, "25/25", "should show final count")
}
