// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/relevit/ai"
	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/storage"
)

// checkpointKind keys the reembedding progress marker in the checkpoint
// store.
const checkpointKind = "reembed"

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxAttempts is the maximum number of attempts for failed embedding calls
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxAttempts:    3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder re-embeds every stored chunk with the active embedding
// provider. A checkpoint is saved after each batch, so an interrupted run
// resumes after the last completed batch instead of starting over.
type Reembedder struct {
	chunks      storage.ChunkRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *ChunkIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(chunks storage.ChunkRepository, checkpoints storage.CheckpointRepository, embedder ai.BatchEmbedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	processor := NewBatchProcessor(chunks, embedder, config.MaxAttempts, config.RetryDelay)
	iterator := NewChunkIterator(chunks, config.BatchSize)

	return &Reembedder{
		chunks:      chunks,
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   processor,
		iterator:    iterator,
	}
}

// Run executes the reembedding operation.
// Every stored chunk is re-embedded and updated in place, vector and
// provider tag both. Progress is reported to the configured writer. The
// checkpoint is cleared on completion so the next run starts fresh.
func (r *Reembedder) Run(ctx context.Context) error {
	total, err := r.chunks.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in store (0 chunks)\n")
		return nil
	}

	var after core.ID
	var done uint64
	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, checkpointKind)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint != nil {
		after = checkpoint.LastID
		done = checkpoint.Processed
		fmt.Fprintf(r.progress, "Resuming from checkpoint (%d of %d chunks done)\n", done, total)
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	// Initialize progress tracker
	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()
	if done > 0 {
		tracker.Update(int(done))
	}

	err = r.iterator.ForEach(ctx, after, func(chunks []*core.Chunk) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		done += uint64(len(chunks))
		tracker.Increment(len(chunks))

		// Mark the batch complete before moving on
		return r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
			Kind:      checkpointKind,
			LastID:    chunks[len(chunks)-1].Id,
			Processed: done,
		})
	})
	if err != nil {
		return err
	}

	// Finish progress tracking
	tracker.Finish()

	if err := r.checkpoints.DeleteCheckpoint(ctx, checkpointKind); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		done, elapsed.Round(time.Second), float64(done)/elapsed.Seconds())

	return nil
}
