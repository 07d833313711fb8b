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


package relevit

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/relevit/ai"
	"github.com/poiesic/relevit/ai/local"
	"github.com/poiesic/relevit/ai/openai"
	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/ingestion"
	"github.com/poiesic/relevit/reembed"
	"github.com/poiesic/relevit/search"
	"github.com/poiesic/relevit/storage"
	"github.com/poiesic/relevit/storage/badger"
)

// Engine bundles the index store, the embedding tiers, the ingestion
// pipeline, and the searcher behind one handle.
type Engine struct {
	config      *Config
	backend     *badger.Backend
	documents   storage.DocumentRepository
	chunks      storage.ChunkRepository
	cache       storage.CacheRepository
	checkpoints storage.CheckpointRepository
	embedder    *ai.CachingEmbedder
	pipeline    *ingestion.Pipeline
	searcher    *search.Searcher
	logger      *slog.Logger
}

func NewEngine(filePath string, opts ...Option) (*Engine, error) {
	// Apply options
	config := NewConfig(opts...)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	// Repositories share the backend handle
	documents := badger.NewDocumentRepository(backend)
	chunks := badger.NewChunkRepository(backend)
	cache := badger.NewCacheRepository(backend)
	checkpoints := badger.NewCheckpointRepository(backend)

	// Assemble the embedding tiers
	embedder, err := buildEmbedder(config, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(documents, chunks, embedder,
		ingestion.WithChunking(config.ChunkSize, config.ChunkOverlap),
		ingestion.WithBatchSize(config.BatchSize),
		ingestion.WithMaxKeywords(config.MaxKeywords),
		ingestion.WithPoolSize(config.PoolSize),
		ingestion.WithLogger(logger),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(chunks, cache, embedder,
		search.WithWeights(config.SemanticWeight, config.KeywordWeight),
		search.WithOverfetch(config.Overfetch),
		search.WithLegTimeout(config.LegTimeout),
		search.WithMinRelevance(config.MinRelevance),
		search.WithContextWindow(config.ContextWindow),
		search.WithMonitor(config.Monitor),
		search.WithLogger(logger),
	)
	if err != nil {
		pipeline.Release()
		backend.Close()
		return nil, err
	}

	return &Engine{
		config:      config,
		backend:     backend,
		documents:   documents,
		chunks:      chunks,
		cache:       cache,
		checkpoints: checkpoints,
		embedder:    embedder,
		pipeline:    pipeline,
		searcher:    searcher,
		logger:      logger,
	}, nil
}

// buildEmbedder stacks the embedding tiers: the remote primary unless the
// engine is local-only, the deterministic local fallback, and a fingerprint
// cache over both.
func buildEmbedder(config *Config, logger *slog.Logger) (*ai.CachingEmbedder, error) {
	fallback, err := local.NewEmbedder(config.AI.LocalDimension)
	if err != nil {
		return nil, err
	}

	var primary ai.Embedder
	if !config.LocalOnly {
		primary, err = openai.NewEmbedder(config.AI)
		if err != nil {
			return nil, err
		}
	}

	tiered, err := ai.NewTieredEmbedder(primary, fallback,
		ai.WithRetryPolicy(config.AI.MaxAttempts, config.AI.RetryBaseDelay),
		ai.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return ai.NewCachingEmbedder(tiered)
}

// Ingest stores a document and indexes its chunks. The name, when given, is
// recorded under the "name" metadata key. Ingest is idempotent on content:
// handing in text that is already stored returns the existing document
// without reprocessing it.
func (e *Engine) Ingest(ctx context.Context, name, format string, metadata map[string]string, text string) (*core.Document, error) {
	merged := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		merged[k] = v
	}
	if name != "" {
		merged["name"] = name
	}
	if len(merged) == 0 {
		merged = nil
	}

	return e.pipeline.Ingest(ctx, text, &ingestion.IngestOptions{
		Format:   format,
		Metadata: merged,
	})
}

// Search runs a query in the given mode and returns up to limit ranked
// results.
func (e *Engine) Search(ctx context.Context, query string, mode core.SearchMode, limit int) ([]core.ScoredResult, error) {
	return e.searcher.Search(ctx, query, mode, limit)
}

// SimilarDocuments finds chunks of other documents that resemble the given
// document's content. Returns storage.ErrNotFound for an unknown document.
func (e *Engine) SimilarDocuments(ctx context.Context, documentID core.ID, limit int) ([]core.ScoredResult, error) {
	if _, err := e.documents.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return e.searcher.SimilarDocuments(ctx, documentID, limit)
}

// Suggest returns indexed keywords continuing the given prefix.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	return e.searcher.Suggest(ctx, prefix, limit)
}

// Stats reports corpus counts.
func (e *Engine) Stats(ctx context.Context) (core.Stats, error) {
	documents, err := e.documents.CountDocuments(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("failed to count documents: %w", err)
	}
	chunks, err := e.chunks.CountChunks(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("failed to count chunks: %w", err)
	}
	entries, err := e.cache.CountEntries(ctx)
	if err != nil {
		return core.Stats{}, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return core.Stats{
		Documents:    documents,
		Chunks:       chunks,
		CacheEntries: entries,
	}, nil
}

// DeleteDocument removes a document's chunks, their index entries, and the
// document record. Returns storage.ErrNotFound for an unknown document.
func (e *Engine) DeleteDocument(ctx context.Context, id core.ID) error {
	removed, err := e.chunks.DeleteChunksByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if err := e.documents.DeleteDocument(ctx, id); err != nil {
		return err
	}
	e.logger.Debug("document deleted", "document", id, "chunks_removed", removed)
	return nil
}

// Reprocess re-chunks and re-embeds a stored document with the engine's
// current settings. This is the only path that moves a failed document
// forward again.
func (e *Engine) Reprocess(ctx context.Context, id core.ID) (*core.Document, error) {
	return e.pipeline.Reprocess(ctx, id)
}

// EvictExpiredCache removes query results that have not been used within the
// configured retention window. It returns how many entries were evicted.
func (e *Engine) EvictExpiredCache(ctx context.Context) (int, error) {
	return e.cache.EvictExpired(ctx, e.config.CacheRetention)
}

// NewReembedder creates a re-embedding run over the engine's chunk store,
// reporting progress to the given writer. A nil config uses
// reembed.DefaultConfig().
func (e *Engine) NewReembedder(config *reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(e.chunks, e.checkpoints, e.embedder, config, progress)
}

// Documents exposes the document repository.
func (e *Engine) Documents() storage.DocumentRepository {
	return e.documents
}

// Chunks exposes the chunk repository.
func (e *Engine) Chunks() storage.ChunkRepository {
	return e.chunks
}

// Close releases the ingestion workers and closes the index store.
func (e *Engine) Close() error {
	e.pipeline.Release()

	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing index store", "err", err)
		return err
	}
	return nil
}
