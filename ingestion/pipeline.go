package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/relevit/ai"
	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/keywords"
	"github.com/poiesic/relevit/storage"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultBatchSize    = 10
	defaultMaxKeywords  = 20
)

// Pipeline turns raw document text into stored, indexed chunks.
// Chunk batches are embedded concurrently across a bounded worker pool, but
// Ingest itself is synchronous: it returns once every chunk is stored and
// the document has reached a terminal status.
type Pipeline struct {
	documents   storage.DocumentRepository
	chunks      storage.ChunkRepository
	embedder    ai.BatchEmbedder
	extractor   *keywords.Extractor
	chunker     *Chunker
	pool        *ants.Pool
	batchSize   int
	maxKeywords int
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent batch embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		p.pool = pool
		return nil
	}
}

// WithChunking sets the chunk size and overlap, in bytes.
// Defaults are 1000 and 200.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		chunker, err := NewChunker(size, overlap)
		if err != nil {
			return err
		}
		p.chunker = chunker
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per provider call.
// Default is 10, with a minimum of 1.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithMaxKeywords caps the number of keywords extracted per chunk.
// Default is 20, with a minimum of 1.
func WithMaxKeywords(max int) Option {
	return func(p *Pipeline) error {
		if max < 1 {
			max = 1
		}
		p.maxKeywords = max
		return nil
	}
}

// WithExtractor sets a custom keyword extractor, e.g. one configured with
// domain terms. A nil extractor keeps the default.
func WithExtractor(extractor *keywords.Extractor) Option {
	return func(p *Pipeline) error {
		if extractor != nil {
			p.extractor = extractor
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	embedder ai.BatchEmbedder,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		documents:   documents,
		chunks:      chunks,
		embedder:    embedder,
		extractor:   keywords.NewExtractor(),
		pool:        pool,
		batchSize:   defaultBatchSize,
		maxKeywords: defaultMaxKeywords,
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.chunker == nil {
		chunker, err := NewChunker(defaultChunkSize, defaultChunkOverlap)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.chunker = chunker
	}

	return p, nil
}

// IngestOptions holds optional document attributes for ingestion.
type IngestOptions struct {
	Format   string            // Source format tag, e.g. "markdown" or "text"
	Metadata map[string]string // Optional metadata to attach to the document
}

// Ingest normalizes, chunks, embeds, and indexes one document. The document
// ID is derived from the normalized text, so ingesting identical content a
// second time returns the already stored document without reprocessing; a
// previously failed document is likewise returned unchanged and only
// Reprocess retries it.
func (p *Pipeline) Ingest(ctx context.Context, text string, opts *IngestOptions) (*core.Document, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}

	normalized := Normalize(text)
	if err := core.ValidateDocumentText(normalized); err != nil {
		return nil, err
	}

	doc := &core.Document{
		Text:     normalized,
		Format:   opts.Format,
		Metadata: opts.Metadata,
	}

	added, err := p.documents.AddDocument(ctx, doc)
	if errors.Is(err, storage.ErrDuplicateKey) {
		existing, getErr := p.documents.GetDocument(ctx, core.IDFromContent(normalized))
		if getErr != nil {
			return nil, getErr
		}
		p.logger.Debug("document already ingested", "document", existing.Id, "status", existing.Status)
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := p.documents.UpdateDocumentStatus(ctx, added.Id, core.StatusProcessing); err != nil {
		return nil, err
	}

	return p.process(ctx, added)
}

// Reprocess re-chunks and re-embeds a stored document with the pipeline's
// current settings. Existing chunks are deleted first. This is the only path
// that moves a failed document forward again.
func (p *Pipeline) Reprocess(ctx context.Context, id core.ID) (*core.Document, error) {
	doc, err := p.documents.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := p.documents.UpdateDocumentStatus(ctx, id, core.StatusProcessing); err != nil {
		return nil, err
	}

	removed, err := p.chunks.DeleteChunksByDocument(ctx, id)
	if err != nil {
		p.fail(ctx, id)
		return nil, err
	}
	p.logger.Info("reprocessing document", "document", id, "removed", removed)

	return p.process(ctx, doc)
}

// process runs the chunk, extract, embed, and store stages for a document
// already marked processing, then moves it to a terminal status.
func (p *Pipeline) process(ctx context.Context, doc *core.Document) (*core.Document, error) {
	pieces := p.chunker.Split(doc.Text)
	p.logger.Info("processing document", "document", doc.Id, "chunks", len(pieces))

	chunks := make([]*core.Chunk, len(pieces))
	for i, piece := range pieces {
		body := piece.Text[piece.Overlap:]
		chunks[i] = &core.Chunk{
			DocumentID:    doc.Id,
			SequenceIndex: i,
			Text:          piece.Text,
			Fingerprint:   core.IDFromContent(piece.Text),
			Keywords:      p.extractor.Extract(body, p.maxKeywords),
			OverlapPrefix: piece.Overlap,
			WordCount:     len(strings.Fields(piece.Text)),
			CharCount:     len(piece.Text),
		}
	}

	if err := p.embedAndStore(ctx, chunks); err != nil {
		p.fail(ctx, doc.Id)
		return nil, err
	}

	if err := p.documents.SetChunkCount(ctx, doc.Id, len(chunks)); err != nil {
		p.fail(ctx, doc.Id)
		return nil, err
	}

	completed, err := p.documents.UpdateDocumentStatus(ctx, doc.Id, core.StatusCompleted)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("document completed", "document", completed.Id, "chunks", completed.ChunkCount)
	return completed, nil
}

// embedAndStore embeds chunk batches across the worker pool and stores each
// batch as it finishes. It waits for every batch and joins their errors.
func (p *Pipeline) embedAndStore(ctx context.Context, chunks []*core.Chunk) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for start := 0; start < len(chunks); start += p.batchSize {
		batch := chunks[start:min(start+p.batchSize, len(chunks))]

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.processBatch(ctx, batch); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			errs = append(errs, fmt.Errorf("submitting chunk batch: %w", err))
			break
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

// processBatch embeds one batch of chunks and stores them.
func (p *Pipeline) processBatch(ctx context.Context, batch []*core.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunk batch: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(embeddings))
	}

	fallbacks := 0
	for i, embedding := range embeddings {
		batch[i].Vector = embedding.Vector
		batch[i].Provider = embedding.Provider
		if embedding.Fallback {
			fallbacks++
		}
	}
	if fallbacks > 0 {
		p.logger.Warn("chunks embedded by fallback provider", "chunks", fallbacks)
	}

	if _, err := p.chunks.AddChunks(ctx, batch...); err != nil {
		return fmt.Errorf("storing chunk batch: %w", err)
	}

	return nil
}

// fail marks a document failed, logging rather than returning the error so
// the original failure stays the one reported.
func (p *Pipeline) fail(ctx context.Context, id core.ID) {
	if _, err := p.documents.UpdateDocumentStatus(ctx, id, core.StatusFailed); err != nil {
		p.logger.Error("error marking document failed", "document", id, "err", err)
	}
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
