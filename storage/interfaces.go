package storage

import (
	"context"
	"time"

	"github.com/poiesic/relevit/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository
	// AddDocument adds a document to storage.
	// For documents with ID=0, derives the ID from the document text.
	// Sets CreatedAt if not already set and defaults Status to pending.
	// Returns ErrDuplicateKey if a document with the same ID already exists.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments retrieves all documents. Order is not specified.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// UpdateDocumentStatus moves a document through its processing lifecycle.
	// Rejects transitions core.DocumentStatus.CanTransition disallows.
	// Returns the updated document, or ErrNotFound if it doesn't exist.
	UpdateDocumentStatus(ctx context.Context, id core.ID, status core.DocumentStatus) (*core.Document, error)

	// SetChunkCount records how many chunks a document was split into.
	// Returns ErrNotFound if the document doesn't exist.
	SetChunkCount(ctx context.Context, id core.ID, count int) error

	// DeleteDocument removes a document record. It does not touch the
	// document's chunks; callers delete those first via ChunkRepository.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// ChunkRepository provides operations for managing chunks and the
// keyword and vector access paths over them.
type ChunkRepository interface {
	Repository
	// AddChunks adds one or more chunks to storage and maintains the
	// document and keyword indices.
	// For chunks with ID=0, derives the ID from document ID and sequence.
	// Sets CreatedAt if not already set.
	// Returns the chunks with IDs and timestamps populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// UpdateChunks replaces existing chunk records, adjusting the keyword
	// index when a chunk's keywords changed.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunksByDocument retrieves all chunks of a document, ordered by
	// sequence index ascending. Returns an empty slice for an unknown
	// document.
	GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// ListChunks pages through all stored chunks in a stable order. It
	// returns up to limit chunks positioned strictly after the chunk with
	// the given ID; a zero ID starts from the beginning. An empty result
	// means iteration is complete. The order is consistent across calls
	// against an unchanged store, so the last returned ID is a resumable
	// cursor.
	ListChunks(ctx context.Context, after core.ID, limit int) ([]*core.Chunk, error)

	// DeleteChunksByDocument removes all chunks of a document together
	// with their index entries. Returns the number of chunks removed.
	DeleteChunksByDocument(ctx context.Context, documentID core.ID) (int, error)

	// FindNearest finds the chunks whose vectors are most similar to the
	// given vector, up to limit results, ordered by similarity descending.
	// Only chunks embedded by the named provider are compared; chunks
	// without a vector or with a different dimension are skipped.
	FindNearest(ctx context.Context, vector []float32, provider string, limit int) ([]*core.NearestChunk, error)

	// SearchKeywords finds chunks whose keyword index matches any of the
	// given terms, up to limit results. Score counts distinct matched
	// terms; results are ordered by score descending.
	SearchKeywords(ctx context.Context, terms []string, limit int) ([]*core.KeywordHit, error)

	// SuggestKeywords returns up to limit distinct indexed keywords
	// starting with the given prefix, in lexicographic order.
	SuggestKeywords(ctx context.Context, prefix string, limit int) ([]string, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}

// CacheRepository provides operations for the persisted query result cache.
type CacheRepository interface {
	Repository
	// GetEntry retrieves a cache entry by its fingerprint ID and refreshes
	// its last access time.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, id core.ID) (*core.CacheEntry, error)

	// PutEntry stores a cache entry, replacing any existing entry with the
	// same ID. Sets CreatedAt and LastAccess if not already set.
	// Returns ErrInvalidQuery if the entry has no ID.
	PutEntry(ctx context.Context, entry *core.CacheEntry) (*core.CacheEntry, error)

	// EvictExpired removes entries whose last access is older than the
	// retention window. A non-positive retention evicts everything.
	// Returns the number of entries removed.
	EvictExpired(ctx context.Context, retention time.Duration) (int, error)

	// CountEntries returns the number of cached queries.
	CountEntries(ctx context.Context) (int, error)
}

// CheckpointRepository persists progress markers for background processors.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint for a processor kind.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a processor kind.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, kind string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for a processor kind, so the
	// next run starts from the beginning. Deleting a missing checkpoint is
	// not an error.
	DeleteCheckpoint(ctx context.Context, kind string) error
}
