package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from content hashing so identical content maps to the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the identifier of a chunk from its document and position.
// The derivation is deterministic so re-ingesting identical content yields
// the same chunk IDs.
func ChunkID(documentID ID, sequenceIndex int) ID {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(documentID))
	binary.LittleEndian.PutUint64(buf[8:], uint64(sequenceIndex))
	h, _ := blake2b.New(8, nil)
	h.Write(buf[:])
	return ID(binary.LittleEndian.Uint64(h.Sum(nil)))
}

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus int

const (
	// StatusPending marks a document that has been accepted but not processed.
	StatusPending DocumentStatus = iota + 1
	// StatusProcessing marks a document currently being chunked and embedded.
	StatusProcessing
	// StatusCompleted marks a document whose chunks are fully indexed.
	StatusCompleted
	// StatusFailed marks a document whose processing failed.
	// A failed document stays failed until it is explicitly reprocessed.
	StatusFailed
)

// String returns the lowercase name of the status.
func (s DocumentStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// CanTransition reports whether a status change is allowed.
// Transitions move forward only; the completed and failed states can only be
// left through explicit reprocessing, which moves them back to processing.
func (s DocumentStatus) CanTransition(to DocumentStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return to == StatusProcessing
	default:
		return false
	}
}

// SearchMode selects which retrieval legs a search runs.
type SearchMode int

const (
	// ModeSemantic ranks by vector similarity only.
	ModeSemantic SearchMode = iota + 1
	// ModeKeyword ranks by lexical matching only.
	ModeKeyword
	// ModeHybrid fuses semantic and keyword ranking.
	ModeHybrid
)

// String returns the lowercase name of the mode.
func (m SearchMode) String() string {
	switch m {
	case ModeSemantic:
		return "semantic"
	case ModeKeyword:
		return "keyword"
	case ModeHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseSearchMode converts a mode name into a SearchMode.
func ParseSearchMode(name string) (SearchMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "semantic":
		return ModeSemantic, nil
	case "keyword":
		return ModeKeyword, nil
	case "hybrid":
		return ModeHybrid, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSearchMode, name)
	}
}

// IncludesSemantic reports whether the mode runs the semantic leg.
func (m SearchMode) IncludesSemantic() bool {
	return m == ModeSemantic || m == ModeHybrid
}

// IncludesKeyword reports whether the mode runs the keyword leg.
func (m SearchMode) IncludesKeyword() bool {
	return m == ModeKeyword || m == ModeHybrid
}

// Document is a unit of ingested text.
// The ID is derived from the normalized text, so re-ingesting identical
// content resolves to the same document. Only Status and ChunkCount change
// after creation.
type Document struct {
	Id         ID
	Text       string            // Normalized document text
	Format     string            // Source format tag, e.g. "markdown", "text"
	Metadata   map[string]string // Caller-supplied metadata (filename, source, ...)
	Status     DocumentStatus
	ChunkCount int
	CreatedAt  time.Time
}

// Chunk is an overlapping passage of a document, carrying everything the
// index needs: text, keywords, and a provider-tagged embedding vector.
type Chunk struct {
	Id            ID
	DocumentID    ID
	SequenceIndex int    // Zero-based position within the document
	Text          string
	Fingerprint   ID       // Hash of Text; embedding-cache key and dedup handle
	Vector        []float32
	Provider      string   // Which embedder produced Vector; vectors are only compared same-provider
	Keywords      []string
	OverlapPrefix int // Bytes at the start of Text shared with the previous chunk
	WordCount     int
	CharCount     int
	CreatedAt     time.Time
}

// CacheEntry is a memoized ranked result list for one query fingerprint.
// Eviction is driven by LastAccess, not CreatedAt.
type CacheEntry struct {
	Id          ID // Query fingerprint
	Query       string
	Mode        SearchMode
	Limit       int
	Results     []ScoredResult
	ResultCount int
	CreatedAt   time.Time
	LastAccess  time.Time
}

// ScoredResult is a ranked search hit. It carries its own display fields so
// cached and freshly computed results are interchangeable.
type ScoredResult struct {
	ChunkID         ID
	DocumentID      ID
	SequenceIndex   int
	SemanticScore   float64
	KeywordScore    float64
	FusedScore      float64
	MatchedKeywords []string
	Context         string // Short window of chunk text around the best match
}

// NearestChunk pairs a chunk with its cosine similarity to a query vector.
type NearestChunk struct {
	Chunk      *Chunk
	Similarity float64
}

// KeywordHit pairs a chunk with its keyword match score. Score counts the
// distinct query terms found in the chunk's keyword index.
type KeywordHit struct {
	Chunk        *Chunk
	Score        float64
	MatchedTerms []string
}

// Stats aggregates corpus counts.
type Stats struct {
	Documents    int
	Chunks       int
	CacheEntries int
}

// Checkpoint records how far a background processor has advanced, so an
// interrupted run resumes instead of starting over. Kind identifies the
// processor, LastID the last chunk it finished in storage order.
type Checkpoint struct {
	Kind      string
	LastID    ID
	Processed uint64
	UpdatedAt time.Time
}

// NormalizeQuery canonicalizes query text for fingerprinting: lowercased with
// runs of whitespace collapsed to single spaces.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// QueryFingerprint derives the cache key for a query. The fingerprint covers
// the normalized query text, the search mode, the result limit, and the
// fusion weights, so a configuration change never serves stale rankings.
func QueryFingerprint(query string, mode SearchMode, limit int, semanticWeight, keywordWeight float64) ID {
	material := fmt.Sprintf("%s|%d|%d|%.4f|%.4f", NormalizeQuery(query), mode, limit, semanticWeight, keywordWeight)
	return IDFromContent(material)
}
