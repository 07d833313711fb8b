package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/relevit/ai"
	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/keywords"
	"github.com/poiesic/relevit/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSemanticWeight = 0.7
	defaultKeywordWeight  = 0.3
	defaultOverfetch      = 3
	defaultLegTimeout     = 30 * time.Second
	defaultMinRelevance   = 0.1
	defaultContextWindow  = 200

	// similarOverfetch is how many extra hits a similar-document lookup
	// requests before chunks of the source document are filtered out.
	similarOverfetch = 10

	// minSuggestPrefix is the shortest prefix that yields suggestions.
	minSuggestPrefix = 2
)

// Searcher provides hybrid semantic and keyword retrieval over the chunk
// index, with a persisted result cache and coalescing of concurrent
// identical queries.
type Searcher struct {
	chunks   storage.ChunkRepository
	cache    storage.CacheRepository
	embedder ai.QueryEmbedder

	semanticWeight float64
	keywordWeight  float64
	overfetch      int
	legTimeout     time.Duration
	minRelevance   float64
	contextWindow  int

	monitor Monitor
	logger  *slog.Logger
	flight  singleflight.Group
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithWeights sets the fusion weights of the semantic and keyword legs.
// The weights are normalized to sum to one, so fused scores stay comparable
// across configurations.
func WithWeights(semantic, keyword float64) Option {
	return func(s *Searcher) error {
		if semantic < 0 || keyword < 0 || semantic+keyword == 0 {
			return ErrInvalidWeights
		}
		total := semantic + keyword
		s.semanticWeight = semantic / total
		s.keywordWeight = keyword / total
		return nil
	}
}

// WithOverfetch sets the candidate over-fetch multiplier. Each leg requests
// multiplier*limit candidates so fusion has enough overlap to rank.
// Values below 1 are treated as 1.
func WithOverfetch(multiplier int) Option {
	return func(s *Searcher) error {
		if multiplier < 1 {
			multiplier = 1
		}
		s.overfetch = multiplier
		return nil
	}
}

// WithLegTimeout bounds how long a single retrieval leg may run. A leg that
// exceeds the timeout degrades instead of failing the search. Non-positive
// timeouts keep the default.
func WithLegTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		if timeout > 0 {
			s.legTimeout = timeout
		}
		return nil
	}
}

// WithMinRelevance sets the fused score below which results are dropped.
// Values below zero are treated as zero.
func WithMinRelevance(threshold float64) Option {
	return func(s *Searcher) error {
		if threshold < 0 {
			threshold = 0
		}
		s.minRelevance = threshold
		return nil
	}
}

// WithContextWindow sets the context preview length in bytes.
// Zero disables previews.
func WithContextWindow(window int) Option {
	return func(s *Searcher) error {
		if window < 0 {
			window = 0
		}
		s.contextWindow = window
		return nil
	}
}

// WithMonitor sets an observer for search stages.
// A nil monitor falls back to the no-op monitor.
func WithMonitor(monitor Monitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	chunks storage.ChunkRepository,
	cache storage.CacheRepository,
	embedder ai.QueryEmbedder,
	opts ...Option,
) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if cache == nil {
		return nil, ErrCacheRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunks:         chunks,
		cache:          cache,
		embedder:       embedder,
		semanticWeight: defaultSemanticWeight,
		keywordWeight:  defaultKeywordWeight,
		overfetch:      defaultOverfetch,
		legTimeout:     defaultLegTimeout,
		minRelevance:   defaultMinRelevance,
		contextWindow:  defaultContextWindow,
		monitor:        &noopMonitor{},
		logger:         slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search runs a query in the given mode and returns up to limit ranked
// results. Concurrent identical queries share one computation, and results
// of healthy computations are served from the cache on repeat.
func (s *Searcher) Search(ctx context.Context, query string, mode core.SearchMode, limit int) ([]core.ScoredResult, error) {
	if err := core.ValidateQuery(query, mode, limit); err != nil {
		return nil, err
	}

	normalized := core.NormalizeQuery(query)
	fingerprint := core.QueryFingerprint(normalized, mode, limit, s.semanticWeight, s.keywordWeight)

	s.monitor.Start(normalized, mode)
	started := time.Now()

	v, err, _ := s.flight.Do(strconv.FormatUint(uint64(fingerprint), 16), func() (any, error) {
		return s.searchOnce(ctx, normalized, mode, limit, fingerprint)
	})
	if err != nil {
		return nil, err
	}

	results := v.([]core.ScoredResult)
	s.monitor.Finish(results, time.Since(started))
	return results, nil
}

// searchOnce is the body of one coalesced computation: cache lookup, leg
// fan-out, fusion, and the cache write-back.
func (s *Searcher) searchOnce(ctx context.Context, query string, mode core.SearchMode, limit int, fingerprint core.ID) ([]core.ScoredResult, error) {
	entry, err := s.cache.GetEntry(ctx, fingerprint)
	if err == nil {
		s.monitor.CacheHit(fingerprint)
		s.logger.Debug("query served from cache", "fingerprint", fingerprint, "results", entry.ResultCount)
		return entry.Results, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("cache lookup failed, treating as miss", "fingerprint", fingerprint, "err", err)
	}
	s.monitor.CacheMiss(fingerprint)

	legs, err := s.retrieve(ctx, query, mode, s.overfetch*limit)
	if err != nil {
		return nil, err
	}

	requested, degraded := 0, 0
	if mode.IncludesSemantic() {
		requested++
		if legs.semanticDegraded {
			degraded++
		}
	}
	if mode.IncludesKeyword() {
		requested++
		if legs.keywordDegraded {
			degraded++
		}
	}
	if degraded == requested {
		return nil, ErrAllLegsDegraded
	}

	results := s.fuse(query, mode, legs.nearest, legs.hits, limit)

	if degraded > 0 {
		// A degraded computation would pin partial rankings until eviction.
		s.logger.Info("degraded search result not cached", "fingerprint", fingerprint)
		return results, nil
	}

	cached := &core.CacheEntry{
		Id:          fingerprint,
		Query:       query,
		Mode:        mode,
		Limit:       limit,
		Results:     results,
		ResultCount: len(results),
	}
	if _, err := s.cache.PutEntry(ctx, cached); err != nil {
		s.logger.Warn("cache write failed", "fingerprint", fingerprint, "err", err)
	}

	return results, nil
}

// legResults carries what the retrieval fan-out produced. A degraded leg
// contributed nothing, and the distinction matters afterwards: degraded
// computations are never cached.
type legResults struct {
	nearest []*core.NearestChunk
	hits    []*core.KeywordHit

	semanticDegraded bool
	keywordDegraded  bool
}

// retrieve fans the requested legs out concurrently, each under its own
// timeout. Provider failures and leg timeouts degrade the leg; store
// failures and caller cancellation fail the whole retrieval.
func (s *Searcher) retrieve(ctx context.Context, query string, mode core.SearchMode, k int) (*legResults, error) {
	legs := &legResults{}
	g, gctx := errgroup.WithContext(ctx)

	if mode.IncludesSemantic() {
		g.Go(func() error {
			legCtx, cancel := context.WithTimeout(gctx, s.legTimeout)
			defer cancel()

			embedding, err := s.embedder.EmbedQuery(legCtx, query)
			if err != nil {
				return s.degrade(gctx, "semantic", &legs.semanticDegraded, err)
			}

			nearest, err := s.chunks.FindNearest(legCtx, embedding.Vector, embedding.Provider, k)
			if err != nil {
				if legCtx.Err() != nil {
					return s.degrade(gctx, "semantic", &legs.semanticDegraded, err)
				}
				return fmt.Errorf("semantic retrieval: %w", err)
			}

			legs.nearest = nearest
			s.monitor.SemanticCandidates(len(nearest))
			return nil
		})
	}

	if mode.IncludesKeyword() {
		g.Go(func() error {
			legCtx, cancel := context.WithTimeout(gctx, s.legTimeout)
			defer cancel()

			terms := keywords.QueryTerms(query)
			if len(terms) == 0 {
				s.monitor.KeywordCandidates(0)
				return nil
			}

			hits, err := s.chunks.SearchKeywords(legCtx, terms, k)
			if err != nil {
				if legCtx.Err() != nil {
					return s.degrade(gctx, "keyword", &legs.keywordDegraded, err)
				}
				return fmt.Errorf("keyword retrieval: %w", err)
			}

			legs.hits = hits
			s.monitor.KeywordCandidates(len(hits))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return legs, nil
}

// degrade marks a leg degraded unless the whole retrieval is already being
// torn down, in which case the teardown error wins.
func (s *Searcher) degrade(gctx context.Context, leg string, flag *bool, cause error) error {
	if err := gctx.Err(); err != nil {
		return err
	}
	s.logger.Warn("retrieval leg degraded", "leg", leg, "err", cause)
	s.monitor.LegDegraded(leg, cause)
	*flag = true
	return nil
}

// SimilarDocuments finds chunks similar to a stored document, using the
// document's first chunk as representative text. Chunks of the source
// document itself are filtered out of the answer.
func (s *Searcher) SimilarDocuments(ctx context.Context, documentID core.ID, limit int) ([]core.ScoredResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", core.ErrValidation, core.ErrInvalidLimit, limit)
	}

	chunks, err := s.chunks.GetChunksByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []core.ScoredResult{}, nil
	}

	representative := chunks[0].Text
	if len(representative) > core.MaxQueryLength {
		representative = representative[:core.MaxQueryLength]
	}

	results, err := s.Search(ctx, representative, core.ModeSemantic, limit+similarOverfetch)
	if err != nil {
		return nil, err
	}

	similar := make([]core.ScoredResult, 0, limit)
	for _, result := range results {
		if result.DocumentID == documentID {
			continue
		}
		similar = append(similar, result)
		if len(similar) == limit {
			break
		}
	}
	return similar, nil
}

// Suggest returns indexed keywords continuing the given prefix, in
// lexicographic order. Prefixes shorter than two characters yield no
// suggestions.
func (s *Searcher) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", core.ErrValidation, core.ErrInvalidLimit, limit)
	}

	normalized := strings.ToLower(strings.TrimSpace(prefix))
	if len(normalized) < minSuggestPrefix {
		return []string{}, nil
	}

	return s.chunks.SuggestKeywords(ctx, normalized, limit)
}
