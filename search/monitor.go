package search

import (
	"time"

	"github.com/poiesic/relevit/core"
)

// Monitor provides hooks to observe the search process.
// Implement this interface to track cache behavior, retrieval leg outcomes,
// and timing during search. The candidate and degradation hooks are called
// from concurrently running legs, so implementations must be safe for
// concurrent use.
type Monitor interface {
	Start(query string, mode core.SearchMode)
	CacheHit(fingerprint core.ID)
	CacheMiss(fingerprint core.ID)
	SemanticCandidates(count int)
	KeywordCandidates(count int)
	LegDegraded(leg string, err error)
	Finish(results []core.ScoredResult, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.SearchMode)             {}
func (n *noopMonitor) CacheHit(_ core.ID)                            {}
func (n *noopMonitor) CacheMiss(_ core.ID)                           {}
func (n *noopMonitor) SemanticCandidates(_ int)                      {}
func (n *noopMonitor) KeywordCandidates(_ int)                       {}
func (n *noopMonitor) LegDegraded(_ string, _ error)                 {}
func (n *noopMonitor) Finish(_ []core.ScoredResult, _ time.Duration) {}
