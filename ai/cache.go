package ai

import (
	"context"
	"fmt"
	"sync"
)

// CachingEmbedder wraps a batch embedder with an in-memory text→embedding
// cache. Re-embedding identical text is a map lookup, not a provider call.
// Fallback-sourced embeddings are never cached, so the primary tier gets a
// fresh chance the next time the same text appears.
type CachingEmbedder struct {
	inner BatchEmbedder

	mu      sync.RWMutex
	entries map[string]Embedding
}

var _ BatchEmbedder = (*CachingEmbedder)(nil)
var _ QueryEmbedder = (*CachingEmbedder)(nil)

// NewCachingEmbedder wraps inner with an embedding cache.
func NewCachingEmbedder(inner BatchEmbedder) (*CachingEmbedder, error) {
	if inner == nil {
		return nil, ErrInnerEmbedderRequired
	}
	return &CachingEmbedder{
		inner:   inner,
		entries: make(map[string]Embedding),
	}, nil
}

// EmbedBatch returns cached embeddings where available and asks the inner
// embedder only for the texts it has not seen, preserving input order.
// Provider errors pass through untouched; the cache never absorbs them.
func (c *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return []Embedding{}, nil
	}

	result := make([]Embedding, len(texts))
	var missingIdx []int

	c.mu.RLock()
	for i, text := range texts {
		if cached, ok := c.entries[text]; ok {
			result[i] = cached
		} else {
			missingIdx = append(missingIdx, i)
		}
	}
	c.mu.RUnlock()

	if len(missingIdx) == 0 {
		return result, nil
	}

	missingTexts := make([]string, len(missingIdx))
	for i, idx := range missingIdx {
		missingTexts[i] = texts[idx]
	}

	fresh, err := c.inner.EmbedBatch(ctx, missingTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missingTexts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrVectorCountMismatch, len(missingTexts), len(fresh))
	}

	c.mu.Lock()
	for i, idx := range missingIdx {
		result[idx] = fresh[i]
		if !fresh[i].Fallback {
			c.entries[missingTexts[i]] = fresh[i]
		}
	}
	c.mu.Unlock()

	return result, nil
}

// EmbedQuery embeds a single query text through the cache.
func (c *CachingEmbedder) EmbedQuery(ctx context.Context, query string) (Embedding, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{query})
	if err != nil {
		return Embedding{}, err
	}
	return embeddings[0], nil
}

// Len returns the number of cached embeddings.
func (c *CachingEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all cached embeddings.
func (c *CachingEmbedder) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Embedding)
}
