package search

import (
	"math"
	"sort"
	"strings"

	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/keywords"
)

const (
	// phraseBoost rewards chunks containing the query as an exact phrase.
	phraseBoost = 1.2

	// keywordBoostStep grows the boost for every matched keyword once a
	// chunk has matched more than one.
	keywordBoostStep = 0.1

	// headBoost rewards chunks that carry a query term within headWindow
	// bytes of their start, where titles and topic sentences live.
	headBoost  = 1.1
	headWindow = 100
)

// candidate accumulates one chunk's evidence from both retrieval legs.
type candidate struct {
	chunk      *core.Chunk
	semantic   float64
	keyword    float64
	fused      float64
	inSemantic bool
	inKeyword  bool
	matched    map[string]bool
}

// fuse unions leg candidates by chunk ID, min-max normalizes each leg's
// scores, combines them under the mode's weights, applies ranking boosts and
// the relevance threshold, and returns the top results with context previews
// attached. The query must already be normalized.
func (s *Searcher) fuse(query string, mode core.SearchMode, nearest []*core.NearestChunk, hits []*core.KeywordHit, limit int) []core.ScoredResult {
	queryTerms := keywords.QueryTerms(query)

	byID := make(map[core.ID]*candidate, len(nearest)+len(hits))
	for _, match := range nearest {
		byID[match.Chunk.Id] = &candidate{
			chunk:      match.Chunk,
			semantic:   match.Similarity,
			inSemantic: true,
			matched:    matchedTerms(match.Chunk.Keywords, queryTerms),
		}
	}
	for _, hit := range hits {
		cand, ok := byID[hit.Chunk.Id]
		if !ok {
			cand = &candidate{
				chunk:   hit.Chunk,
				matched: make(map[string]bool, len(hit.MatchedTerms)),
			}
			byID[hit.Chunk.Id] = cand
		}
		cand.keyword = hit.Score
		cand.inKeyword = true
		for _, term := range hit.MatchedTerms {
			cand.matched[term] = true
		}
	}

	if len(byID) == 0 {
		return []core.ScoredResult{}
	}

	cands := make([]*candidate, 0, len(byID))
	for _, cand := range byID {
		cands = append(cands, cand)
	}

	minMaxNormalize(cands,
		func(c *candidate) bool { return c.inSemantic },
		func(c *candidate) *float64 { return &c.semantic })
	minMaxNormalize(cands,
		func(c *candidate) bool { return c.inKeyword },
		func(c *candidate) *float64 { return &c.keyword })

	semWeight, kwWeight := s.semanticWeight, s.keywordWeight
	switch mode {
	case core.ModeSemantic:
		semWeight, kwWeight = 1, 0
	case core.ModeKeyword:
		semWeight, kwWeight = 0, 1
	}

	queryWords := strings.Fields(query)
	kept := make([]*candidate, 0, len(cands))
	for _, cand := range cands {
		fused := 0.0
		if cand.inSemantic {
			fused += semWeight * cand.semantic
		}
		if cand.inKeyword {
			fused += kwWeight * cand.keyword
		}
		fused *= boostFactor(query, queryWords, cand)
		if fused > 1 {
			fused = 1
		}
		cand.fused = fused

		if fused < s.minRelevance {
			continue
		}
		kept = append(kept, cand)
	}

	// Descending by fused score; ties resolve by chunk position and then ID
	// so the ordering is byte-identical across runs.
	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.fused != b.fused {
			return a.fused > b.fused
		}
		if a.chunk.SequenceIndex != b.chunk.SequenceIndex {
			return a.chunk.SequenceIndex < b.chunk.SequenceIndex
		}
		return a.chunk.Id < b.chunk.Id
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}

	results := make([]core.ScoredResult, len(kept))
	for i, cand := range kept {
		var matched []string
		if len(cand.matched) > 0 {
			matched = make([]string, 0, len(cand.matched))
			for term := range cand.matched {
				matched = append(matched, term)
			}
			sort.Strings(matched)
		}

		results[i] = core.ScoredResult{
			ChunkID:         cand.chunk.Id,
			DocumentID:      cand.chunk.DocumentID,
			SequenceIndex:   cand.chunk.SequenceIndex,
			SemanticScore:   cand.semantic,
			KeywordScore:    cand.keyword,
			FusedScore:      cand.fused,
			MatchedKeywords: matched,
			Context:         contextPreview(cand.chunk.Text, queryWords, s.contextWindow),
		}
	}
	return results
}

// minMaxNormalize rescales one leg's scores to [0, 1] over the candidates
// that leg actually returned. A zero spread normalizes to 1: with no
// variation, every member is that leg's best.
func minMaxNormalize(cands []*candidate, member func(*candidate) bool, score func(*candidate) *float64) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	found := false
	for _, cand := range cands {
		if !member(cand) {
			continue
		}
		found = true
		v := *score(cand)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !found {
		return
	}

	for _, cand := range cands {
		if !member(cand) {
			continue
		}
		v := score(cand)
		if hi > lo {
			*v = (*v - lo) / (hi - lo)
		} else {
			*v = 1
		}
	}
}

// boostFactor compounds the post-fusion ranking boosts for one candidate.
func boostFactor(query string, queryWords []string, cand *candidate) float64 {
	boost := 1.0
	text := strings.ToLower(cand.chunk.Text)

	if strings.Contains(text, query) {
		boost *= phraseBoost
	}

	if n := len(cand.matched); n > 1 {
		boost *= 1 + keywordBoostStep*float64(n)
	}

	head := text
	if len(head) > headWindow {
		head = head[:headWindow]
	}
	for _, word := range queryWords {
		if strings.Contains(head, word) {
			boost *= headBoost
			break
		}
	}

	return boost
}

// matchedTerms intersects a chunk's indexed keywords with the query terms.
func matchedTerms(chunkKeywords, queryTerms []string) map[string]bool {
	matched := make(map[string]bool)
	if len(chunkKeywords) == 0 || len(queryTerms) == 0 {
		return matched
	}

	indexed := make(map[string]bool, len(chunkKeywords))
	for _, keyword := range chunkKeywords {
		indexed[keyword] = true
	}
	for _, term := range queryTerms {
		if indexed[term] {
			matched[term] = true
		}
	}
	return matched
}
