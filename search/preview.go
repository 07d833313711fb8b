package search

import (
	"strings"
	"unicode/utf8"
)

// previewStride is the step between candidate window positions when scanning
// for the best context preview.
const previewStride = 50

const previewBoundary = " \t\n\r"

// contextPreview returns the window of text with the most query-term hits.
// Windows are scanned at a fixed stride, the winner's edges are aligned to
// word boundaries, and ellipses mark truncation on either side.
func contextPreview(text string, queryWords []string, window int) string {
	if window <= 0 {
		return ""
	}
	if len(text) <= window {
		return strings.TrimSpace(text)
	}

	lower := strings.ToLower(text)
	best := 0
	bestHits := -1
	for pos := 0; pos+window <= len(text); pos += previewStride {
		segment := lower[pos : pos+window]
		hits := 0
		for _, word := range queryWords {
			if strings.Contains(segment, word) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = pos, hits
		}
	}

	start, end := wordAlign(text, best, best+window)

	preview := strings.TrimSpace(text[start:end])
	if start > 0 {
		preview = "..." + preview
	}
	if end < len(text) {
		preview += "..."
	}
	return preview
}

// wordAlign nudges a byte range so it does not start or end inside a word.
// When the window holds no boundary at all it falls back to rune alignment.
func wordAlign(text string, start, end int) (int, int) {
	if start > 0 && !betweenWords(text, start) {
		if next := strings.IndexAny(text[start:end], previewBoundary); next >= 0 {
			start += next + 1
		} else {
			for start < len(text) && !utf8.RuneStart(text[start]) {
				start++
			}
		}
	}

	if end < len(text) && !betweenWords(text, end) {
		if prev := strings.LastIndexAny(text[start:end], previewBoundary); prev >= 0 {
			end = start + prev
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
		}
	}

	return start, end
}

// betweenWords reports whether byte position i sits on a word boundary.
func betweenWords(text string, i int) bool {
	if i <= 0 || i >= len(text) {
		return true
	}
	return isBoundary(text[i]) || isBoundary(text[i-1])
}

func isBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
