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


package ingestion

import (
	"strings"
	"unicode/utf8"
)

// Piece is one chunk of a split document. Text includes the overlap carried
// over from the previous piece; Overlap is the byte length of that carried
// prefix. Slicing the prefix off every piece and concatenating the
// remainders reproduces the input exactly.
type Piece struct {
	Text    string
	Overlap int
}

// Chunker splits document text into overlapping pieces.
//
// Cut points prefer paragraph breaks, then sentence breaks, inside the size
// budget. A single sentence longer than the budget is kept intact rather
// than cut mid-sentence; only text with no boundaries at all is cut at the
// size limit.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given target piece size and overlap,
// both in bytes. The overlap must be smaller than the size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= size {
		return nil, ErrInvalidChunkOverlap
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks text into pieces. Empty or whitespace-only input yields no
// pieces. Every piece after the first starts with an exact suffix of its
// predecessor, aligned to a sentence start inside the overlap budget when
// the window contains one, else to a word start.
func (c *Chunker) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []Piece
	start := 0
	for start < len(text) {
		cut := c.nextCut(text, start)
		base := text[start:cut]
		if len(pieces) == 0 {
			pieces = append(pieces, Piece{Text: base})
		} else {
			prefix := overlapSuffix(pieces[len(pieces)-1].Text, c.overlap)
			pieces = append(pieces, Piece{Text: prefix + base, Overlap: len(prefix)})
		}
		start = cut
	}
	return pieces
}

// nextCut picks the end of the piece starting at start.
func (c *Chunker) nextCut(text string, start int) int {
	if len(text)-start <= c.size {
		return len(text)
	}
	limit := start + c.size

	if cut := lastParagraphCut(text, start, limit); cut > start {
		return cut
	}
	if cut := lastSentenceCut(text, start, limit); cut > start {
		return cut
	}

	// A single sentence spans the whole budget. Keep it intact by cutting
	// at the first boundary past the limit.
	sentence := nextSentenceCut(text, start)
	paragraph := nextParagraphCut(text, start)
	switch {
	case sentence > start && paragraph > start:
		return min(sentence, paragraph)
	case sentence > start:
		return sentence
	case paragraph > start:
		return paragraph
	}

	return hardCut(text, start, limit)
}

// lastParagraphCut returns the cut after the last paragraph break ending at
// or before limit, or -1. The newline run stays with the preceding piece.
func lastParagraphCut(text string, start, limit int) int {
	idx := strings.LastIndex(text[start:limit], "\n\n")
	if idx < 0 {
		return -1
	}
	cut := start + idx + 2
	for cut < len(text) && text[cut] == '\n' {
		cut++
	}
	return cut
}

// lastSentenceCut returns the cut after the last sentence break whose
// trailing whitespace fits inside the limit, or -1. A break is a terminator
// followed by whitespace; the whitespace run stays with the preceding piece.
func lastSentenceCut(text string, start, limit int) int {
	best := -1
	for i := start; i < limit-1; i++ {
		if !isSentenceEnd(text[i]) || !isSpace(text[i+1]) {
			continue
		}
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j <= limit {
			best = j
		}
	}
	return best
}

// nextSentenceCut returns the cut after the first sentence break at or after
// start, or -1.
func nextSentenceCut(text string, start int) int {
	for i := start; i+1 < len(text); i++ {
		if !isSentenceEnd(text[i]) || !isSpace(text[i+1]) {
			continue
		}
		j := i + 1
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		return j
	}
	return -1
}

// nextParagraphCut returns the cut after the first paragraph break at or
// after start, or -1.
func nextParagraphCut(text string, start int) int {
	idx := strings.Index(text[start:], "\n\n")
	if idx < 0 {
		return -1
	}
	cut := start + idx + 2
	for cut < len(text) && text[cut] == '\n' {
		cut++
	}
	return cut
}

// hardCut cuts at the size limit, backed up to a rune boundary.
func hardCut(text string, start, limit int) int {
	cut := limit
	for cut > start+1 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}

// overlapSuffix selects the overlap to carry into the next piece: a suffix
// of prev no longer than budget, starting at a sentence start when the
// window contains one, else at a word start, else the raw window.
func overlapSuffix(prev string, budget int) string {
	if budget <= 0 || prev == "" {
		return ""
	}
	window := prev
	if len(window) > budget {
		window = window[len(window)-budget:]
		for window != "" && !utf8.RuneStart(window[0]) {
			window = window[1:]
		}
	}

	if at := sentenceStartIn(window); at > 0 {
		return window[at:]
	}
	if at := wordStartIn(window); at > 0 {
		return window[at:]
	}
	return window
}

// sentenceStartIn returns the offset of the first character beginning a new
// sentence inside s, or -1.
func sentenceStartIn(s string) int {
	for i := 0; i+1 < len(s); i++ {
		if !isSentenceEnd(s[i]) || !isSpace(s[i+1]) {
			continue
		}
		j := i + 1
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) {
			return j
		}
		return -1
	}
	return -1
}

// wordStartIn returns the offset just past the first whitespace run in s,
// or -1.
func wordStartIn(s string) int {
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			continue
		}
		j := i
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) {
			return j
		}
		return -1
	}
	return -1
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
