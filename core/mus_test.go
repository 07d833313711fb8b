package core

import (
	"testing"
	"time"
)

func testTime() time.Time {
	return time.Date(2025, 6, 14, 9, 30, 0, 123456000, time.UTC)
}

func TestDocumentMUS_Roundtrip(t *testing.T) {
	doc := Document{
		Id:     IDFromContent("roundtrip document"),
		Text:   "Machine learning is a subset of artificial intelligence.",
		Format: "markdown",
		Metadata: map[string]string{
			"filename": "ml.md",
			"source":   "unit-test",
		},
		Status:     StatusCompleted,
		ChunkCount: 3,
		CreatedAt:  testTime(),
	}

	buf := make([]byte, DocumentMUS.Size(doc))
	n := DocumentMUS.Marshal(doc, buf)
	if n != len(buf) {
		t.Fatalf("Marshal() wrote %d bytes, Size() said %d", n, len(buf))
	}

	got, n, err := DocumentMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("Unmarshal() consumed %d bytes, want %d", n, len(buf))
	}

	if got.Id != doc.Id {
		t.Errorf("Id = %d, want %d", got.Id, doc.Id)
	}
	if got.Text != doc.Text {
		t.Errorf("Text = %q, want %q", got.Text, doc.Text)
	}
	if got.Format != doc.Format {
		t.Errorf("Format = %q, want %q", got.Format, doc.Format)
	}
	if len(got.Metadata) != len(doc.Metadata) {
		t.Errorf("Metadata has %d entries, want %d", len(got.Metadata), len(doc.Metadata))
	}
	for k, v := range doc.Metadata {
		if got.Metadata[k] != v {
			t.Errorf("Metadata[%q] = %q, want %q", k, got.Metadata[k], v)
		}
	}
	if got.Status != doc.Status {
		t.Errorf("Status = %v, want %v", got.Status, doc.Status)
	}
	if got.ChunkCount != doc.ChunkCount {
		t.Errorf("ChunkCount = %d, want %d", got.ChunkCount, doc.ChunkCount)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, doc.CreatedAt)
	}
}

func TestChunkMUS_Roundtrip(t *testing.T) {
	docID := IDFromContent("chunk parent")
	chunk := Chunk{
		Id:            ChunkID(docID, 2),
		DocumentID:    docID,
		SequenceIndex: 2,
		Text:          "Neural networks learn hierarchical representations.",
		Fingerprint:   IDFromContent("Neural networks learn hierarchical representations."),
		Vector:        []float32{0.25, -0.5, 0.125, 1.0},
		Provider:      "openai",
		Keywords:      []string{"neural", "networks", "representations"},
		OverlapPrefix: 17,
		WordCount:     6,
		CharCount:     51,
		CreatedAt:     testTime(),
	}

	buf := make([]byte, ChunkMUS.Size(chunk))
	n := ChunkMUS.Marshal(chunk, buf)
	if n != len(buf) {
		t.Fatalf("Marshal() wrote %d bytes, Size() said %d", n, len(buf))
	}

	got, _, err := ChunkMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Id != chunk.Id || got.DocumentID != chunk.DocumentID {
		t.Errorf("IDs = (%d, %d), want (%d, %d)", got.Id, got.DocumentID, chunk.Id, chunk.DocumentID)
	}
	if got.SequenceIndex != chunk.SequenceIndex {
		t.Errorf("SequenceIndex = %d, want %d", got.SequenceIndex, chunk.SequenceIndex)
	}
	if got.Text != chunk.Text {
		t.Errorf("Text = %q, want %q", got.Text, chunk.Text)
	}
	if got.Fingerprint != chunk.Fingerprint {
		t.Errorf("Fingerprint = %d, want %d", got.Fingerprint, chunk.Fingerprint)
	}
	if len(got.Vector) != len(chunk.Vector) {
		t.Fatalf("Vector has %d elements, want %d", len(got.Vector), len(chunk.Vector))
	}
	for i, v := range chunk.Vector {
		if got.Vector[i] != v {
			t.Errorf("Vector[%d] = %v, want %v", i, got.Vector[i], v)
		}
	}
	if got.Provider != chunk.Provider {
		t.Errorf("Provider = %q, want %q", got.Provider, chunk.Provider)
	}
	if len(got.Keywords) != len(chunk.Keywords) {
		t.Fatalf("Keywords has %d elements, want %d", len(got.Keywords), len(chunk.Keywords))
	}
	for i, kw := range chunk.Keywords {
		if got.Keywords[i] != kw {
			t.Errorf("Keywords[%d] = %q, want %q", i, got.Keywords[i], kw)
		}
	}
	if got.OverlapPrefix != chunk.OverlapPrefix {
		t.Errorf("OverlapPrefix = %d, want %d", got.OverlapPrefix, chunk.OverlapPrefix)
	}
	if got.WordCount != chunk.WordCount || got.CharCount != chunk.CharCount {
		t.Errorf("counts = (%d, %d), want (%d, %d)", got.WordCount, got.CharCount, chunk.WordCount, chunk.CharCount)
	}
	if !got.CreatedAt.Equal(chunk.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, chunk.CreatedAt)
	}
}

func TestCacheEntryMUS_Roundtrip(t *testing.T) {
	entry := CacheEntry{
		Id:    QueryFingerprint("neural networks", ModeHybrid, 5, 0.7, 0.3),
		Query: "neural networks",
		Mode:  ModeHybrid,
		Limit: 5,
		Results: []ScoredResult{
			{
				ChunkID:         1001,
				DocumentID:      42,
				SequenceIndex:   0,
				SemanticScore:   0.91,
				KeywordScore:    0.55,
				FusedScore:      0.802,
				MatchedKeywords: []string{"neural", "networks"},
				Context:         "...neural networks learn...",
			},
			{
				ChunkID:       1002,
				DocumentID:    42,
				SequenceIndex: 1,
				SemanticScore: 0.64,
				FusedScore:    0.448,
			},
		},
		ResultCount: 2,
		CreatedAt:   testTime(),
		LastAccess:  testTime().Add(10 * time.Minute),
	}

	buf := make([]byte, CacheEntryMUS.Size(entry))
	n := CacheEntryMUS.Marshal(entry, buf)
	if n != len(buf) {
		t.Fatalf("Marshal() wrote %d bytes, Size() said %d", n, len(buf))
	}

	got, _, err := CacheEntryMUS.Unmarshal(buf)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Id != entry.Id || got.Query != entry.Query || got.Mode != entry.Mode || got.Limit != entry.Limit {
		t.Errorf("header = (%d, %q, %v, %d), want (%d, %q, %v, %d)",
			got.Id, got.Query, got.Mode, got.Limit, entry.Id, entry.Query, entry.Mode, entry.Limit)
	}
	if got.ResultCount != entry.ResultCount {
		t.Errorf("ResultCount = %d, want %d", got.ResultCount, entry.ResultCount)
	}
	if len(got.Results) != len(entry.Results) {
		t.Fatalf("Results has %d entries, want %d", len(got.Results), len(entry.Results))
	}
	for i, want := range entry.Results {
		r := got.Results[i]
		if r.ChunkID != want.ChunkID || r.DocumentID != want.DocumentID || r.SequenceIndex != want.SequenceIndex {
			t.Errorf("Results[%d] identity = (%d, %d, %d), want (%d, %d, %d)",
				i, r.ChunkID, r.DocumentID, r.SequenceIndex, want.ChunkID, want.DocumentID, want.SequenceIndex)
		}
		if r.SemanticScore != want.SemanticScore || r.KeywordScore != want.KeywordScore || r.FusedScore != want.FusedScore {
			t.Errorf("Results[%d] scores = (%v, %v, %v), want (%v, %v, %v)",
				i, r.SemanticScore, r.KeywordScore, r.FusedScore, want.SemanticScore, want.KeywordScore, want.FusedScore)
		}
		if r.Context != want.Context {
			t.Errorf("Results[%d] Context = %q, want %q", i, r.Context, want.Context)
		}
		if len(r.MatchedKeywords) != len(want.MatchedKeywords) {
			t.Errorf("Results[%d] has %d matched keywords, want %d", i, len(r.MatchedKeywords), len(want.MatchedKeywords))
		}
	}
	if !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, entry.CreatedAt)
	}
	if !got.LastAccess.Equal(entry.LastAccess) {
		t.Errorf("LastAccess = %v, want %v", got.LastAccess, entry.LastAccess)
	}
}

func TestChunkMUS_Skip(t *testing.T) {
	first := Chunk{
		Id:        1,
		Text:      "first chunk",
		Vector:    []float32{0.1, 0.2},
		Provider:  "local",
		Keywords:  []string{"first"},
		CreatedAt: testTime(),
	}
	second := Chunk{
		Id:        2,
		Text:      "second chunk",
		Provider:  "local",
		CreatedAt: testTime(),
	}

	buf := make([]byte, ChunkMUS.Size(first)+ChunkMUS.Size(second))
	n := ChunkMUS.Marshal(first, buf)
	ChunkMUS.Marshal(second, buf[n:])

	skipped, err := ChunkMUS.Skip(buf)
	if err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if skipped != n {
		t.Fatalf("Skip() consumed %d bytes, want %d", skipped, n)
	}

	got, _, err := ChunkMUS.Unmarshal(buf[skipped:])
	if err != nil {
		t.Fatalf("Unmarshal() after Skip() error = %v", err)
	}
	if got.Id != second.Id || got.Text != second.Text {
		t.Errorf("record after Skip() = (%d, %q), want (%d, %q)", got.Id, got.Text, second.Id, second.Text)
	}
}

func TestMUS_TruncatedInput(t *testing.T) {
	doc := Document{
		Id:        IDFromContent("truncated"),
		Text:      "Some document text that will be cut off mid-record.",
		Format:    "text",
		Status:    StatusPending,
		CreatedAt: testTime(),
	}

	buf := make([]byte, DocumentMUS.Size(doc))
	DocumentMUS.Marshal(doc, buf)

	if _, _, err := DocumentMUS.Unmarshal(buf[:len(buf)-1]); err == nil {
		t.Error("Unmarshal() of truncated record succeeded, want error")
	}

	if _, _, err := DocumentMUS.Unmarshal(nil); err == nil {
		t.Error("Unmarshal() of empty input succeeded, want error")
	}
}
