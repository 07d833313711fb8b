package core

import (
	"time"

	mus "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted model types. The field order below is
// the on-disk record format; changing it invalidates existing stores.
var (
	IDMUS           = idSer{}
	TimeMUS         = timeSer{}
	VectorMUS       = ord.NewSliceSer[float32](raw.Float32)
	KeywordsMUS     = ord.NewSliceSer[string](ord.String)
	MetadataMUS     = ord.NewMapSer[string, string](ord.String, ord.String)
	DocumentMUS     = documentSer{}
	ChunkMUS        = chunkSer{}
	ScoredResultMUS = scoredResultSer{}
	ResultsMUS      = ord.NewSliceSer[ScoredResult](ScoredResultMUS)
	CacheEntryMUS   = cacheEntrySer{}
	CheckpointMUS   = checkpointSer{}
)

var (
	_ mus.Serializer[ID]           = IDMUS
	_ mus.Serializer[time.Time]    = TimeMUS
	_ mus.Serializer[Document]     = DocumentMUS
	_ mus.Serializer[Chunk]        = ChunkMUS
	_ mus.Serializer[ScoredResult] = ScoredResultMUS
	_ mus.Serializer[CacheEntry]   = CacheEntryMUS
	_ mus.Serializer[Checkpoint]   = CheckpointMUS
)

type idSer struct{}

func (idSer) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (id ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	id = ID(v)
	return
}

func (idSer) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idSer) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

// timeSer stores timestamps as microseconds since the Unix epoch and
// restores them in UTC.
type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeSer) Unmarshal(bs []byte) (t time.Time, n int, err error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	t = time.UnixMicro(v).UTC()
	return
}

func (timeSer) Size(t time.Time) (size int) {
	return varint.Int64.Size(t.UnixMicro())
}

func (timeSer) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

type documentSer struct{}

func (documentSer) Marshal(d Document, bs []byte) (n int) {
	n = IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Text, bs[n:])
	n += ord.String.Marshal(d.Format, bs[n:])
	n += MetadataMUS.Marshal(d.Metadata, bs[n:])
	n += varint.Int.Marshal(int(d.Status), bs[n:])
	n += varint.Int.Marshal(d.ChunkCount, bs[n:])
	n += TimeMUS.Marshal(d.CreatedAt, bs[n:])
	return
}

func (documentSer) Unmarshal(bs []byte) (d Document, n int, err error) {
	d.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	d.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Format, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Metadata, n1, err = MetadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var status int
	status, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Status = DocumentStatus(status)
	d.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (documentSer) Size(d Document) (size int) {
	size = IDMUS.Size(d.Id)
	size += ord.String.Size(d.Text)
	size += ord.String.Size(d.Format)
	size += MetadataMUS.Size(d.Metadata)
	size += varint.Int.Size(int(d.Status))
	size += varint.Int.Size(d.ChunkCount)
	size += TimeMUS.Size(d.CreatedAt)
	return
}

func (documentSer) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	for i := 0; i < 2; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = MetadataMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := 0; i < 2; i++ {
		n1, err = varint.Int.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = TimeMUS.Skip(bs[n:])
	n += n1
	return
}

type chunkSer struct{}

func (chunkSer) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.DocumentID, bs[n:])
	n += varint.Int.Marshal(c.SequenceIndex, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += IDMUS.Marshal(c.Fingerprint, bs[n:])
	n += VectorMUS.Marshal(c.Vector, bs[n:])
	n += ord.String.Marshal(c.Provider, bs[n:])
	n += KeywordsMUS.Marshal(c.Keywords, bs[n:])
	n += varint.Int.Marshal(c.OverlapPrefix, bs[n:])
	n += varint.Int.Marshal(c.WordCount, bs[n:])
	n += varint.Int.Marshal(c.CharCount, bs[n:])
	n += TimeMUS.Marshal(c.CreatedAt, bs[n:])
	return
}

func (chunkSer) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	c.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	c.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.SequenceIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Fingerprint, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Vector, n1, err = VectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Provider, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Keywords, n1, err = KeywordsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.OverlapPrefix, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.WordCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.CharCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (chunkSer) Size(c Chunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += IDMUS.Size(c.DocumentID)
	size += varint.Int.Size(c.SequenceIndex)
	size += ord.String.Size(c.Text)
	size += IDMUS.Size(c.Fingerprint)
	size += VectorMUS.Size(c.Vector)
	size += ord.String.Size(c.Provider)
	size += KeywordsMUS.Size(c.Keywords)
	size += varint.Int.Size(c.OverlapPrefix)
	size += varint.Int.Size(c.WordCount)
	size += varint.Int.Size(c.CharCount)
	size += TimeMUS.Size(c.CreatedAt)
	return
}

func (chunkSer) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = VectorMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = KeywordsMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := 0; i < 3; i++ {
		n1, err = varint.Int.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = TimeMUS.Skip(bs[n:])
	n += n1
	return
}

type scoredResultSer struct{}

func (scoredResultSer) Marshal(r ScoredResult, bs []byte) (n int) {
	n = IDMUS.Marshal(r.ChunkID, bs)
	n += IDMUS.Marshal(r.DocumentID, bs[n:])
	n += varint.Int.Marshal(r.SequenceIndex, bs[n:])
	n += raw.Float64.Marshal(r.SemanticScore, bs[n:])
	n += raw.Float64.Marshal(r.KeywordScore, bs[n:])
	n += raw.Float64.Marshal(r.FusedScore, bs[n:])
	n += KeywordsMUS.Marshal(r.MatchedKeywords, bs[n:])
	n += ord.String.Marshal(r.Context, bs[n:])
	return
}

func (scoredResultSer) Unmarshal(bs []byte) (r ScoredResult, n int, err error) {
	r.ChunkID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	r.DocumentID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.SequenceIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.SemanticScore, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.KeywordScore, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.FusedScore, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.MatchedKeywords, n1, err = KeywordsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Context, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (scoredResultSer) Size(r ScoredResult) (size int) {
	size = IDMUS.Size(r.ChunkID)
	size += IDMUS.Size(r.DocumentID)
	size += varint.Int.Size(r.SequenceIndex)
	size += raw.Float64.Size(r.SemanticScore)
	size += raw.Float64.Size(r.KeywordScore)
	size += raw.Float64.Size(r.FusedScore)
	size += KeywordsMUS.Size(r.MatchedKeywords)
	size += ord.String.Size(r.Context)
	return
}

func (scoredResultSer) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := 0; i < 3; i++ {
		n1, err = raw.Float64.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = KeywordsMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	return
}

type cacheEntrySer struct{}

func (cacheEntrySer) Marshal(e CacheEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(e.Id, bs)
	n += ord.String.Marshal(e.Query, bs[n:])
	n += varint.Int.Marshal(int(e.Mode), bs[n:])
	n += varint.Int.Marshal(e.Limit, bs[n:])
	n += ResultsMUS.Marshal(e.Results, bs[n:])
	n += varint.Int.Marshal(e.ResultCount, bs[n:])
	n += TimeMUS.Marshal(e.CreatedAt, bs[n:])
	n += TimeMUS.Marshal(e.LastAccess, bs[n:])
	return
}

func (cacheEntrySer) Unmarshal(bs []byte) (e CacheEntry, n int, err error) {
	e.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	e.Query, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var mode int
	mode, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Mode = SearchMode(mode)
	e.Limit, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Results, n1, err = ResultsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.ResultCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.LastAccess, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (cacheEntrySer) Size(e CacheEntry) (size int) {
	size = IDMUS.Size(e.Id)
	size += ord.String.Size(e.Query)
	size += varint.Int.Size(int(e.Mode))
	size += varint.Int.Size(e.Limit)
	size += ResultsMUS.Size(e.Results)
	size += varint.Int.Size(e.ResultCount)
	size += TimeMUS.Size(e.CreatedAt)
	size += TimeMUS.Size(e.LastAccess)
	return
}

func (cacheEntrySer) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := 0; i < 2; i++ {
		n1, err = varint.Int.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = ResultsMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for i := 0; i < 2; i++ {
		n1, err = TimeMUS.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

type checkpointSer struct{}

func (checkpointSer) Marshal(c Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(c.Kind, bs)
	n += IDMUS.Marshal(c.LastID, bs[n:])
	n += varint.Uint64.Marshal(c.Processed, bs[n:])
	n += TimeMUS.Marshal(c.UpdatedAt, bs[n:])
	return
}

func (checkpointSer) Unmarshal(bs []byte) (c Checkpoint, n int, err error) {
	c.Kind, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	c.LastID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Processed, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (checkpointSer) Size(c Checkpoint) (size int) {
	size = ord.String.Size(c.Kind)
	size += IDMUS.Size(c.LastID)
	size += varint.Uint64.Size(c.Processed)
	size += TimeMUS.Size(c.UpdatedAt)
	return
}

func (checkpointSer) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Uint64.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = TimeMUS.Skip(bs[n:])
	n += n1
	return
}
