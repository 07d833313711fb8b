package badger

import (
	"bytes"
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/storage"
)

// deleteBatchSize bounds how many chunks a single delete transaction
// touches, keeping large documents inside BadgerDB's transaction limits.
const deleteBatchSize = 256

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{
		backend: backend,
	}
}

// Close releases resources. ChunkRepository has no resources to release.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddChunks adds one or more chunks to storage.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			// Derive the ID from document and sequence if not set
			if chunk.Id == 0 {
				chunk.Id = core.ChunkID(chunk.DocumentID, chunk.SequenceIndex)
			}
			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = time.Now().UTC()
			}

			// Store primary record
			key := makeChunkKey(chunk.Id)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			// Store document index
			docKey := makeChunkDocumentKey(chunk.DocumentID, chunk.SequenceIndex)
			if err := tx.Set(docKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}

			// Store keyword index
			for _, term := range chunk.Keywords {
				kwKey := makeChunkKeywordKey(term, chunk.Id)
				if err := tx.Set(kwKey, storage.MarshalID(chunk.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return chunks, err
}

// UpdateChunks replaces existing chunk records.
func (r *ChunkRepository) UpdateChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			key := makeChunkKey(chunk.Id)

			// Read old chunk to detect changes
			old, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			// Store updated record
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			// Adjust keyword index if the keyword set changed
			if !slices.Equal(old.Keywords, chunk.Keywords) {
				kept := make(map[string]bool, len(chunk.Keywords))
				for _, term := range chunk.Keywords {
					kept[term] = true
				}
				for _, term := range old.Keywords {
					if !kept[term] {
						if err := tx.Delete(makeChunkKeywordKey(term, chunk.Id)); err != nil {
							return err
						}
					}
				}
				for _, term := range chunk.Keywords {
					if err := tx.Set(makeChunkKeywordKey(term, chunk.Id), storage.MarshalID(chunk.Id)); err != nil {
						return err
					}
				}
			}
		}
		return tx.Commit()
	}, true)

	return chunks, err
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeChunkKey(id)
		var err error
		result, err = readChunk(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunksByDocument retrieves all chunks of a document in sequence order.
func (r *ChunkRepository) GetChunksByDocument(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkDocumentKey(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			// Read the ID from the index
			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full chunk
			chunk, err := readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)

	return results, err
}

// DeleteChunksByDocument removes all chunks of a document together with
// their index entries. Deletes run in batches so a large document cannot
// overflow a single transaction.
func (r *ChunkRepository) DeleteChunksByDocument(ctx context.Context, documentID core.ID) (int, error) {
	ids, err := r.chunkIDsByDocument(documentID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(ids); start += deleteBatchSize {
		batch := ids[start:min(start+deleteBatchSize, len(ids))]

		batchDeleted := 0
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			for _, id := range batch {
				key := makeChunkKey(id)
				chunk, err := readChunk(tx, key)
				if err != nil {
					return err
				}
				if chunk == nil {
					continue
				}

				// Delete keyword index entries
				for _, term := range chunk.Keywords {
					if err := tx.Delete(makeChunkKeywordKey(term, id)); err != nil {
						return err
					}
				}

				// Delete document index entry
				if err := tx.Delete(makeChunkDocumentKey(chunk.DocumentID, chunk.SequenceIndex)); err != nil {
					return err
				}

				// Delete primary record
				if err := tx.Delete(key); err != nil {
					return err
				}
				batchDeleted++
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return deleted, err
		}
		deleted += batchDeleted
	}

	return deleted, nil
}

// FindNearest finds the chunks most similar to the given vector.
func (r *ChunkRepository) FindNearest(ctx context.Context, vector []float32, provider string, limit int) ([]*core.NearestChunk, error) {
	var results []*core.NearestChunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Iterate through all chunk records
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}

			// Skip chunks without embeddings
			if len(chunk.Vector) == 0 {
				continue
			}

			// Vectors are only comparable within one embedding space
			if provider != "" && chunk.Provider != provider {
				continue
			}
			if len(chunk.Vector) != len(vector) {
				continue
			}

			results = append(results, &core.NearestChunk{
				Chunk:      chunk,
				Similarity: cosineSimilarity(vector, chunk.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending, chunk ID ascending for ties
	slices.SortFunc(results, func(a, b *core.NearestChunk) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		if a.Chunk.Id < b.Chunk.Id {
			return -1
		}
		if a.Chunk.Id > b.Chunk.Id {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// SearchKeywords finds chunks matching any of the given terms. Score counts
// the distinct terms that hit each chunk.
func (r *ChunkRepository) SearchKeywords(ctx context.Context, terms []string, limit int) ([]*core.KeywordHit, error) {
	hits := make(map[core.ID]*core.KeywordHit)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true

			if err := scanKeyword(tx, term, hits); err != nil {
				return err
			}
		}

		// Load the chunk behind every hit
		for chunkID, hit := range hits {
			chunk, err := readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk == nil {
				delete(hits, chunkID)
				continue
			}
			hit.Chunk = chunk
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	results := make([]*core.KeywordHit, 0, len(hits))
	for _, hit := range hits {
		results = append(results, hit)
	}

	// Sort by score descending, chunk ID ascending for ties
	slices.SortFunc(results, func(a, b *core.KeywordHit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.Chunk.Id < b.Chunk.Id {
			return -1
		}
		if a.Chunk.Id > b.Chunk.Id {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// SuggestKeywords returns distinct indexed keywords starting with prefix.
func (r *ChunkRepository) SuggestKeywords(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))

	var terms []string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeKeywordPrefixKey(prefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Keys are sorted, so entries for one term are contiguous
		last := ""
		for iter.Rewind(); iter.Valid(); iter.Next() {
			term := keywordFromIndexKey(iter.Item().Key())
			if term == "" || term == last {
				continue
			}
			terms = append(terms, term)
			last = term
			if len(terms) >= limit {
				break
			}
		}
		return nil
	}, false)

	return terms, err
}

// ListChunks pages through all chunks in key order. A zero cursor starts
// from the beginning; otherwise iteration resumes strictly after the
// cursor's key.
func (r *ChunkRepository) ListChunks(ctx context.Context, after core.ID, limit int) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		if after == 0 {
			iter.Rewind()
		} else {
			cursor := makeChunkKey(after)
			iter.Seek(cursor)
			if iter.Valid() && bytes.Equal(iter.Item().Key(), cursor) {
				iter.Next()
			}
		}

		for ; iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, chunk)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// CountChunks returns the number of stored chunks.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// chunkIDsByDocument collects the chunk IDs of a document from the index.
func (r *ChunkRepository) chunkIDsByDocument(documentID core.ID) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkDocumentKey(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}
			ids = append(ids, chunkID)
		}
		return nil
	}, false)
	return ids, err
}

// scanKeyword collects the chunk IDs indexed under term into hits.
func scanKeyword(tx *badger.Txn, term string, hits map[core.ID]*core.KeywordHit) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKeywordKey(term)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var chunkID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			chunkID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		hit, ok := hits[chunkID]
		if !ok {
			hit = &core.KeywordHit{}
			hits[chunkID] = hit
		}
		hit.Score++
		hit.MatchedTerms = append(hit.MatchedTerms, term)
	}
	return nil
}

// readChunk reads a chunk from the transaction.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
