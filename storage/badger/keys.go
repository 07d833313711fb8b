package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/relevit/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
	chunkRecordPrefix    = "churec"
	chunkDocumentPrefix  = "churecd"
	chunkKeywordPrefix   = "chureck"
	cacheRecordPrefix    = "cacrec"
	checkpointPrefix     = "chkrec"
)

// keywordKeySep separates the keyword text from the chunk ID in keyword
// index keys. Keywords are lowercased word tokens and never contain it.
const keywordKeySep = 0x00

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkDocumentKey generates a composite key for the document index.
// Format: prefix:documentID:sequenceIndex
func makeChunkDocumentKey(documentID core.ID, sequenceIndex int) []byte {
	prefix := chunkDocumentPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for sequence
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(sequenceIndex))
	return buf
}

// makePartialChunkDocumentKey generates a partial key for per-document scans.
// Format: prefix:documentID
func makePartialChunkDocumentKey(documentID core.ID) []byte {
	prefix := chunkDocumentPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for documentID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeChunkKeywordKey generates a composite key for the keyword index.
// Format: prefix:term<sep>chunkID
func makeChunkKeywordKey(term string, chunkID core.ID) []byte {
	prefix := chunkKeywordPrefix + ":"
	prefixBytes := []byte(prefix)
	termBytes := []byte(term)
	totalSize := len(prefixBytes) + len(termBytes) + 1 + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	offset += copy(buf[offset:], termBytes)
	buf[offset] = keywordKeySep
	offset++
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialChunkKeywordKey generates a partial key matching every chunk
// indexed under a term.
// Format: prefix:term<sep>
func makePartialChunkKeywordKey(term string) []byte {
	prefix := chunkKeywordPrefix + ":"
	prefixBytes := []byte(prefix)
	termBytes := []byte(term)
	totalSize := len(prefixBytes) + len(termBytes) + 1
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	offset += copy(buf[offset:], termBytes)
	buf[offset] = keywordKeySep
	return buf
}

// makeKeywordPrefixKey generates a partial key matching every indexed term
// that starts with the given text. Unlike makePartialChunkKeywordKey it has
// no terminating separator, so it also matches longer terms.
func makeKeywordPrefixKey(text string) []byte {
	return []byte(chunkKeywordPrefix + ":" + text)
}

// keywordFromIndexKey extracts the term from a keyword index key.
// Returns "" if the key is not a well-formed keyword index key.
func keywordFromIndexKey(key []byte) string {
	prefix := []byte(chunkKeywordPrefix + ":")
	if len(key) <= len(prefix) {
		return ""
	}
	rest := key[len(prefix):]
	for i, b := range rest {
		if b == keywordKeySep {
			return string(rest[:i])
		}
	}
	return ""
}

// makeCacheKey generates a key for a cache entry by fingerprint ID.
func makeCacheKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", cacheRecordPrefix, id))
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(kind string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, kind))
}
