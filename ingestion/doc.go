// Package ingestion turns raw document text into stored, indexed chunks.
//
// The Pipeline type manages the ingestion workflow:
//   - Normalizing markdown decoration out of the text
//   - Splitting into overlapping chunks at paragraph and sentence boundaries
//   - Extracting keywords per chunk for the lexical index
//   - Embedding chunk batches across a bounded worker pool
//
// Ingest is synchronous: it returns once every chunk is embedded and stored,
// with the document marked completed or failed. Document identity is the
// content hash of the normalized text, so re-ingesting identical content is
// a no-op rather than a duplicate.
package ingestion
