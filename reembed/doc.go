// Package reembed refreshes stored chunk embeddings with a new or updated
// embedding provider.
//
// This package supports batch processing of chunks, checkpointed resume of
// interrupted runs, progress reporting, and retry with exponential backoff
// around provider calls.
package reembed
