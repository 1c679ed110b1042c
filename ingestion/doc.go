// Package ingestion writes crawled documents into the vector store.
//
// The Pipeline type manages the ingestion workflow:
//   - Replacing any records previously stored for the incoming URLs
//   - Resolving each chunk's Source through a per-call cache
//   - Optionally contextualizing chunks with a bounded worker pool
//   - Generating embeddings with zero-vector fallback
//   - Inserting batches with retry, then record by record
//
// Batches are processed sequentially. Per-record problems are logged and
// counted in the returned Report; they never abort the call. The only errors
// returned are misuse and context cancellation.
package ingestion
