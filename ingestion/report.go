package ingestion

import "fmt"

// Report summarizes one ingestion call.
type Report struct {
	// Requested is the number of records submitted.
	Requested int
	// Inserted is the number of records persisted.
	Inserted int
	// Skipped is the number of records dropped before insertion, for example
	// because their Source could not be resolved.
	Skipped int
	// Failed is the number of records whose insertion failed after fallback.
	Failed int
	// Contextualized is the number of chunks embedded with a context preamble.
	Contextualized int
	// Degraded is the number of records stored with a zero embedding because
	// their text could not be embedded. They are also counted by Inserted or
	// Failed.
	Degraded int
	// Healed is the number of code example embeddings that were all zero after
	// the batch call and usable after re-embedding.
	Healed int
	// Batches is the number of batches processed.
	Batches int
}

// String renders the counters for logs and the CLI.
func (r *Report) String() string {
	return fmt.Sprintf("requested=%d inserted=%d skipped=%d failed=%d degraded=%d contextualized=%d healed=%d batches=%d",
		r.Requested, r.Inserted, r.Skipped, r.Failed, r.Degraded, r.Contextualized, r.Healed, r.Batches)
}

// DocumentReport summarizes an IngestDocuments call.
type DocumentReport struct {
	Documents    int
	Sources      int
	SourceErrors int
	Chunks       *Report
	CodeExamples *Report
}
