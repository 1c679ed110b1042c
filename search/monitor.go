package search

import "time"

// Search kinds passed to SearchMonitor.Start.
const (
	KindDocuments    = "documents"
	KindCodeExamples = "code_examples"
)

// Stages passed to SearchMonitor.Failed.
const (
	StageEmbedding = "embedding"
	StageMatch     = "match"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to trace a search, e.g. for verbose CLI output.
type SearchMonitor interface {
	Start(kind, query string)
	AfterEmbedding(dimensions int)
	Failed(stage string, err error)
	Finish(results int, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)             {}
func (n *noopMonitor) AfterEmbedding(_ int)          {}
func (n *noopMonitor) Failed(_ string, _ error)      {}
func (n *noopMonitor) Finish(_ int, _ time.Duration) {}
