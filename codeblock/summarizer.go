package codeblock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/crawlindex/ai"
	"github.com/poiesic/crawlindex/core"
)

const (
	// DefaultSummary replaces summaries that could not be generated.
	DefaultSummary = "Code example for demonstration purposes."

	// DefaultConcurrency is the worker count of SummarizeAll.
	DefaultConcurrency = 10

	summaryMaxTokens = 100
	beforeChars      = 500
	codeChars        = 1500
	afterChars       = 500

	summarySystemPrompt = "You are a helpful assistant that provides concise code example summaries."

	summaryPromptTemplate = `<context_before>
%s
</context_before>

<code_example>
%s
</code_example>

<context_after>
%s
</context_after>

Based on the code example and its surrounding context, provide a concise summary (2-3 sentences) that describes what this code example demonstrates and its purpose. Focus on the practical application and key concepts illustrated.
`
)

// ErrCompleterRequired is returned when a Summarizer is built without a completer.
var ErrCompleterRequired = errors.New("completer is required")

// Summarizer describes code blocks with an LLM.
type Summarizer struct {
	completer   ai.Completer
	concurrency int
	logger      *slog.Logger
}

// Option configures a Summarizer.
type Option func(*Summarizer) error

// WithConcurrency sets the worker count of SummarizeAll.
func WithConcurrency(n int) Option {
	return func(s *Summarizer) error {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Summarizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSummarizer creates a Summarizer backed by completer.
func NewSummarizer(completer ai.Completer, opts ...Option) (*Summarizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	s := &Summarizer{
		completer:   completer,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "code-summarizer")
	return s, nil
}

// Summarize returns a short description of block, or DefaultSummary when the
// model fails or answers with nothing.
func (s *Summarizer) Summarize(ctx context.Context, block core.CodeBlock) string {
	prompt := fmt.Sprintf(summaryPromptTemplate,
		core.Tail(block.ContextBefore, beforeChars),
		core.Head(block.Code, codeChars),
		core.Head(block.ContextAfter, afterChars),
	)

	reply, err := s.completer.Complete(ctx, summarySystemPrompt, prompt, summaryMaxTokens)
	if err != nil {
		s.logger.Warn("code summary failed, using default", "language", block.Language, "err", err)
		return DefaultSummary
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return DefaultSummary
	}
	return reply
}

// SummarizeAll summarizes blocks on a bounded pool released before return.
// Summaries are positionally aligned with blocks.
func (s *Summarizer) SummarizeAll(ctx context.Context, blocks []core.CodeBlock) []string {
	summaries := make([]string, len(blocks))
	for i := range summaries {
		summaries[i] = DefaultSummary
	}
	if len(blocks) == 0 {
		return summaries
	}

	pool, err := ants.NewPool(min(s.concurrency, len(blocks)), ants.WithPanicHandler(func(p any) {
		s.logger.Error("code summary task panicked", "err", fmt.Errorf("panic: %v", p))
	}))
	if err != nil {
		s.logger.Warn("unable to create worker pool, summarizing sequentially", "err", err)
		for i, block := range blocks {
			summaries[i] = s.Summarize(ctx, block)
		}
		return summaries
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, block := range blocks {
		task := func() {
			defer wg.Done()
			summaries[i] = s.Summarize(ctx, block)
		}
		wg.Add(1)
		if err := pool.Submit(task); err != nil {
			s.logger.Warn("failed to submit summary task, running inline", "index", i, "err", err)
			task()
		}
	}
	wg.Wait()

	return summaries
}
