package contextual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/crawlindex/ai"
)

// DefaultConcurrency is the worker count of a batch pass.
const DefaultConcurrency = 10

var (
	// ErrCompleterRequired is returned when a Contextualizer is built without a completer.
	ErrCompleterRequired = errors.New("completer is required")

	// ErrEmptyContext is recorded when the model returns a blank preamble.
	ErrEmptyContext = errors.New("model returned an empty context")
)

// Item is one chunk to contextualize together with its full source document.
type Item struct {
	Document string
	Chunk    string
}

// Result is the text to embed for an Item. Contextualized reports whether a
// preamble was added; when false, Text is the original chunk.
type Result struct {
	Text           string
	Contextualized bool
}

// Contextualizer generates situating context for chunks.
type Contextualizer struct {
	completer   ai.Completer
	concurrency int
	logger      *slog.Logger
}

// Option configures a Contextualizer.
type Option func(*Contextualizer) error

// WithConcurrency sets the worker count of ContextualizeBatch.
// Values below one are raised to one.
func WithConcurrency(n int) Option {
	return func(c *Contextualizer) error {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Contextualizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewContextualizer creates a Contextualizer backed by completer.
func NewContextualizer(completer ai.Completer, opts ...Option) (*Contextualizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	c := &Contextualizer{
		completer:   completer,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "contextualizer")
	return c, nil
}

// Concurrency returns the worker count used by ContextualizeBatch.
func (c *Contextualizer) Concurrency() int {
	return c.concurrency
}

// Contextualize returns preamble + Separator + chunk and true, or the chunk
// unchanged and false when the preamble could not be produced.
func (c *Contextualizer) Contextualize(ctx context.Context, document, chunk string) (string, bool) {
	preamble, err := c.generate(ctx, document, chunk)
	if err != nil {
		c.logger.Warn("contextualization failed, using original chunk", "length", len(chunk), "err", err)
		return chunk, false
	}
	return preamble + Separator + chunk, true
}

func (c *Contextualizer) generate(ctx context.Context, document, chunk string) (string, error) {
	reply, err := c.completer.Complete(ctx, systemPrompt, buildUserPrompt(document, chunk), MaxTokens)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyContext
	}
	return reply, nil
}

// ContextualizeBatch contextualizes items concurrently on a pool sized by
// the configured concurrency. Results are positionally aligned with items.
// A failing or panicking task leaves its slot holding the original chunk.
func (c *Contextualizer) ContextualizeBatch(ctx context.Context, items []Item) []Result {
	results := make([]Result, len(items))
	for i, item := range items {
		results[i] = Result{Text: item.Chunk}
	}
	if len(items) == 0 {
		return results
	}

	pool, err := ants.NewPool(min(c.concurrency, len(items)), ants.WithPanicHandler(func(p any) {
		c.logger.Error("contextualization task panicked", "err", fmt.Errorf("panic: %v", p))
	}))
	if err != nil {
		c.logger.Warn("unable to create worker pool, contextualizing sequentially", "err", err)
		for i, item := range items {
			text, ok := c.Contextualize(ctx, item.Document, item.Chunk)
			results[i] = Result{Text: text, Contextualized: ok}
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, item := range items {
		task := func() {
			defer wg.Done()
			text, ok := c.Contextualize(ctx, item.Document, item.Chunk)
			results[i] = Result{Text: text, Contextualized: ok}
		}
		wg.Add(1)
		if err := pool.Submit(task); err != nil {
			c.logger.Warn("failed to submit contextualization task, running inline", "index", i, "err", err)
			task()
		}
	}
	wg.Wait()

	return results
}
