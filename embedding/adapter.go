package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/poiesic/crawlindex/ai"
	"github.com/poiesic/crawlindex/retry"
)

// Stats counts how embedding requests were served.
type Stats struct {
	// BatchCalls is the number of EmbedBatch invocations that reached the provider.
	BatchCalls int64
	// Fallbacks is the number of batches served one text at a time after
	// the batch path was exhausted.
	Fallbacks int64
	// Blank is the number of empty or whitespace inputs mapped to zero vectors.
	Blank int64
	// Degraded is the number of non-blank inputs that ended as zero vectors.
	Degraded int64
}

// Adapter wraps an ai.Embedder with zero-vector handling, retries and a
// per-item fallback. It is safe for concurrent use.
type Adapter struct {
	embedder   ai.Embedder
	dimensions int
	policy     retry.Policy
	logger     *slog.Logger

	batchCalls atomic.Int64
	fallbacks  atomic.Int64
	blank      atomic.Int64
	degraded   atomic.Int64
}

// Option configures an Adapter.
type Option func(*Adapter) error

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithRetryPolicy replaces the batch retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(a *Adapter) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		a.policy = policy
		return nil
	}
}

// NewAdapter creates an Adapter producing vectors of the given length.
func NewAdapter(embedder ai.Embedder, dimensions int, opts ...Option) (*Adapter, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if dimensions <= 0 {
		return nil, ErrInvalidDimensions
	}

	a := &Adapter{
		embedder:   embedder,
		dimensions: dimensions,
		policy:     retry.DefaultPolicy(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "embedding-adapter")
	return a, nil
}

// Dimensions returns the vector length produced by the adapter.
func (a *Adapter) Dimensions() int {
	return a.dimensions
}

// EmbedBatch returns one vector per input text, in input order.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))

	var (
		pending []string
		slots   []int
	)
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = Zero(a.dimensions)
			a.blank.Add(1)
			continue
		}
		pending = append(pending, text)
		slots = append(slots, i)
	}
	if len(pending) == 0 {
		return out
	}

	a.batchCalls.Add(1)
	var vectors [][]float32
	err := a.policy.Do(ctx, func(ctx context.Context) error {
		result, err := a.embedder.EmbedTexts(ctx, pending)
		if err != nil {
			return err
		}
		if err := a.checkBatch(result, len(pending)); err != nil {
			a.logger.Warn("discarding embedding batch", "expected", len(pending), "received", len(result), "err", err)
			return err
		}
		vectors = result
		return nil
	})
	if err == nil {
		for j, slot := range slots {
			out[slot] = vectors[j]
		}
		return out
	}

	if ctx.Err() != nil {
		a.logger.Warn("embedding cancelled, using zero vectors", "count", len(pending), "err", ctx.Err())
		for _, slot := range slots {
			out[slot] = Zero(a.dimensions)
		}
		a.degraded.Add(int64(len(slots)))
		return out
	}

	a.logger.Warn("batch embedding failed, embedding individually", "count", len(pending), "err", err)
	a.fallbacks.Add(1)
	for j, slot := range slots {
		out[slot] = a.embedOne(ctx, pending[j])
	}
	return out
}

// EmbedSingle embeds one text. Failures yield a zero vector.
func (a *Adapter) EmbedSingle(ctx context.Context, text string) []float32 {
	return a.EmbedBatch(ctx, []string{text})[0]
}

// Stats returns a snapshot of the adapter's counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		BatchCalls: a.batchCalls.Load(),
		Fallbacks:  a.fallbacks.Load(),
		Blank:      a.blank.Load(),
		Degraded:   a.degraded.Load(),
	}
}

func (a *Adapter) embedOne(ctx context.Context, text string) []float32 {
	if ctx.Err() != nil {
		a.degraded.Add(1)
		return Zero(a.dimensions)
	}
	vector, err := a.embedder.EmbedText(ctx, text)
	if err == nil && len(vector) != a.dimensions {
		err = fmt.Errorf("%w: expected %d, received %d", ErrDimensionMismatch, a.dimensions, len(vector))
	}
	if err != nil {
		a.logger.Warn("individual embedding failed, using zero vector", "length", len(text), "err", err)
		a.degraded.Add(1)
		return Zero(a.dimensions)
	}
	return vector
}

func (a *Adapter) checkBatch(vectors [][]float32, expected int) error {
	if len(vectors) != expected {
		return fmt.Errorf("%w: expected %d, received %d", ErrLengthMismatch, expected, len(vectors))
	}
	for _, v := range vectors {
		if len(v) != a.dimensions {
			return fmt.Errorf("%w: expected %d, received %d", ErrDimensionMismatch, a.dimensions, len(v))
		}
	}
	return nil
}
