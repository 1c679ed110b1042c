package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/poiesic/crawlindex/ai"
)

// DefaultDimensions is the vector length produced by a MockEmbedder built with
// a non-positive dimension.
const DefaultDimensions = 8

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	mu sync.Mutex

	// embedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	embedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// embedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	dimensions int
	callCount  int
	batchCalls int
	inputs     [][]string
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockEmbedder().
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// SetEmbedTextFunc replaces the behavior of EmbedText.
func (m *MockEmbedder) SetEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedTextFunc = fn
}

// SetEmbedTextsFunc replaces the behavior of EmbedTexts.
func (m *MockEmbedder) SetEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedTextsFunc = fn
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.inputs = append(m.inputs, []string{text})
	fn := m.embedTextFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	return Vector(text, m.dimensions), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.batchCalls++
	m.inputs = append(m.inputs, append([]string(nil), texts...))
	fn := m.embedTextsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = Vector(text, m.dimensions)
	}
	return vectors, nil
}

// Dimensions returns the vector length of default embeddings.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// BatchCallCount returns the number of EmbedTexts calls.
func (m *MockEmbedder) BatchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// Inputs returns a copy of the texts received, one entry per call.
func (m *MockEmbedder) Inputs() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.inputs))
	copy(out, m.inputs)
	return out
}

// Reset clears the call counts, recorded inputs and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.batchCalls = 0
	m.inputs = nil
	m.embedTextFunc = nil
	m.embedTextsFunc = nil
}

// Vector creates a deterministic unit-length embedding from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range dim {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000+1) / 1000.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := float32(1 / math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}
