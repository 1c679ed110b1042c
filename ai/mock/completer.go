package mock

import (
	"context"
	"sync"

	"github.com/poiesic/crawlindex/ai"
)

// Prompt is one recorded Complete call.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// MockCompleter is a test double for ai.Completer.
type MockCompleter struct {
	mu sync.Mutex

	completeFunc func(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)

	callCount int
	prompts   []Prompt
}

var _ ai.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a mock completer with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockCompleter().
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// SetCompleteFunc replaces the behavior of Complete.
func (m *MockCompleter) SetCompleteFunc(fn func(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
}

// Complete records the prompt and returns either the injected behavior's
// result or "context for: " followed by up to 40 bytes of the user prompt.
func (m *MockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, Prompt{System: systemPrompt, User: userPrompt, MaxTokens: maxTokens})
	fn := m.completeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, systemPrompt, userPrompt, maxTokens)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	preview := userPrompt
	if len(preview) > 40 {
		preview = preview[:40]
	}
	return "context for: " + preview, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns a copy of the recorded prompts in call order.
func (m *MockCompleter) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Prompt, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Reset clears the call count, recorded prompts and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.completeFunc = nil
}
