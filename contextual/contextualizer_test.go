package contextual

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/crawlindex/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkOf extracts the chunk text from a contextualization prompt.
func chunkOf(prompt string) string {
	start := strings.Index(prompt, "<chunk> \n") + len("<chunk> \n")
	end := strings.Index(prompt, "\n</chunk>")
	return prompt[start:end]
}

func TestNewContextualizer(t *testing.T) {
	_, err := NewContextualizer(nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)

	c, err := NewContextualizer(mock.NewMockCompleter(), WithConcurrency(0), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Concurrency())

	c, err = NewContextualizer(mock.NewMockCompleter())
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrency, c.Concurrency())
}

func TestContextualize(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.SetCompleteFunc(func(ctx context.Context, system, user string, maxTokens int) (string, error) {
		return "  Part of the install guide.  ", nil
	})
	c, err := NewContextualizer(completer)
	require.NoError(t, err)

	text, ok := c.Contextualize(context.Background(), "the whole document", "pip install thing")
	assert.True(t, ok)
	assert.Equal(t, "Part of the install guide.\n---\npip install thing", text)

	prompts := completer.Prompts()
	require.Len(t, prompts, 1)
	assert.Equal(t, systemPrompt, prompts[0].System)
	assert.Equal(t, MaxTokens, prompts[0].MaxTokens)
	assert.Contains(t, prompts[0].User, "<document> \nthe whole document \n</document>")
	assert.Equal(t, "pip install thing", chunkOf(prompts[0].User))
}

func TestContextualizeTruncatesDocument(t *testing.T) {
	completer := mock.NewMockCompleter()
	c, err := NewContextualizer(completer)
	require.NoError(t, err)

	document := strings.Repeat("a", MaxDocumentChars) + "TAIL"
	_, ok := c.Contextualize(context.Background(), document, "chunk")
	assert.True(t, ok)
	assert.NotContains(t, completer.Prompts()[0].User, "TAIL")
}

func TestContextualizeFailure(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"completer error", "", errors.New("rate limited")},
		{"blank reply", "   \n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := mock.NewMockCompleter()
			completer.SetCompleteFunc(func(ctx context.Context, system, user string, maxTokens int) (string, error) {
				return tt.reply, tt.err
			})
			c, err := NewContextualizer(completer)
			require.NoError(t, err)

			text, ok := c.Contextualize(context.Background(), "doc", "chunk body")
			assert.False(t, ok)
			assert.Equal(t, "chunk body", text)
		})
	}
}

func TestContextualizeBatchOrderAndIsolation(t *testing.T) {
	completer := mock.NewMockCompleter()
	completer.SetCompleteFunc(func(ctx context.Context, system, user string, maxTokens int) (string, error) {
		chunk := chunkOf(user)
		var n int
		fmt.Sscanf(chunk, "chunk-%d", &n)
		// later items finish first
		time.Sleep(time.Duration(20-n) * time.Millisecond)
		switch n {
		case 3:
			return "", errors.New("failed")
		case 7:
			panic("boom")
		}
		return "ctx-" + chunk, nil
	})
	c, err := NewContextualizer(completer, WithConcurrency(4))
	require.NoError(t, err)

	items := make([]Item, 12)
	for i := range items {
		items[i] = Item{Document: "doc", Chunk: fmt.Sprintf("chunk-%d", i)}
	}

	results := c.ContextualizeBatch(context.Background(), items)
	require.Len(t, results, len(items))
	for i, result := range results {
		chunk := fmt.Sprintf("chunk-%d", i)
		switch i {
		case 3, 7:
			assert.Equal(t, Result{Text: chunk}, result, "slot %d", i)
		default:
			assert.Equal(t, Result{Text: "ctx-" + chunk + Separator + chunk, Contextualized: true}, result, "slot %d", i)
		}
	}
}

func TestContextualizeBatchBoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	completer := mock.NewMockCompleter()
	completer.SetCompleteFunc(func(ctx context.Context, system, user string, maxTokens int) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	c, err := NewContextualizer(completer, WithConcurrency(3))
	require.NoError(t, err)

	items := make([]Item, 20)
	for i := range items {
		items[i] = Item{Document: "doc", Chunk: "c"}
	}
	c.ContextualizeBatch(context.Background(), items)

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 20, completer.CallCount())
}

func TestContextualizeBatchEmpty(t *testing.T) {
	completer := mock.NewMockCompleter()
	c, err := NewContextualizer(completer)
	require.NoError(t, err)

	assert.Empty(t, c.ContextualizeBatch(context.Background(), nil))
	assert.Zero(t, completer.CallCount())
}
