package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/crawlindex/ai"
	"github.com/poiesic/crawlindex/core"
)

const (
	// MaxContentChars bounds how much crawled content is sent for summarization.
	MaxContentChars = 25000

	// MaxSummaryChars bounds the stored summary; longer replies are cut and
	// suffixed with "...".
	MaxSummaryChars = 500

	summaryMaxTokens = 150

	summarySystemPrompt = "You are a helpful assistant that provides concise library/tool/framework summaries."

	summaryPromptTemplate = `<source_content>
%s
</source_content>

The above content is from the documentation for '%s'. Please provide a concise summary (3-5 sentences) that describes what this library/tool/framework is about. The summary should help understand what the library/tool/framework accomplishes and the purpose.
`
)

// Summarizer writes short descriptions of a source from its crawled content.
type Summarizer struct {
	completer ai.Completer
	logger    *slog.Logger
}

// NewSummarizer creates a Summarizer. A nil logger selects slog.Default().
func NewSummarizer(completer ai.Completer, logger *slog.Logger) (*Summarizer, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		completer: completer,
		logger:    logger.With("component", "source-summarizer"),
	}, nil
}

// Summarize returns a summary of content for domain. It never fails: empty
// content or an unusable reply yields core.DefaultSourceSummary(domain).
func (s *Summarizer) Summarize(ctx context.Context, domain, content string) string {
	fallback := core.DefaultSourceSummary(domain)
	if strings.TrimSpace(content) == "" {
		return fallback
	}

	prompt := fmt.Sprintf(summaryPromptTemplate, core.Head(content, MaxContentChars), domain)
	reply, err := s.completer.Complete(ctx, summarySystemPrompt, prompt, summaryMaxTokens)
	if err != nil {
		s.logger.Warn("source summary failed, using default", "domain", domain, "err", err)
		return fallback
	}

	summary := strings.TrimSpace(reply)
	if summary == "" {
		return fallback
	}
	if core.CharCount(summary) > MaxSummaryChars {
		summary = core.Head(summary, MaxSummaryChars) + "..."
	}
	return summary
}
