package codeblock

import (
	"strings"
	"testing"
)

func TestExtractLanguageTag(t *testing.T) {
	blocks := Extract("```python\ndef f(): pass\n```", 1)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Language != "python" {
		t.Errorf("Language = %q, want python", b.Language)
	}
	if b.Code != "def f(): pass" {
		t.Errorf("Code = %q", b.Code)
	}
	if b.ContextBefore != "" || b.ContextAfter != "" {
		t.Errorf("unexpected context %q / %q", b.ContextBefore, b.ContextAfter)
	}
	if b.FullContext != "\n\ndef f(): pass\n\n" {
		t.Errorf("FullContext = %q", b.FullContext)
	}
}

func TestExtractMinLength(t *testing.T) {
	tests := []struct {
		name     string
		codeLen  int
		min      int
		expected int
	}{
		{"one below minimum", 999, 1000, 0},
		{"exactly minimum", 1000, 1000, 1},
		{"above minimum", 1500, 1000, 1},
		{"zero minimum keeps short code", 1, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markdown := "intro\n```go\n" + strings.Repeat("x", tt.codeLen) + "\n```\noutro"
			if got := len(Extract(markdown, tt.min)); got != tt.expected {
				t.Errorf("got %d blocks, want %d", got, tt.expected)
			}
		})
	}
}

func TestExtractCountsCharacters(t *testing.T) {
	// 10 characters, 30 bytes
	markdown := "```\n" + strings.Repeat("語", 10) + "\n```"
	if got := len(Extract(markdown, 10)); got != 1 {
		t.Errorf("got %d blocks, want 1", got)
	}
	if got := len(Extract(markdown, 11)); got != 0 {
		t.Errorf("got %d blocks, want 0", got)
	}
}

func TestExtractFencePairing(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		codes    []string
	}{
		{
			name:     "unmatched trailing fence",
			markdown: "```\nfirst\n```\ntext\n```\ndangling",
			codes:    []string{"first"},
		},
		{
			name:     "single fence",
			markdown: "prose\n```js\nlet x = 1",
			codes:    nil,
		},
		{
			name:     "sequential pairs",
			markdown: "a\n```sh\nls\n```\nb\n```sh\npwd\n```\nc",
			codes:    []string{"ls", "pwd"},
		},
		{
			name:     "prose between pairs is not code",
			markdown: "```\none\n```middle```\ntwo\n```",
			codes:    []string{"one", "two"},
		},
		{
			name:     "leading fence counts as first",
			markdown: "```\nwrapped\n```\nafter",
			codes:    []string{"wrapped"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := Extract(tt.markdown, 1)
			if len(blocks) != len(tt.codes) {
				t.Fatalf("got %d blocks, want %d: %+v", len(blocks), len(tt.codes), blocks)
			}
			for i, code := range tt.codes {
				if blocks[i].Code != code {
					t.Errorf("block %d code = %q, want %q", i, blocks[i].Code, code)
				}
			}
		})
	}
}

func TestExtractLanguageRules(t *testing.T) {
	tests := []struct {
		name     string
		section  string
		language string
		code     string
	}{
		{"tag with body", "rust\nfn main() {}", "rust", "fn main() {}"},
		{"tag is trimmed", "  bash  \necho hi", "bash", "echo hi"},
		{"first line with space is code", "x = 1 + 2\ny = 3", "", "x = 1 + 2\ny = 3"},
		{"no newline is all code", "print('hi')", "", "print('hi')"},
		{"empty first line", "\nplain body", "", "plain body"},
		{"tag too long", "averyveryverylongname\nbody", "", "averyveryverylongname\nbody"},
		{"tag of nineteen", "abcdefghijklmnopqrs\nbody", "abcdefghijklmnopqrs", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			language, code := splitLanguage(tt.section)
			if language != tt.language || code != tt.code {
				t.Errorf("splitLanguage(%q) = (%q, %q), want (%q, %q)", tt.section, language, code, tt.language, tt.code)
			}
		})
	}
}

func TestExtractContextWindows(t *testing.T) {
	before := strings.Repeat("b", 1500)
	after := strings.Repeat("a", 1500)
	markdown := before + "\n```\ncode body\n```\n" + after

	blocks := Extract(markdown, 1)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	// the window includes the newline before the fence, which is trimmed
	if got := len(b.ContextBefore); got != ContextChars-1 {
		t.Errorf("ContextBefore length = %d, want %d", got, ContextChars-1)
	}
	if got := len(b.ContextAfter); got != ContextChars-1 {
		t.Errorf("ContextAfter length = %d, want %d", got, ContextChars-1)
	}
	want := b.ContextBefore + "\n\ncode body\n\n" + b.ContextAfter
	if b.FullContext != want {
		t.Error("FullContext does not join context and code")
	}
}

func TestExtractEmpty(t *testing.T) {
	if blocks := Extract("", DefaultMinLength); len(blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(blocks))
	}
}
