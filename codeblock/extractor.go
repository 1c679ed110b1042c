package codeblock

import (
	"strings"

	"github.com/poiesic/crawlindex/core"
)

const (
	// DefaultMinLength is the shortest code body kept by Extract callers that
	// do not choose their own threshold.
	DefaultMinLength = 1000

	// ContextChars is the size of the window captured on each side of a block.
	ContextChars = 1000

	// maxLanguageTagChars is the exclusive upper bound on a language tag's length.
	maxLanguageTagChars = 20

	fence = "```"
)

var fenceRunes = []rune(fence)

// Extract returns the fenced code blocks of markdown whose code body has at
// least minLength characters, in document order.
func Extract(markdown string, minLength int) []core.CodeBlock {
	text := []rune(markdown)
	positions := fencePositions(text)

	var blocks []core.CodeBlock
	for i := 0; i+1 < len(positions); i += 2 {
		start, end := positions[i], positions[i+1]

		language, code := splitLanguage(string(text[start+len(fenceRunes) : end]))
		if core.CharCount(code) < minLength {
			continue
		}

		before := strings.TrimSpace(string(text[max(0, start-ContextChars):start]))
		afterStart := end + len(fenceRunes)
		after := strings.TrimSpace(string(text[afterStart:min(len(text), afterStart+ContextChars)]))

		blocks = append(blocks, core.CodeBlock{
			Code:          code,
			Language:      language,
			ContextBefore: before,
			ContextAfter:  after,
			FullContext:   before + "\n\n" + code + "\n\n" + after,
		})
	}
	return blocks
}

// fencePositions returns the rune offsets of every non-overlapping fence.
func fencePositions(text []rune) []int {
	var positions []int
	for i := 0; i+len(fenceRunes) <= len(text); {
		if text[i] == '`' && text[i+1] == '`' && text[i+2] == '`' {
			positions = append(positions, i)
			i += len(fenceRunes)
			continue
		}
		i++
	}
	return positions
}

// splitLanguage separates an optional language tag from the code body.
// The first line is a tag only when more lines follow and, once trimmed, it
// is non-empty, has no spaces and is shorter than maxLanguageTagChars.
func splitLanguage(section string) (language, code string) {
	first, rest, found := strings.Cut(section, "\n")
	if found {
		tag := strings.TrimSpace(first)
		if tag != "" && !strings.Contains(tag, " ") && core.CharCount(tag) < maxLanguageTagChars {
			return tag, strings.TrimSpace(rest)
		}
	}
	return "", strings.TrimSpace(section)
}
