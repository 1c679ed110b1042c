// Package chunking splits crawled markdown into embedding-sized chunks,
// preferring to cut at code fences, paragraphs and sentence ends.
package chunking

import (
	"regexp"
	"strings"

	"github.com/poiesic/crawlindex/core"
)

// DefaultChunkSize is the maximum chunk length in characters.
const DefaultChunkSize = 5000

// minBreakRatio is the fraction of a window a break point must lie beyond.
const minBreakRatio = 0.3

// Section info metadata keys.
const (
	MetadataHeaders   = "headers"
	MetadataCharCount = "char_count"
	MetadataWordCount = "word_count"
)

var headerLine = regexp.MustCompile(`(?m)^(#+)\s+(.+)$`)

// Chunker splits text into chunks of at most Size characters.
type Chunker struct {
	Size int
}

// NewChunker returns a Chunker. A non-positive size selects DefaultChunkSize.
func NewChunker(size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{Size: size}
}

// Split returns the trimmed, non-empty chunks of text in order.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	minBreak := int(float64(c.Size) * minBreakRatio)

	var chunks []string
	for start := 0; start < len(runes); {
		end := start + c.Size
		if end >= len(runes) {
			chunks = appendTrimmed(chunks, string(runes[start:]))
			break
		}

		window := string(runes[start:end])
		if cut, ok := breakPoint(window, minBreak); ok {
			end = start + cut
		}

		chunks = appendTrimmed(chunks, string(runes[start:end]))
		start = end
	}
	return chunks
}

// breakPoint returns the rune offset inside window at which to cut. Code
// fences are preferred, then paragraph breaks, then sentence ends; the first
// candidate lying past minBreak wins.
func breakPoint(window string, minBreak int) (int, bool) {
	if i := strings.LastIndex(window, "```"); i >= 0 {
		if cut := core.CharCount(window[:i]); cut > minBreak {
			return cut, true
		}
	}
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		if cut := core.CharCount(window[:i]); cut > minBreak {
			return cut, true
		}
	}
	if i := strings.LastIndex(window, ". "); i >= 0 {
		if cut := core.CharCount(window[:i]); cut > minBreak {
			// keep the period with its sentence
			return cut + 1, true
		}
	}
	return 0, false
}

func appendTrimmed(chunks []string, chunk string) []string {
	if chunk = strings.TrimSpace(chunk); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// SectionInfo describes a chunk: its markdown headers joined by "; ", and its
// character and word counts.
func SectionInfo(chunk string) core.Metadata {
	matches := headerLine.FindAllStringSubmatch(chunk, -1)
	headers := make([]string, len(matches))
	for i, m := range matches {
		headers[i] = m[1] + " " + m[2]
	}
	return core.Metadata{
		MetadataHeaders:   strings.Join(headers, "; "),
		MetadataCharCount: core.CharCount(chunk),
		MetadataWordCount: len(strings.Fields(chunk)),
	}
}
