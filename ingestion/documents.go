package ingestion

import (
	"context"
	"strings"
	"time"

	"github.com/poiesic/crawlindex/chunking"
	"github.com/poiesic/crawlindex/codeblock"
	"github.com/poiesic/crawlindex/core"
)

// Metadata keys written by IngestDocuments.
const (
	MetadataChunkIndex = "chunk_index"
	MetadataURL        = "url"
	MetadataSource     = "source"
	MetadataCrawlTime  = "crawl_time"
)

// summaryContentChars bounds the content of a source passed to the summarizer.
const summaryContentChars = 5000

// sourceStats accumulates what IngestDocuments learns about a domain.
type sourceStats struct {
	words   int
	content string
}

// IngestDocuments chunks documents, refreshes the summary of every source
// they belong to, and ingests the chunks. When code extraction is enabled the
// documents' code blocks are summarized and ingested as code examples.
func (p *Pipeline) IngestDocuments(ctx context.Context, documents []core.Document) (*DocumentReport, error) {
	report := &DocumentReport{Documents: len(documents), Chunks: &Report{}, CodeExamples: &Report{}}
	if len(documents) == 0 {
		return report, nil
	}

	crawlTime := time.Now().UTC().Format(time.RFC3339)
	fullDocuments := make(map[string]string, len(documents))
	stats := make(map[string]*sourceStats)
	var domains []string
	var chunks []core.Chunk

	for _, doc := range documents {
		if strings.TrimSpace(doc.Markdown) == "" {
			p.logger.Warn("skipping empty document", "url", doc.URL)
			continue
		}
		fullDocuments[doc.URL] = doc.Markdown
		domain := core.DomainFromURL(doc.URL)

		s, ok := stats[domain]
		if !ok {
			s = &sourceStats{content: core.Head(doc.Markdown, summaryContentChars)}
			stats[domain] = s
			domains = append(domains, domain)
		}

		for i, text := range p.chunker.Split(doc.Markdown) {
			metadata := chunking.SectionInfo(text)
			metadata[MetadataChunkIndex] = i
			metadata[MetadataURL] = doc.URL
			metadata[MetadataSource] = domain
			metadata[MetadataCrawlTime] = crawlTime
			s.words += metadata[chunking.MetadataWordCount].(int)

			chunks = append(chunks, core.Chunk{URL: doc.URL, ChunkIndex: i, Content: text, Metadata: metadata})
		}
	}

	for _, domain := range domains {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if domain == "" {
			continue
		}
		s := stats[domain]
		summary := p.sourceSummarizer.Summarize(ctx, domain, s.content)
		if _, err := p.resolver.UpsertSummary(ctx, domain, summary, s.words, ""); err != nil {
			report.SourceErrors++
			continue
		}
		report.Sources++
	}

	chunkReport, err := p.IngestChunks(ctx, chunks, fullDocuments)
	report.Chunks = chunkReport
	if err != nil {
		return report, err
	}

	if !p.extractCode {
		return report, nil
	}

	examples := p.extractCodeExamples(ctx, documents)
	codeReport, err := p.IngestCodeExamples(ctx, examples)
	report.CodeExamples = codeReport
	return report, err
}

// extractCodeExamples pulls code blocks out of documents and summarizes them.
func (p *Pipeline) extractCodeExamples(ctx context.Context, documents []core.Document) []core.CodeExample {
	var (
		blocks   []core.CodeBlock
		examples []core.CodeExample
	)
	for _, doc := range documents {
		domain := core.DomainFromURL(doc.URL)
		for i, block := range codeblock.Extract(doc.Markdown, p.minCodeLength) {
			blocks = append(blocks, block)
			examples = append(examples, core.CodeExample{
				URL:        doc.URL,
				ChunkIndex: i,
				Code:       block.Code,
				Metadata: core.Metadata{
					MetadataChunkIndex:         i,
					MetadataURL:                doc.URL,
					MetadataSource:             domain,
					chunking.MetadataCharCount: core.CharCount(block.Code),
					chunking.MetadataWordCount: len(strings.Fields(block.Code)),
				},
			})
		}
	}
	if len(blocks) == 0 {
		return nil
	}

	p.logger.Info("summarizing code examples", "count", len(blocks))
	for i, summary := range p.codeSummarizer.SummarizeAll(ctx, blocks) {
		examples[i].Summary = summary
	}
	return examples
}
