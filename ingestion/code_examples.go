package ingestion

import (
	"context"

	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/embedding"
)

// CodeExampleText is the text embedded for a code example: the code and its
// summary, so that natural language queries can match either.
func CodeExampleText(code, summary string) string {
	return code + "\n\nSummary: " + summary
}

// CodeExamplesFromColumns zips parallel columns into code examples. A nil
// metadatas column is allowed; otherwise every column must have the same length.
func CodeExamplesFromColumns(urls []string, chunkNumbers []int, codes, summaries []string, metadatas []core.Metadata) ([]core.CodeExample, error) {
	n := len(urls)
	if len(chunkNumbers) != n || len(codes) != n || len(summaries) != n || (metadatas != nil && len(metadatas) != n) {
		return nil, ErrMismatchedInput
	}
	examples := make([]core.CodeExample, n)
	for i := range n {
		examples[i] = core.CodeExample{URL: urls[i], ChunkIndex: chunkNumbers[i], Code: codes[i], Summary: summaries[i]}
		if metadatas != nil {
			examples[i].Metadata = metadatas[i]
		}
	}
	return examples, nil
}

// IngestCodeExamples replaces the stored code examples of every URL in
// examples with the given ones. Source IDs are the URLs' domains; the Source
// table is not consulted.
func (p *Pipeline) IngestCodeExamples(ctx context.Context, examples []core.CodeExample) (*Report, error) {
	report := &Report{Requested: len(examples)}
	if len(examples) == 0 {
		return report, nil
	}

	for _, url := range distinctURLs(examples, func(e core.CodeExample) string { return e.URL }) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := p.codeExampleRepository.DeleteCodeExamplesByURL(ctx, url); err != nil {
			p.logger.Error("failed to delete code examples for URL", "url", url, "err", err)
		}
	}

	progress := p.newProgress(len(examples))
	defer progress.Finish()

	for _, bounds := range p.batches(len(examples)) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		batch := examples[bounds[0]:bounds[1]]
		report.Batches++

		if err := p.ingestCodeExampleBatch(ctx, batch, report); err != nil {
			return report, err
		}
		progress.Increment(len(batch))
	}

	p.logger.Info("ingested code examples", "requested", report.Requested, "inserted", report.Inserted,
		"skipped", report.Skipped, "failed", report.Failed, "degraded", report.Degraded, "healed", report.Healed)
	p.logEmbeddingStats()
	return report, nil
}

func (p *Pipeline) ingestCodeExampleBatch(ctx context.Context, batch []core.CodeExample, report *Report) error {
	kept := make([]core.CodeExample, 0, len(batch))
	for _, example := range batch {
		if err := core.ValidateCodeExample(&example); err != nil {
			p.logger.Warn("skipping invalid code example", "url", example.URL, "chunk", example.ChunkIndex, "err", err)
			report.Skipped++
			continue
		}
		kept = append(kept, example)
	}
	if len(kept) == 0 {
		return nil
	}

	texts := make([]string, len(kept))
	for i, example := range kept {
		texts[i] = CodeExampleText(example.Code, example.Summary)
	}
	vectors := p.embedder.EmbedBatch(ctx, texts)
	for i, vector := range vectors {
		if !embedding.IsZero(vector) {
			continue
		}
		p.logger.Warn("zero embedding for code example, re-embedding", "url", kept[i].URL, "chunk", kept[i].ChunkIndex)
		vectors[i] = p.embedder.EmbedSingle(ctx, texts[i])
		if !embedding.IsZero(vectors[i]) {
			report.Healed++
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	report.Degraded += embedding.CountDegraded(texts, vectors)

	records := make([]*core.CodeExampleRecord, len(kept))
	for i, example := range kept {
		records[i] = &core.CodeExampleRecord{
			URL:         example.URL,
			ChunkNumber: example.ChunkIndex,
			Content:     example.Code,
			Summary:     example.Summary,
			Metadata:    example.Metadata.Clone(),
			SourceID:    core.DomainFromURL(example.URL),
			Embedding:   vectors[i],
		}
	}

	outcome, err := insertWithFallback(ctx, p, records, p.codeExampleRepository.AddCodeExamples,
		func(r *core.CodeExampleRecord) []any { return []any{"url", r.URL, "chunk", r.ChunkNumber} })
	report.Inserted += outcome.inserted
	report.Failed += outcome.failed
	return err
}
