package ingestion

import (
	"context"

	"github.com/poiesic/crawlindex/contextual"
	"github.com/poiesic/crawlindex/core"
	"github.com/poiesic/crawlindex/embedding"
	"github.com/poiesic/crawlindex/source"
)

// ChunksFromColumns zips parallel columns into chunks. A nil metadatas
// column is allowed; otherwise every column must have the same length.
func ChunksFromColumns(urls []string, chunkNumbers []int, contents []string, metadatas []core.Metadata) ([]core.Chunk, error) {
	n := len(urls)
	if len(chunkNumbers) != n || len(contents) != n || (metadatas != nil && len(metadatas) != n) {
		return nil, ErrMismatchedInput
	}
	chunks := make([]core.Chunk, n)
	for i := range n {
		chunks[i] = core.Chunk{URL: urls[i], ChunkIndex: chunkNumbers[i], Content: contents[i]}
		if metadatas != nil {
			chunks[i].Metadata = metadatas[i]
		}
	}
	return chunks, nil
}

// IngestChunks replaces the stored chunks of every URL in chunks with the
// given ones. documents maps a URL to its full markdown and is used for
// contextualization; a missing entry contextualizes against an empty document.
func (p *Pipeline) IngestChunks(ctx context.Context, chunks []core.Chunk, documents map[string]string) (*Report, error) {
	report := &Report{Requested: len(chunks)}
	if len(chunks) == 0 {
		return report, nil
	}

	p.deleteChunkURLs(ctx, distinctURLs(chunks, func(c core.Chunk) string { return c.URL }))
	if err := ctx.Err(); err != nil {
		return report, err
	}

	progress := p.newProgress(len(chunks))
	defer progress.Finish()

	session := p.resolver.NewSession()
	for _, bounds := range p.batches(len(chunks)) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		batch := chunks[bounds[0]:bounds[1]]
		report.Batches++

		if err := p.ingestChunkBatch(ctx, session, batch, documents, report); err != nil {
			return report, err
		}
		progress.Increment(len(batch))
	}

	p.logger.Info("ingested chunks", "requested", report.Requested, "inserted", report.Inserted,
		"skipped", report.Skipped, "failed", report.Failed, "degraded", report.Degraded,
		"contextualized", report.Contextualized)
	p.logEmbeddingStats()
	return report, nil
}

// deleteChunkURLs removes prior chunks in one call, falling back to one call
// per URL. Failures are logged and never stop ingestion.
func (p *Pipeline) deleteChunkURLs(ctx context.Context, urls []string) {
	err := p.chunkRepository.DeleteChunksByURLs(ctx, urls...)
	if err == nil {
		return
	}
	p.logger.Warn("bulk delete failed, deleting one URL at a time", "urls", len(urls), "err", err)

	for _, url := range urls {
		if ctx.Err() != nil {
			return
		}
		if err := p.chunkRepository.DeleteChunksByURLs(ctx, url); err != nil {
			p.logger.Error("failed to delete chunks for URL", "url", url, "err", err)
		}
	}
}

// resolved is a chunk whose Source is known.
type resolved struct {
	chunk    core.Chunk
	sourceID string
}

func (p *Pipeline) ingestChunkBatch(ctx context.Context, session *source.Session, batch []core.Chunk, documents map[string]string, report *Report) error {
	kept := make([]resolved, 0, len(batch))
	for _, chunk := range batch {
		if err := core.ValidateChunk(&chunk); err != nil {
			p.logger.Warn("skipping invalid chunk", "url", chunk.URL, "chunk", chunk.ChunkIndex, "err", err)
			report.Skipped++
			continue
		}
		domain := core.DomainFromURL(chunk.URL)
		if domain == "" {
			p.logger.Warn("could not determine domain, skipping chunk", "url", chunk.URL)
			report.Skipped++
			continue
		}
		id, err := session.Resolve(ctx, domain)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.logger.Warn("missing source, skipping chunk", "url", chunk.URL, "domain", domain, "err", err)
			report.Skipped++
			continue
		}
		kept = append(kept, resolved{chunk: chunk, sourceID: id})
	}
	if len(kept) == 0 {
		p.logger.Info("all chunks in batch were skipped", "batch", report.Batches)
		return nil
	}

	texts := make([]string, len(kept))
	flags := make([]bool, len(kept))
	for i, r := range kept {
		texts[i] = r.chunk.Content
	}
	if p.useContextual {
		items := make([]contextual.Item, len(kept))
		for i, r := range kept {
			items[i] = contextual.Item{Document: documents[r.chunk.URL], Chunk: r.chunk.Content}
		}
		for i, result := range p.contextualizer.ContextualizeBatch(ctx, items) {
			texts[i] = result.Text
			flags[i] = result.Contextualized
			if result.Contextualized {
				report.Contextualized++
			}
		}
	}

	vectors := p.embedder.EmbedBatch(ctx, texts)
	if err := ctx.Err(); err != nil {
		return err
	}
	report.Degraded += embedding.CountDegraded(texts, vectors)

	records := make([]*core.ChunkRecord, len(kept))
	for i, r := range kept {
		metadata := r.chunk.Metadata.WithChunkSize(core.CharCount(texts[i]))
		if flags[i] {
			metadata[core.MetadataContextualEmbedding] = true
		}
		records[i] = &core.ChunkRecord{
			URL:         r.chunk.URL,
			ChunkNumber: r.chunk.ChunkIndex,
			Content:     texts[i],
			Metadata:    metadata,
			SourceID:    r.sourceID,
			Embedding:   vectors[i],
		}
	}

	outcome, err := insertWithFallback(ctx, p, records, p.chunkRepository.AddChunks,
		func(r *core.ChunkRecord) []any { return []any{"url", r.URL, "chunk", r.ChunkNumber} })
	report.Inserted += outcome.inserted
	report.Failed += outcome.failed
	return err
}

// distinctURLs returns the URLs of items in first-seen order.
func distinctURLs[T any](items []T, url func(T) string) []string {
	seen := make(map[string]struct{}, len(items))
	var urls []string
	for _, item := range items {
		u := url(item)
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}
