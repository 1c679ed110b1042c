// Package source maps domains to stable Source identities.
//
// A Resolver looks a domain up and creates its Source on first reference.
// Concurrent resolutions of one domain inside the process share a single
// lookup-or-create flight, and a duplicate insert lost to another process is
// recovered by re-reading the winner. A Session caches results for the
// duration of one ingestion call, failures included.
//
// Summaries are refreshed with UpsertSummary; Summarizer produces them from
// crawled content with an LLM.
package source
