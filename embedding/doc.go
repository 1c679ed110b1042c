// Package embedding adapts an ai.Embedder into the total, order-preserving
// batch embedding operation used by ingestion and search.
//
// EmbedBatch never fails: blank inputs map to zero vectors without a remote
// call, batch failures are retried under a retry.Policy, and when the batch
// path is exhausted each text is embedded on its own, with individual
// failures degrading to zero vectors.
//
//	adapter, err := embedding.NewAdapter(provider.Embedder(), provider.Dimensions())
//	vectors := adapter.EmbedBatch(ctx, []string{"first", "", "third"})
//	// len(vectors) == 3, vectors[1] is all zeros
package embedding
