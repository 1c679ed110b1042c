package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in one
	// remote call. The returned slice is positionally aligned with texts.
	// Callers must treat a result whose length differs from len(texts) as a failure.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer produces chat completions from a system and a user prompt.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete returns the model's reply, limited to maxTokens tokens.
	// Returns an error if the request fails.
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Completer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Completer returns the chat completion service.
	// The returned Completer is safe for concurrent use.
	Completer() Completer

	// Dimensions returns the length of vectors produced by Embedder.
	Dimensions() int

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
