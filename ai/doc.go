// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the AI services used by crawlindex.
//
// This package defines interfaces for text embeddings and chat completions.
// Ingestion, search and summarization depend on these abstractions rather
// than on a concrete provider.
//
// # Interfaces
//
//   - Embedder: Generates vector embeddings from text
//   - Completer: Produces chat completions for contextualization and summaries
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockCompleter)
// return CONCRETE types to enable test assertions and behavior injection.
//
//	mockEmbed := mock.NewMockEmbedder(3)  // returns *mock.MockEmbedder
//	mockEmbed.SetEmbedTextsFunc(...)
//	count := mockEmbed.CallCount()
//
// mock.NewMockProvider returns an interface since it's the primary entry
// point, but provides GetMockEmbedder()/GetMockCompleter() to reach the
// concrete types.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	reply, err := provider.Completer().Complete(ctx, "You are terse.", "Summarize: ...", 100)
package ai
