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


// Package storage provides the storage abstraction layer for crawlindex.
//
// This package defines repository interfaces that decouple the ingestion
// pipeline and search facade from the backing store. Two backends exist:
//
//   - storage/badger: embedded BadgerDB with brute-force cosine search
//   - storage/postgres: PostgreSQL with pgvector and SQL match functions
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - SourceRepository: per-domain Source identity records
//   - ChunkRepository: embedded document chunks, keyed by (url, chunk_number)
//   - CodeExampleRepository: embedded code examples, keyed by (url, chunk_number)
//
// Both backends enforce uniqueness on the Source domain and on
// (url, chunk_number) and report violations as ErrDuplicateKey.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
