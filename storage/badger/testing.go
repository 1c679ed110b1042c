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


package badger

import "github.com/poiesic/crawlindex/storage"

// Repositories groups the repositories sharing one Backend.
type Repositories struct {
	Sources      storage.SourceRepository
	Chunks       storage.ChunkRepository
	CodeExamples storage.CodeExampleRepository
	Backend      *Backend
}

// Close closes the repositories and then the backend.
func (r *Repositories) Close() error {
	r.CodeExamples.Close()
	r.Chunks.Close()
	r.Sources.Close()
	return r.Backend.Close()
}

// OpenRepositories opens a BadgerDB backend at path and creates all repositories on it.
func OpenRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	sources, err := NewSourceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		sources.Close()
		backend.Close()
		return nil, err
	}

	codeExamples, err := NewCodeExampleRepository(backend)
	if err != nil {
		chunks.Close()
		sources.Close()
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Sources:      sources,
		Chunks:       chunks,
		CodeExamples: codeExamples,
		Backend:      backend,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}
