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


package core

import (
	"fmt"
	"strings"
)

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - URL must not be empty
//   - ChunkIndex must not be negative
//
// Content may be empty; it is embedded as a zero vector.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if strings.TrimSpace(chunk.URL) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyURL)
	}
	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeChunkIndex)
	}
	return nil
}

// ValidateCodeExample validates a CodeExample. It applies the same rules as
// ValidateChunk; empty Code is allowed and embedded with its summary.
func ValidateCodeExample(example *CodeExample) error {
	if example == nil {
		return fmt.Errorf("%w: code example is nil", ErrInvalidCodeExample)
	}
	if strings.TrimSpace(example.URL) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCodeExample, ErrEmptyURL)
	}
	if example.ChunkIndex < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCodeExample, ErrNegativeChunkIndex)
	}
	return nil
}

// ValidateSource validates a Source according to domain rules.
func ValidateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("%w: source is nil", ErrInvalidSource)
	}
	if strings.TrimSpace(source.Domain) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrEmptyDomain)
	}
	if source.TotalWords < 0 {
		return fmt.Errorf("%w: total words cannot be negative", ErrInvalidSource)
	}
	return nil
}
