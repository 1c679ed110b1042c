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
	"time"
)

// Source is the identity record for a content origin, keyed by domain.
// It is created lazily the first time a chunk from the domain is ingested
// and refreshed by summary upserts.
type Source struct {
	ID         string    `json:"id"`
	Domain     string    `json:"source"`
	TableName  string    `json:"table_name"`
	Summary    string    `json:"summary"`
	TotalWords int       `json:"total_words"`
	InsertedAt time.Time `json:"inserted_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSource returns a Source for domain populated with the defaults used
// on first reference: a placeholder summary, zero words and the derived
// table label. ID is left for the store to assign.
func NewSource(domain string) *Source {
	return &Source{
		Domain:    domain,
		TableName: TableNameForDomain(domain),
		Summary:   DefaultSourceSummary(domain),
	}
}

// Chunk is one slice of a crawled document submitted for ingestion.
type Chunk struct {
	URL        string
	ChunkIndex int
	Content    string
	Metadata   Metadata
}

// CodeExample is an extracted code block, with its summary, submitted for ingestion.
type CodeExample struct {
	URL        string
	ChunkIndex int
	Code       string
	Summary    string
	Metadata   Metadata
}

// ChunkRecord is a persisted, embedded chunk.
type ChunkRecord struct {
	URL         string    `json:"url"`
	ChunkNumber int       `json:"chunk_number"`
	Content     string    `json:"content"`
	Metadata    Metadata  `json:"metadata"`
	SourceID    string    `json:"source_id"`
	Embedding   []float32 `json:"embedding"`
	InsertedAt  time.Time `json:"inserted_at"`
}

// CodeExampleRecord is a persisted, embedded code example. SourceID holds
// the domain string of the originating URL rather than a Source.ID.
type CodeExampleRecord struct {
	URL         string    `json:"url"`
	ChunkNumber int       `json:"chunk_number"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary"`
	Metadata    Metadata  `json:"metadata"`
	SourceID    string    `json:"source_id"`
	Embedding   []float32 `json:"embedding"`
	InsertedAt  time.Time `json:"inserted_at"`
}

// ChunkMatch is a similarity search hit on the chunk table.
type ChunkMatch struct {
	Record     *ChunkRecord
	Similarity float32
}

// CodeExampleMatch is a similarity search hit on the code example table.
type CodeExampleMatch struct {
	Record     *CodeExampleRecord
	Similarity float32
}

// CodeBlock is a fenced code region extracted from markdown together with
// the prose around it.
type CodeBlock struct {
	Code          string
	Language      string
	ContextBefore string
	ContextAfter  string
	FullContext   string
}

// Document is a crawled page in markdown form.
type Document struct {
	URL      string
	Markdown string
}
