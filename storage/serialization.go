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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/crawlindex/core"
)

// MarshalSource serializes a Source to bytes.
func MarshalSource(source *core.Source) ([]byte, error) {
	return marshal(source)
}

// UnmarshalSource deserializes a Source from bytes.
func UnmarshalSource(data []byte) (*core.Source, error) {
	var source core.Source
	if err := unmarshal(data, &source); err != nil {
		return nil, err
	}
	return &source, nil
}

// MarshalChunkRecord serializes a ChunkRecord to bytes.
func MarshalChunkRecord(record *core.ChunkRecord) ([]byte, error) {
	return marshal(record)
}

// UnmarshalChunkRecord deserializes a ChunkRecord from bytes.
func UnmarshalChunkRecord(data []byte) (*core.ChunkRecord, error) {
	var record core.ChunkRecord
	if err := unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalCodeExampleRecord serializes a CodeExampleRecord to bytes.
func MarshalCodeExampleRecord(record *core.CodeExampleRecord) ([]byte, error) {
	return marshal(record)
}

// UnmarshalCodeExampleRecord deserializes a CodeExampleRecord from bytes.
func UnmarshalCodeExampleRecord(data []byte) (*core.CodeExampleRecord, error) {
	var record core.CodeExampleRecord
	if err := unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalMetadata serializes metadata as a JSON object. Nil metadata
// becomes an empty object.
func MarshalMetadata(metadata core.Metadata) ([]byte, error) {
	if metadata == nil {
		metadata = core.Metadata{}
	}
	return marshal(metadata)
}

// UnmarshalMetadata deserializes a JSON object into metadata.
func UnmarshalMetadata(data []byte) (core.Metadata, error) {
	metadata := core.Metadata{}
	if len(data) == 0 {
		return metadata, nil
	}
	if err := unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return nil
}
