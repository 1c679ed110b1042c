package core

import (
	"encoding/json"
	"maps"
	"reflect"
)

// Well-known metadata keys written by the ingestion pipeline.
const (
	MetadataChunkSize           = "chunk_size"
	MetadataContextualEmbedding = "contextual_embedding"
)

// Metadata is an open mapping of JSON-compatible values attached to stored records.
type Metadata map[string]any

// Clone returns a shallow copy of m. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// WithChunkSize returns a new Metadata holding chunk_size followed by every
// entry of m. Keys already present in m take precedence.
func (m Metadata) WithChunkSize(size int) Metadata {
	out := make(Metadata, len(m)+1)
	out[MetadataChunkSize] = size
	maps.Copy(out, m)
	return out
}

// Contains reports whether every entry of filter is present in m. Values are
// compared after a JSON round trip so that numeric types written by callers
// match values decoded from storage. Nested objects match by containment.
func (m Metadata) Contains(filter Metadata) bool {
	if len(filter) == 0 {
		return true
	}
	return containsJSON(normalizeJSON(map[string]any(m)), normalizeJSON(map[string]any(filter)))
}

func normalizeJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func containsJSON(have, want any) bool {
	wantMap, ok := want.(map[string]any)
	if !ok {
		return reflect.DeepEqual(have, want)
	}
	haveMap, ok := have.(map[string]any)
	if !ok {
		return false
	}
	for k, wv := range wantMap {
		hv, found := haveMap[k]
		if !found || !containsJSON(hv, wv) {
			return false
		}
	}
	return true
}
