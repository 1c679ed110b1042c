package badger

import (
	"encoding/binary"

	"github.com/poiesic/crawlindex/core"
)

// Key prefixes for different data types
const (
	sourceRecordPrefix = "srcrec:"
	sourceDomainPrefix = "srcdom:"
	chunkRecordPrefix  = "chkrec:"
	codeRecordPrefix   = "codrec:"
)

// makeSourceKey generates a key for a source by ID.
func makeSourceKey(id string) []byte {
	return []byte(sourceRecordPrefix + id)
}

// makeSourceDomainKey generates the unique domain index key for a source.
func makeSourceDomainKey(domain string) []byte {
	return []byte(sourceDomainPrefix + domain)
}

// makeURLPrefix generates the key prefix shared by every record of a URL.
// Format: prefix + blake2b(url)
func makeURLPrefix(prefix, url string) []byte {
	hash := core.HashURL(url)
	buf := make([]byte, 0, len(prefix)+len(hash))
	buf = append(buf, prefix...)
	return append(buf, hash...)
}

// makeURLRecordKey generates a composite key for one chunk of a URL.
// Format: prefix + blake2b(url) + chunkNumber
func makeURLRecordKey(prefix, url string, chunkNumber int) []byte {
	buf := makeURLPrefix(prefix, url)
	// BigEndian keeps chunks of a URL in numeric order
	return binary.BigEndian.AppendUint64(buf, uint64(chunkNumber))
}

func makeChunkKey(url string, chunkNumber int) []byte {
	return makeURLRecordKey(chunkRecordPrefix, url, chunkNumber)
}

func makeChunkURLPrefix(url string) []byte {
	return makeURLPrefix(chunkRecordPrefix, url)
}

func makeCodeExampleKey(url string, chunkNumber int) []byte {
	return makeURLRecordKey(codeRecordPrefix, url, chunkNumber)
}

func makeCodeExampleURLPrefix(url string) []byte {
	return makeURLPrefix(codeRecordPrefix, url)
}
