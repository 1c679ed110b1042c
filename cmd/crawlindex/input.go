package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/crawlindex/core"
)

type documentRow struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

type chunkRow struct {
	URL         string        `json:"url"`
	ChunkNumber int           `json:"chunk_number"`
	Content     string        `json:"content"`
	Metadata    core.Metadata `json:"metadata"`
}

type codeExampleRow struct {
	URL         string        `json:"url"`
	ChunkNumber int           `json:"chunk_number"`
	Code        string        `json:"code"`
	Summary     string        `json:"summary"`
	Metadata    core.Metadata `json:"metadata"`
}

// openInput opens path for reading; "-" is stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// readJSONL decodes a stream of JSON values, one record per value.
func readJSONL[T any](r io.Reader) ([]T, error) {
	dec := json.NewDecoder(r)
	var rows []T
	for {
		var row T
		err := dec.Decode(&row)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
}

// readInputFile reads the JSON lines file at path.
func readInputFile[T any](path string) ([]T, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readJSONL[T](f)
}

func toDocuments(rows []documentRow) []core.Document {
	docs := make([]core.Document, len(rows))
	for i, row := range rows {
		docs[i] = core.Document{URL: row.URL, Markdown: row.Markdown}
	}
	return docs
}
