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


package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/crawlindex"
	"github.com/poiesic/crawlindex/config"
	"github.com/urfave/cli/v2"
)

// runner carries what commands need beyond their flags.
type runner struct {
	out         io.Writer
	errOut      io.Writer
	openOptions []crawlindex.IndexOption
}

func main() {
	app := newApp(&runner{out: os.Stdout, errOut: os.Stderr})
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(r *runner) *cli.App {
	return &cli.App{
		Name:      "crawlindex",
		Usage:     "Ingest crawled documentation into a vector store and search it",
		Writer:    r.out,
		ErrWriter: r.errOut,
		Flags:     globalFlags(),
		Before:    setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Chunk, embed and store documents read as JSON lines of {url, markdown}",
				Action: r.ingestCommand,
				Flags: append(inputFlags(),
					&cli.BoolFlag{
						Name:    "contextual",
						Usage:   "Prefix each chunk with LLM-generated document context before embedding",
						EnvVars: []string{config.EnvContextual},
					},
					&cli.BoolFlag{
						Name:    "code-examples",
						Usage:   "Extract, summarize and store fenced code blocks",
						EnvVars: []string{config.EnvCodeExamples},
					},
					&cli.IntFlag{
						Name:    "chunk-size",
						Usage:   "Maximum characters per chunk",
						EnvVars: []string{config.EnvChunkSize},
					},
					&cli.IntFlag{
						Name:    "min-code-length",
						Usage:   "Shortest code block kept as a code example",
						EnvVars: []string{config.EnvMinCodeLength},
					},
				),
			},
			{
				Name:   "ingest-chunks",
				Usage:  "Store pre-chunked content read as JSON lines of {url, chunk_number, content, metadata}",
				Action: r.ingestChunksCommand,
				Flags: append(inputFlags(),
					&cli.BoolFlag{
						Name:    "contextual",
						Usage:   "Prefix each chunk with LLM-generated document context before embedding",
						EnvVars: []string{config.EnvContextual},
					},
					&cli.StringFlag{
						Name:  "documents",
						Usage: "JSON lines of {url, markdown} used as context for --contextual",
					},
				),
			},
			{
				Name:   "ingest-code",
				Usage:  "Store code examples read as JSON lines of {url, chunk_number, code, summary, metadata}",
				Action: r.ingestCodeCommand,
				Flags:  inputFlags(),
			},
			{
				Name:      "search",
				Usage:     "Search stored chunks",
				ArgsUsage: "QUERY",
				Action:    r.searchCommand,
				Flags:     searchFlags(),
			},
			{
				Name:      "search-code",
				Usage:     "Search stored code examples",
				ArgsUsage: "QUERY",
				Action:    r.searchCodeCommand,
				Flags: append(searchFlags(),
					&cli.StringFlag{
						Name:  "source",
						Usage: "Restrict results to one source domain",
					},
				),
			},
			{
				Name:   "sources",
				Usage:  "List known sources",
				Action: r.sourcesCommand,
			},
			{
				Name:   "summarize",
				Usage:  "Summarize a source from a markdown file",
				Action: r.summarizeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "domain",
						Aliases:  []string{"d"},
						Usage:    "Source domain, e.g. docs.example.com",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Markdown file to summarize (- for stdin)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Store the summary and word count on the source",
					},
				},
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error)",
			Value:   "info",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load settings from this .env file",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:    "store",
			Usage:   "Store backend (badger, postgres)",
			EnvVars: []string{config.EnvStore},
		},
		&cli.StringFlag{
			Name:    "badger-path",
			Usage:   "Path to BadgerDB database directory",
			EnvVars: []string{config.EnvBadgerPath},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "PostgreSQL connection string",
			EnvVars: []string{config.EnvDatabaseURL},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: []string{config.EnvEmbeddingHost},
		},
		&cli.StringFlag{
			Name:    "llm-host",
			Usage:   "Chat completion service host URL",
			EnvVars: []string{config.EnvCompletionHost},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{config.EnvEmbeddingModel},
		},
		&cli.StringFlag{
			Name:    "model",
			Usage:   "Chat completion model name",
			EnvVars: []string{config.EnvCompletionModel},
		},
		&cli.IntFlag{
			Name:    "dimensions",
			Usage:   "Embedding vector length",
			EnvVars: []string{config.EnvDimensions},
		},
		&cli.IntFlag{
			Name:    "batch-size",
			Usage:   "Number of records embedded and inserted together",
			EnvVars: []string{config.EnvBatchSize},
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "Parallel LLM calls for contextualization and code summaries",
			EnvVars: []string{config.EnvConcurrency},
		},
	}
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Usage:    "JSON lines file to read (- for stdin)",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Report progress on stderr",
			Value: true,
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "Maximum number of results",
			Value:   10,
		},
		&cli.StringFlag{
			Name:  "filter",
			Usage: `Metadata filter as a JSON object, e.g. {"source":"docs.example.com"}`,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Trace search stages on stderr",
		},
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
