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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/docrag"
	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/catalog"
	"github.com/poiesic/docrag/fetch"
	"github.com/poiesic/docrag/fetch/web"
	"github.com/poiesic/docrag/ingest"
	"github.com/poiesic/docrag/search"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docrag",
		Usage: "Documentation ingestion and retrieval for RAG pipelines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "crawl",
				Usage:  "Fetch, chunk, enrich and store a documentation catalog",
				Action: crawlCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "catalog",
						Aliases: []string{"c"},
						Usage:   "Path to a TOML source catalog (default: built-in Tiled manual)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Maximum simultaneous page fetches",
						Value: fetch.DefaultConcurrency,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Target chunk size in bytes",
						Value: 4000,
					},
					&cli.DurationFlag{
						Name:  "launch-interval",
						Usage: "Minimum spacing between fetch launches",
						Value: fetch.DefaultLaunchInterval,
					},
					&cli.DurationFlag{
						Name:  "request-timeout",
						Usage: "Timeout for a single page fetch",
						Value: fetch.DefaultRequestTimeout,
					},
					&cli.DurationFlag{
						Name:  "extraction-delay",
						Usage: "Minimum spacing between metadata-extraction calls",
						Value: ingest.DefaultExtractionDelay,
					},
					&cli.DurationFlag{
						Name:  "chunk-delay",
						Usage: "Minimum spacing between successive chunk enrichments",
						Value: ingest.DefaultChunkDelay,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Query stored documentation chunks by similarity",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(aiFlags(),
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 5,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score in [0,1]",
						Value: search.DefaultMinSimilarity,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Show stored chunk counts per page",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// aiFlags are the remote-service flags shared by crawl and search.
func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible API host for embeddings and completions",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-small",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name for metadata extraction",
			Value: "gpt-4o-mini",
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "API credential (\"none\" for unauthenticated services)",
			Value:   "none",
			EnvVars: []string{"DOCRAG_API_TOKEN"},
		},
		&cli.IntFlag{
			Name:  "dimensions",
			Usage: "Embedding vector dimensionality",
			Value: 1536,
		},
	}
}

func buildAIConfig(c *cli.Context) (*ai.Config, error) {
	cfg := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithToken(c.String("token")),
		ai.WithEmbeddingDimensions(c.Int("dimensions")),
	)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func crawlCommand(c *cli.Context) error {
	// Interrupt stops launching new fetches; in-flight work drains.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := buildAIConfig(c)
	if err != nil {
		return err
	}

	var cat *catalog.Catalog
	if path := c.String("catalog"); path != "" {
		cat, err = catalog.Load(path)
		if err != nil {
			return err
		}
	} else {
		cat = catalog.Default()
	}
	urls := cat.URLs()

	db, err := docrag.NewDatabase(c.String("db"), docrag.WithAIConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	fetcher := web.NewPageFetcher()
	scheduler, err := fetch.NewScheduler(fetcher,
		fetch.WithConcurrency(c.Int("concurrency")),
		fetch.WithLaunchInterval(c.Duration("launch-interval")),
		fetch.WithRequestTimeout(c.Duration("request-timeout")),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	defer scheduler.Release()

	pipeline, err := db.NewIngestionPipeline(scheduler,
		[]ingest.EnricherOption{
			ingest.WithExtractionDelay(c.Duration("extraction-delay")),
			ingest.WithChunkDelay(c.Duration("chunk-delay")),
		},
		ingest.WithTargetChunkSize(c.Int("chunk-size")),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Catalog:  %s (%d pages)\n", cat.BaseURL, len(urls))
	fmt.Fprintln(os.Stderr)

	start := time.Now()
	run := pipeline.Run(ctx, urls)

	fmt.Fprintln(os.Stderr, "\nCrawling Summary:")
	fmt.Fprintf(os.Stderr, "  - Successfully ingested: %d\n", run.SuccessCount)
	fmt.Fprintf(os.Stderr, "  - Failed: %d\n", run.FailCount)
	fmt.Fprintf(os.Stderr, "  - Chunks stored: %d\n", run.ChunksStored)
	fmt.Fprintf(os.Stderr, "  - Elapsed: %s\n", time.Since(start).Round(time.Second))

	if len(run.PerURLErrors) > 0 {
		fmt.Fprintln(os.Stderr, "\nFailures:")
		for url, urlErr := range run.PerURLErrors {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", url, urlErr)
		}
	}

	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a search query is required")
	}

	cfg, err := buildAIConfig(c)
	if err != nil {
		return err
	}

	db, err := docrag.NewDatabase(c.String("db"), docrag.WithAIConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	searcher, err := db.NewSearcher(
		search.WithMinSimilarity(float32(c.Float64("threshold"))),
	)
	if err != nil {
		return err
	}

	results, err := searcher.FindSimilar(context.Background(), query, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No matching documentation found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s (score %.3f)\n", i+1, r.Chunk.Title, r.Score)
		fmt.Printf("   %s (chunk %d)\n", r.Chunk.URL, r.Chunk.Index)
		if r.Chunk.Summary != "" {
			fmt.Printf("   %s\n", r.Chunk.Summary)
		}
		fmt.Println()
	}

	return nil
}

func statsCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewChunkRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	counts, err := repo.CountsByURL(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if len(counts) == 0 {
		fmt.Println("No chunks stored.")
		return nil
	}

	urls := make([]string, 0, len(counts))
	total := 0
	for url, n := range counts {
		urls = append(urls, url)
		total += n
	}
	sort.Strings(urls)

	for _, url := range urls {
		fmt.Printf("%6d  %s\n", counts[url], url)
	}
	fmt.Printf("\n%6d  chunks across %d pages\n", total, len(urls))

	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
