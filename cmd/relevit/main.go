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
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/relevit"
	"github.com/poiesic/relevit/ai"
	"github.com/poiesic/relevit/core"
	"github.com/poiesic/relevit/reembed"
	"github.com/poiesic/relevit/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "relevit",
		Usage: "Hybrid document retrieval over a local index store",
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
				Name:      "ingest",
				Usage:     "Ingest documents into the index",
				ArgsUsage: "FILE [FILE...]",
				Action:    ingestCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Source format tag recorded on the document",
						Value: "markdown",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Document name (defaults to the file name)",
					},
					&cli.StringSliceFlag{
						Name:  "meta",
						Usage: "Metadata to attach, as key=value (repeatable)",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Target chunk length in characters",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared between consecutive chunks",
						Value: 200,
					},
				}, embeddingFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Search the index",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Retrieval mode (semantic, keyword, hybrid)",
						Value:   "hybrid",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.Float64Flag{
						Name:  "semantic-weight",
						Usage: "Fusion weight of the semantic leg",
						Value: 0.7,
					},
					&cli.Float64Flag{
						Name:  "keyword-weight",
						Usage: "Fusion weight of the keyword leg",
						Value: 0.3,
					},
				}, embeddingFlags()...),
			},
			{
				Name:   "similar",
				Usage:  "Find content similar to a stored document",
				Action: similarCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Source document ID",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
				}, embeddingFlags()...),
			},
			{
				Name:      "suggest",
				Usage:     "Suggest indexed keywords for a prefix",
				ArgsUsage: "PREFIX",
				Action:    suggestCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of suggestions",
						Value:   10,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show corpus counts",
				Action: statsCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
			{
				Name:   "delete",
				Usage:  "Delete a document and its index entries",
				Action: deleteCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.Uint64Flag{
						Name:     "id",
						Usage:    "Document ID to delete",
						Required: true,
					},
				},
			},
			{
				Name:   "cache-evict",
				Usage:  "Evict cached query results past the retention window",
				Action: cacheEvictCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.DurationFlag{
						Name:  "retention",
						Usage: "Evict entries unused for longer than this",
						Value: time.Hour,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all stored chunks with current embeddings",
				Action: reembedCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-attempts",
						Usage: "Maximum embedding attempts per batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				}, embeddingFlags()...),
			},
		},
	}
}

func dbFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to the index store directory",
		Required: true,
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "api-key",
			Usage: "Bearer token for the embedding service",
			Value: "none",
		},
		&cli.BoolFlag{
			Name:  "local",
			Usage: "Embed with the deterministic local provider only",
		},
	}
}

// openEngine builds an engine from the command's flags. Commands without
// embedding flags never reach a provider and should use openLocalEngine.
func openEngine(c *cli.Context, opts ...relevit.Option) (*relevit.Engine, error) {
	if c.Bool("local") {
		opts = append(opts, relevit.WithLocalEmbeddingOnly())
	} else {
		opts = append(opts, relevit.WithAIConfig(ai.NewConfig(
			ai.WithHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithAPIKey(c.String("api-key")),
		)))
	}
	return relevit.NewEngine(c.String("db"), opts...)
}

// openLocalEngine builds an engine for commands that only touch the store.
func openLocalEngine(c *cli.Context, opts ...relevit.Option) (*relevit.Engine, error) {
	opts = append(opts, relevit.WithLocalEmbeddingOnly())
	return relevit.NewEngine(c.String("db"), opts...)
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("at least one file to ingest is required")
	}

	metadata, err := parseMetadata(c.StringSlice("meta"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c,
		relevit.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
	)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	for _, path := range c.Args().Slice() {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		name := c.String("name")
		if name == "" {
			name = filepath.Base(path)
		}

		doc, err := engine.Ingest(ctx, name, c.String("format"), metadata, string(text))
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		fmt.Printf("Ingested %s: document %d, %d chunks (%s)\n", path, doc.Id, doc.ChunkCount, doc.Status)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("a query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	mode, err := core.ParseSearchMode(c.String("mode"))
	if err != nil {
		return err
	}

	engine, err := openEngine(c,
		relevit.WithWeights(c.Float64("semantic-weight"), c.Float64("keyword-weight")),
		relevit.WithSearchMonitor(&slogMonitor{logger: slog.Default()}),
	)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	results, err := engine.Search(ctx, query, mode, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printResults(results)
	return nil
}

func similarCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	results, err := engine.SimilarDocuments(ctx, core.ID(c.Uint64("id")), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("similar lookup failed: %w", err)
	}

	printResults(results)
	return nil
}

func suggestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("a prefix is required")
	}

	engine, err := openLocalEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	suggestions, err := engine.Suggest(ctx, c.Args().First(), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}

	for _, suggestion := range suggestions {
		fmt.Println(suggestion)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openLocalEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	stats, err := engine.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	fmt.Printf("Documents:      %d\n", stats.Documents)
	fmt.Printf("Chunks:         %d\n", stats.Chunks)
	fmt.Printf("Cached queries: %d\n", stats.CacheEntries)
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openLocalEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	id := core.ID(c.Uint64("id"))
	if err := engine.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}

	fmt.Printf("Deleted document %d\n", id)
	return nil
}

func cacheEvictCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openLocalEngine(c,
		relevit.WithCacheRetention(c.Duration("retention")),
	)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	evicted, err := engine.EvictExpiredCache(ctx)
	if err != nil {
		return fmt.Errorf("cache eviction failed: %w", err)
	}

	fmt.Printf("Evicted %d cached queries\n", evicted)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxAttempts:    c.Int("max-attempts"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxAttempts <= 0 {
		return fmt.Errorf("max-attempts must be greater than 0")
	}

	engine, err := openEngine(c)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Index store: %s\n", c.String("db"))
	if !c.Bool("local") {
		fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
		fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	}
	fmt.Fprintln(os.Stderr)

	if err := engine.NewReembedder(reembedConfig, os.Stderr).Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func printResults(results []core.ScoredResult) {
	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (doc %d, chunk %d) [%0.3f]\n", i+1, hit.Context, hit.DocumentID, hit.ChunkID, hit.FusedScore)
		if len(hit.MatchedKeywords) > 0 {
			fmt.Printf("   matched: %s\n", strings.Join(hit.MatchedKeywords, ", "))
		}
	}
}

func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: want key=value", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// slogMonitor reports search stages through the structured logger.
type slogMonitor struct {
	logger *slog.Logger
}

var _ search.Monitor = (*slogMonitor)(nil)

func (m *slogMonitor) Start(query string, mode core.SearchMode) {
	m.logger.Debug("search started", "query", query, "mode", mode.String())
}

func (m *slogMonitor) CacheHit(fingerprint core.ID) {
	m.logger.Debug("cache hit", "fingerprint", fingerprint)
}

func (m *slogMonitor) CacheMiss(fingerprint core.ID) {
	m.logger.Debug("cache miss", "fingerprint", fingerprint)
}

func (m *slogMonitor) SemanticCandidates(count int) {
	m.logger.Debug("semantic candidates", "count", count)
}

func (m *slogMonitor) KeywordCandidates(count int) {
	m.logger.Debug("keyword candidates", "count", count)
}

func (m *slogMonitor) LegDegraded(leg string, err error) {
	m.logger.Warn("retrieval leg degraded", "leg", leg, "err", err)
}

func (m *slogMonitor) Finish(results []core.ScoredResult, elapsed time.Duration) {
	m.logger.Debug("search finished", "results", len(results), "elapsed", elapsed)
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
