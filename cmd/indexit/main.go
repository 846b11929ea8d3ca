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
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/indexit"
	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/entities"
	"github.com/poiesic/indexit/pipeline"
	"github.com/poiesic/indexit/repair"
	"github.com/poiesic/indexit/splitter"
)

func main() {
	app := &cli.App{
		Name:  "indexit",
		Usage: "Document indexing pipeline over embedded storage",
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
				Name:      "index",
				Usage:     "Index a document file through chunking, embedding, and tagging",
				ArgsUsage: "<file>",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:  "dataset-id",
						Usage: "Dataset the document belongs to",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Logical embedding model name",
					},
					&cli.StringFlag{
						Name:  "strategy",
						Usage: "Splitting strategy (character, recursive_character, token, sentence, markdown, python_code, smart_chunking)",
						Value: string(splitter.StrategySmart),
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Target chunk size in characters",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Overlap between adjacent chunks in characters",
						Value: 0,
					},
					&cli.BoolFlag{
						Name:  "hierarchical",
						Usage: "Build parent context segments around the chunks",
					},
					&cli.IntFlag{
						Name:  "parent-chunk-size",
						Usage: "Parent segment size for hierarchical chunking",
						Value: 3000,
					},
					&cli.BoolFlag{
						Name:  "ner",
						Usage: "Tag segments with extracted entities after embedding",
					},
					&cli.StringFlag{
						Name:  "tagger-host",
						Usage: "Tagger service host URL (defaults to embedding-host)",
					},
					&cli.StringFlag{
						Name:  "tagger-model",
						Usage: "Tagger model name for entity extraction",
					},
				},
			},
			{
				Name:   "resume",
				Usage:  "Re-dispatch a pipeline stage for a stored document",
				Action: resumeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "document-id",
						Usage:    "Document to resume",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "stage",
						Usage: "Stage to dispatch (chunking, embedding, ner)",
						Value: string(core.StageEmbedding),
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Logical embedding model name",
					},
				},
			},
			{
				Name:   "repair-dimensions",
				Usage:  "Detach minority-dimension embeddings so a document can re-embed cleanly",
				Action: repairDimensionsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "document-id",
						Usage:    "Document to repair",
						Required: true,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed all segments of a document with a new model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "document-id",
						Usage:    "Document to re-embed",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Logical embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of segments to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N segments",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func indexCommand(c *cli.Context) error {
	ctx := context.Background()

	source := c.Args().First()
	if source == "" {
		return fmt.Errorf("a file to index is required")
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("cannot read %s: %w", source, err)
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	splitCfg := splitter.Config{
		Strategy:     splitter.Strategy(c.String("strategy")),
		ChunkSize:    c.Int("chunk-size"),
		ChunkOverlap: c.Int("chunk-overlap"),
	}
	if err := splitCfg.Validate(); err != nil {
		return fmt.Errorf("invalid split configuration: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithSplitConfig(splitCfg),
	}
	if c.Bool("hierarchical") {
		parentCfg := splitCfg
		parentCfg.ChunkSize = c.Int("parent-chunk-size")
		if err := parentCfg.Validate(); err != nil {
			return fmt.Errorf("invalid parent split configuration: %w", err)
		}
		opts = append(opts, pipeline.WithHierarchy(parentCfg))
	}
	if c.Bool("ner") {
		extractor := entities.New(entities.WithTagger(db.Provider().EntityTagger()))
		opts = append(opts, pipeline.WithEntityExtraction(extractor, entities.Config{}))
	}

	// The dispatcher and orchestrator reference each other, so wire the
	// orchestrator in after construction.
	dispatcher := &pipeline.SyncDispatcher{}
	opts = append(opts, pipeline.WithDispatcher(dispatcher))
	orch := db.NewPipeline(opts...)
	dispatcher.Orchestrator = orch

	doc, err := db.DocumentRepository().AddDocument(ctx, &core.Document{
		DatasetId:      core.ID(c.Uint64("dataset-id")),
		Name:           source,
		SourceRef:      source,
		IndexingStatus: core.IndexingWaiting,
	})
	if err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Document: %s (id %d)\n", source, doc.Id)
	fmt.Fprintln(os.Stderr)

	if err := orch.RunChunking(ctx, doc.Id); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	final, err := db.DocumentRepository().GetDocument(ctx, doc.Id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Document %d finished with status %s\n", final.Id, final.IndexingStatus)
	if final.IndexingStatus != core.IndexingCompleted {
		return fmt.Errorf("document %d did not complete: %s", final.Id, final.LastError)
	}
	return nil
}

func resumeCommand(c *cli.Context) error {
	ctx := context.Background()

	stage, err := parseStage(c.String("stage"))
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	dispatcher := &pipeline.SyncDispatcher{}
	orch := db.NewPipeline(pipeline.WithDispatcher(dispatcher))
	dispatcher.Orchestrator = orch

	documentID := core.ID(c.Uint64("document-id"))
	if err := dispatcher.Dispatch(ctx, stage, documentID); err != nil {
		return fmt.Errorf("resume failed: %w", err)
	}

	final, err := db.DocumentRepository().GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Document %d finished with status %s\n", final.Id, final.IndexingStatus)
	return nil
}

func repairDimensionsCommand(c *cli.Context) error {
	ctx := context.Background()

	// Repair only rewrites stored records, so the default provider config
	// is fine; no AI service is contacted.
	db, err := indexit.NewDatabase(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repairer := db.NewDimensionRepairer()
	report, err := repairer.Repair(ctx, core.ID(c.Uint64("document-id")))
	if err != nil {
		return fmt.Errorf("dimension repair failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Document %d dimensions: %v\n", report.DocumentId, report.Dimensions)
	fmt.Fprintf(os.Stderr, "Majority dimension: %d\n", report.MajorityDimension)
	if report.Repaired() {
		fmt.Fprintf(os.Stderr, "Detached %d segment(s); %d kept. Re-run embedding to restore them.\n",
			report.Detached, report.Kept)
	} else {
		fmt.Fprintln(os.Stderr, "All embeddings share one dimension; nothing to repair.")
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	config := &repair.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder := db.NewReembedder(config, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx, core.ID(c.Uint64("document-id"))); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

// openDatabase builds a Database from the command's AI flags. Model flags
// left empty fall back to the config defaults.
func openDatabase(c *cli.Context) (*indexit.Database, error) {
	configOpts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.String("embedding-host")),
	}
	if model := c.String("embedding-model"); model != "" {
		configOpts = append(configOpts, ai.WithEmbeddingModel(model))
	}
	if c.IsSet("tagger-host") && c.String("tagger-host") != "" {
		configOpts = append(configOpts, ai.WithTaggerHost(c.String("tagger-host")))
	} else {
		configOpts = append(configOpts, ai.WithTaggerHost(c.String("embedding-host")))
	}
	if c.IsSet("tagger-model") && c.String("tagger-model") != "" {
		configOpts = append(configOpts, ai.WithTaggerModel(c.String("tagger-model")))
	}

	aiConfig := ai.NewConfig(configOpts...)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := indexit.NewDatabase(c.String("db"), indexit.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseStage(s string) (core.Stage, error) {
	switch strings.ToLower(s) {
	case string(core.StageChunking):
		return core.StageChunking, nil
	case string(core.StageEmbedding):
		return core.StageEmbedding, nil
	case string(core.StageNER):
		return core.StageNER, nil
	}
	return "", fmt.Errorf("invalid stage %q: must be one of chunking, embedding, ner", s)
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
