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


package indexit

import (
	"io"
	"log/slog"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/ai/mock"
	"github.com/poiesic/indexit/ai/openai"
	"github.com/poiesic/indexit/pipeline"
	"github.com/poiesic/indexit/repair"
	"github.com/poiesic/indexit/storage"
	"github.com/poiesic/indexit/storage/badger"
	"github.com/poiesic/indexit/workerpool"
)

// Database bundles the storage backend, the AI provider, and the shared
// worker pool, and hands out wired pipeline components.
type Database struct {
	repos    *badger.Repositories
	provider ai.Provider
	mapping  *ai.ModelMapping
	pool     *workerpool.Pool
	aiConfig *ai.Config
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	mapping     *ai.ModelMapping
	inMemory    bool
	useMock     bool
	poolOptions []workerpool.Option
}

// WithAIConfig supplies provider hosts and model names.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithModelMapping overrides the default logical-to-concrete model table.
func WithModelMapping(mapping *ai.ModelMapping) DatabaseOption {
	return func(o *databaseOptions) {
		o.mapping = mapping
	}
}

// WithInMemory opens an ephemeral store, for tests and dry runs.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithMockProvider swaps the AI provider for the deterministic mock.
func WithMockProvider() DatabaseOption {
	return func(o *databaseOptions) {
		o.useMock = true
	}
}

// WithPoolOptions configures the shared embedding worker pool.
func WithPoolOptions(opts ...workerpool.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.poolOptions = opts
	}
}

// NewDatabase opens the store at filePath and wires up the provider and
// worker pool.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		mapping:  ai.DefaultModelMapping(),
	}
	for _, opt := range opts {
		opt(options)
	}

	repos, err := badger.OpenRepositories(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	var provider ai.Provider
	if options.useMock {
		provider = mock.NewMockProvider()
	} else {
		provider, err = openai.NewProvider(options.aiConfig, options.mapping)
		if err != nil {
			repos.Close()
			return nil, err
		}
	}

	pool, err := workerpool.New(options.poolOptions...)
	if err != nil {
		provider.Close()
		repos.Close()
		return nil, err
	}

	return &Database{
		repos:    repos,
		provider: provider,
		mapping:  options.mapping,
		pool:     pool,
		aiConfig: options.aiConfig,
		logger:   slog.Default(),
	}, nil
}

// Close shuts the worker pool, the provider, and the storage backend down.
func (db *Database) Close() error {
	db.pool.Close()
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	return db.repos.Close()
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.repos.Documents
}

func (db *Database) SegmentRepository() storage.SegmentRepository {
	return db.repos.Segments
}

func (db *Database) EmbeddingRepository() storage.EmbeddingRepository {
	return db.repos.Embeddings
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.repos.Checkpoints
}

func (db *Database) Provider() ai.Provider {
	return db.provider
}

// NewPipeline builds a pipeline orchestrator over this database. The
// embedding stage runs on the shared worker pool and stage checkpoints are
// recorded; callers add split configuration, NER, dispatch, and
// notification through opts.
func (db *Database) NewPipeline(opts ...pipeline.Option) *pipeline.Orchestrator {
	embedding := pipeline.NewEmbeddingOrchestrator(
		db.provider.Embedder(),
		db.mapping,
		db.provider.Name(),
		db.aiConfig.EmbeddingModel,
		db.repos.Segments,
		db.repos.Embeddings,
		pipeline.WithPool(db.pool),
	)
	defaults := []pipeline.Option{
		pipeline.WithCheckpoints(db.repos.Checkpoints),
	}
	return pipeline.New(db.repos.Documents, db.repos.Segments, embedding, append(defaults, opts...)...)
}

// NewDimensionRepairer builds a repairer for the one-dimension-per-document
// invariant.
func (db *Database) NewDimensionRepairer() *repair.DimensionRepairer {
	return repair.NewDimensionRepairer(db.repos.Documents, db.repos.Segments, db.repos.Embeddings)
}

// NewReembedder builds a re-embedder targeting this database's provider and
// configured embedding model.
func (db *Database) NewReembedder(config *repair.Config, progress io.Writer) *repair.Reembedder {
	return repair.NewReembedder(
		db.repos.Documents,
		db.repos.Segments,
		db.repos.Embeddings,
		db.provider.Embedder(),
		db.mapping,
		db.provider.Name(),
		db.aiConfig.EmbeddingModel,
		config,
		progress,
	)
}
