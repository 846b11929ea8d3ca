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


package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
	"github.com/poiesic/indexit/workerpool"
)

const (
	// DefaultBatchSize is the number of segments submitted together.
	DefaultBatchSize = 5

	// localConcurrency bounds the fallback path used when no worker pool
	// is attached.
	localConcurrency = 4
)

// ProcessResult summarizes one embedding pass over a document's segments.
type ProcessResult struct {
	// ProcessedCount is the number of segments advanced to embedded.
	ProcessedCount int

	// FailedCount is the number of segments left unadvanced for the next
	// resume.
	FailedCount int

	// EmbeddingDimensions is the vector length observed on the first
	// successful embedding, or the document's recorded value when it was
	// already set.
	EmbeddingDimensions int
}

// EmbeddingOrchestrator embeds pending segments and attaches the resulting
// Embedding records. Already-embedded segments are skipped, so a pass can be
// repeated safely after a partial failure.
type EmbeddingOrchestrator struct {
	embedder     ai.Embedder
	mapping      *ai.ModelMapping
	providerName string
	model        string // logical name, resolved through the mapping
	segments     storage.SegmentRepository
	embeddings   storage.EmbeddingRepository
	pool         *workerpool.Pool
	batchSize    int
	logger       *slog.Logger
}

// EmbeddingOption is a functional option for the EmbeddingOrchestrator.
type EmbeddingOption func(*EmbeddingOrchestrator)

// WithPool routes embedding work through a shared worker pool instead of
// the bounded local fallback.
func WithPool(pool *workerpool.Pool) EmbeddingOption {
	return func(o *EmbeddingOrchestrator) {
		o.pool = pool
	}
}

// WithBatchSize overrides the batch size. Values < 1 keep the default.
func WithBatchSize(n int) EmbeddingOption {
	return func(o *EmbeddingOrchestrator) {
		if n >= 1 {
			o.batchSize = n
		}
	}
}

// WithEmbeddingLogger overrides the default logger.
func WithEmbeddingLogger(logger *slog.Logger) EmbeddingOption {
	return func(o *EmbeddingOrchestrator) {
		o.logger = logger
	}
}

// NewEmbeddingOrchestrator wires an embedder and repositories into an
// orchestrator for the given provider and logical model name.
func NewEmbeddingOrchestrator(
	embedder ai.Embedder,
	mapping *ai.ModelMapping,
	providerName, model string,
	segments storage.SegmentRepository,
	embeddings storage.EmbeddingRepository,
	opts ...EmbeddingOption,
) *EmbeddingOrchestrator {
	o := &EmbeddingOrchestrator{
		embedder:     embedder,
		mapping:      mapping,
		providerName: providerName,
		model:        model,
		segments:     segments,
		embeddings:   embeddings,
		batchSize:    DefaultBatchSize,
		logger:       slog.Default().With("component", "embedding_orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Model returns the logical model name this orchestrator embeds with.
func (o *EmbeddingOrchestrator) Model() string {
	return o.model
}

// ProcessSegments embeds every segment still waiting for an embedding and
// attaches deduplicated Embedding records. One failed segment does not abort
// its batch; it is logged and left for the next resume. A second distinct
// vector dimension within the document aborts the pass with
// core.DimensionMismatchError.
func (o *EmbeddingOrchestrator) ProcessSegments(ctx context.Context, doc *core.Document, segments []*core.Segment) (ProcessResult, error) {
	result := ProcessResult{EmbeddingDimensions: doc.EmbeddingDimensions}

	var pending []*core.Segment
	for _, segment := range segments {
		if segment.Status.NeedsEmbedding() && segment.SegmentType != core.SegmentTypeParent {
			pending = append(pending, segment)
		}
	}
	if len(pending) == 0 {
		return result, nil
	}

	concreteModel := o.mapping.Resolve(o.providerName, o.model)
	byID := make(map[core.ID]*core.Segment, len(pending))
	for _, segment := range pending {
		byID[segment.Id] = segment
	}

	for start := 0; start < len(pending); start += o.batchSize {
		end := start + o.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		for _, res := range o.embedBatch(ctx, batch, concreteModel) {
			segment := byID[res.ID]
			if res.Err != nil {
				result.FailedCount++
				o.logger.Warn("segment embedding failed",
					"document_id", doc.Id, "segment_id", res.ID, "error", res.Err)
				continue
			}
			if result.EmbeddingDimensions == 0 {
				result.EmbeddingDimensions = res.Dimensions
			} else if res.Dimensions != result.EmbeddingDimensions {
				return result, &core.DimensionMismatchError{
					DocumentId: doc.Id,
					Want:       result.EmbeddingDimensions,
					Got:        res.Dimensions,
				}
			}
			if err := o.attach(ctx, segment, res.Embedding, concreteModel); err != nil {
				result.FailedCount++
				o.logger.Warn("attaching embedding failed",
					"document_id", doc.Id, "segment_id", res.ID, "error", err)
				continue
			}
			result.ProcessedCount++
		}
	}
	return result, nil
}

// attach looks up or creates the Embedding row for the segment's content and
// advances the segment to embedded.
func (o *EmbeddingOrchestrator) attach(ctx context.Context, segment *core.Segment, vector []float32, concreteModel string) error {
	emb, err := o.embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
		ModelName:    concreteModel,
		ProviderName: o.providerName,
		Hash:         core.EmbeddingHash(segment.Content, concreteModel),
		Vector:       vector,
	})
	if err != nil {
		return err
	}
	segment.Status = core.SegmentEmbedded
	segment.EmbeddingId = emb.Id
	segment.CompletedAt = time.Now().UTC()
	_, err = o.segments.UpdateSegments(ctx, segment)
	return err
}

func (o *EmbeddingOrchestrator) embedBatch(ctx context.Context, batch []*core.Segment, concreteModel string) []workerpool.Result {
	tasks := make([]workerpool.Task, len(batch))
	for i, segment := range batch {
		tasks[i] = workerpool.Task{
			ID:       segment.Id,
			Text:     segment.Content,
			Model:    o.model,
			Provider: o.providerName,
		}
	}

	embed := func(ctx context.Context, task workerpool.Task) ([]float32, error) {
		return o.embedder.EmbedText(ctx, task.Text)
	}

	if o.pool != nil {
		return o.pool.Process(ctx, tasks, embed)
	}
	return o.embedLocal(ctx, tasks, embed)
}

// embedLocal runs a batch with bounded concurrency when no pool is attached.
func (o *EmbeddingOrchestrator) embedLocal(ctx context.Context, tasks []workerpool.Task, embed workerpool.EmbedFunc) []workerpool.Result {
	results := make([]workerpool.Result, len(tasks))
	sem := make(chan struct{}, localConcurrency)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, task workerpool.Task) {
			defer wg.Done()
			defer func() { <-sem }()
			vector, err := embed(ctx, task)
			results[i] = workerpool.Result{
				ID:         task.ID,
				Embedding:  vector,
				Dimensions: len(vector),
				Model:      task.Model,
				Err:        err,
			}
		}(i, task)
	}
	wg.Wait()
	return results
}
