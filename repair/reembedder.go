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


package repair

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// Config holds configuration for a re-embedding run.
type Config struct {
	// BatchSize is the number of segments embedded per provider call.
	BatchSize int

	// ReportInterval is how often to report progress, in segments.
	ReportInterval int

	// MaxRetries is the maximum number of attempts per provider call.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder replaces every embedding of a document with vectors from the
// configured model. Vectors are unit-normalized before storage so dot
// products compare as cosine similarity.
type Reembedder struct {
	documents  storage.DocumentRepository
	segments   storage.SegmentRepository
	embeddings storage.EmbeddingRepository
	embedder   ai.Embedder
	mapping    *ai.ModelMapping

	providerName string
	model        string // logical name

	config   *Config
	progress io.Writer
	iterator *SegmentIterator
}

// NewReembedder creates a re-embedder for the given provider and logical
// model. progress is where run output goes, typically os.Stderr.
func NewReembedder(
	documents storage.DocumentRepository,
	segments storage.SegmentRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	mapping *ai.ModelMapping,
	providerName, model string,
	config *Config,
	progress io.Writer,
) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	return &Reembedder{
		documents:    documents,
		segments:     segments,
		embeddings:   embeddings,
		embedder:     embedder,
		mapping:      mapping,
		providerName: providerName,
		model:        model,
		config:       config,
		progress:     progress,
		iterator:     NewSegmentIterator(segments, config.BatchSize),
	}
}

// Run re-embeds all of the document's segments, including ones that already
// carry a vector, and records the new model and dimension on the document.
func (r *Reembedder) Run(ctx context.Context, documentID core.ID) error {
	doc, err := r.documents.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	total, err := r.iterator.Count(ctx, documentID)
	if err != nil {
		return fmt.Errorf("counting segments: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "Document %d has no segments to re-embed\n", documentID)
		return nil
	}

	concreteModel := r.mapping.Resolve(r.providerName, r.model)
	fmt.Fprintf(r.progress, "Re-embedding %d segments with %s (batch size: %d)\n",
		total, concreteModel, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	dimensions := 0
	processed := 0
	err = r.iterator.ForEach(ctx, documentID, func(batch []*core.Segment) error {
		dim, err := r.processBatch(ctx, batch, concreteModel)
		if err != nil {
			return err
		}
		if dimensions == 0 {
			dimensions = dim
		} else if dim != 0 && dim != dimensions {
			return &core.DimensionMismatchError{DocumentId: documentID, Want: dimensions, Got: dim}
		}
		processed += len(batch)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}
	tracker.Finish()

	doc.EmbeddingModel = r.model
	doc.EmbeddingDimensions = dimensions
	if _, err := r.documents.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("recording new model on document: %w", err)
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-embedding complete. Processed %d segments in %v (%.1f segments/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())
	return nil
}

// processBatch embeds one batch and rewires each segment to its new
// Embedding row. Returns the vector dimension observed.
func (r *Reembedder) processBatch(ctx context.Context, batch []*core.Segment, concreteModel string) (int, error) {
	texts := make([]string, len(batch))
	for i, segment := range batch {
		texts[i] = segment.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("embedding batch after %d attempts: %w", r.config.MaxRetries, err)
	}
	if len(vectors) != len(batch) {
		return 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
	}

	dimensions := 0
	now := time.Now().UTC()
	for i, segment := range batch {
		vector := NormalizeVector(vectors[i])
		if dimensions == 0 {
			dimensions = len(vector)
		}
		emb, err := r.embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
			ModelName:    concreteModel,
			ProviderName: r.providerName,
			Hash:         core.EmbeddingHash(segment.Content, concreteModel),
			Vector:       vector,
		})
		if err != nil {
			return dimensions, fmt.Errorf("segment %d: %w", segment.Id, err)
		}
		segment.EmbeddingId = emb.Id
		if segment.Status.NeedsEmbedding() {
			segment.Status = core.SegmentEmbedded
		}
		segment.CompletedAt = now
	}
	if _, err := r.segments.UpdateSegments(ctx, batch...); err != nil {
		return dimensions, fmt.Errorf("updating segments: %w", err)
	}
	return dimensions, nil
}
