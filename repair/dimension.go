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
	"log/slog"
	"time"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// Report summarizes one dimension repair pass.
type Report struct {
	DocumentId        core.ID
	MajorityDimension int

	// Dimensions maps each observed vector length to the number of
	// segments referencing an embedding of that length.
	Dimensions map[int]int

	// Detached is the number of minority segments whose embedding
	// reference was cleared for re-embedding.
	Detached int

	// Kept is the number of segments left on the majority dimension.
	Kept int
}

// Repaired reports whether the pass changed anything.
func (r *Report) Repaired() bool {
	return r.Detached > 0
}

// DimensionRepairer restores the one-dimension-per-document invariant.
// Segments referencing embeddings of a minority vector length are detached
// (status back to chunked, reference cleared) so the embedding stage can
// redo them; the embedding rows themselves are never deleted.
type DimensionRepairer struct {
	documents  storage.DocumentRepository
	segments   storage.SegmentRepository
	embeddings storage.EmbeddingRepository
	logger     *slog.Logger
}

// NewDimensionRepairer creates a repairer over the given repositories.
func NewDimensionRepairer(documents storage.DocumentRepository, segments storage.SegmentRepository, embeddings storage.EmbeddingRepository) *DimensionRepairer {
	return &DimensionRepairer{
		documents:  documents,
		segments:   segments,
		embeddings: embeddings,
		logger:     slog.Default().With("component", "dimension_repairer"),
	}
}

// Repair partitions the document's embedded segments by vector length,
// keeps the majority, and detaches the rest. A document already on a single
// dimension is returned unchanged.
func (r *DimensionRepairer) Repair(ctx context.Context, documentID core.ID) (*Report, error) {
	doc, err := r.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	segments, err := r.segments.GetSegmentsByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	report := &Report{
		DocumentId: documentID,
		Dimensions: make(map[int]int),
	}

	dimOf := make(map[core.ID]int)
	for _, segment := range segments {
		if segment.EmbeddingId == 0 {
			continue
		}
		emb, err := r.embeddings.GetEmbedding(ctx, segment.EmbeddingId)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", segment.Id, err)
		}
		dimOf[segment.Id] = emb.Dimensions()
		report.Dimensions[emb.Dimensions()]++
	}
	if len(report.Dimensions) == 0 {
		return nil, fmt.Errorf("%w: document %d", ErrNoEmbeddings, documentID)
	}

	report.MajorityDimension = r.majority(report.Dimensions, doc.EmbeddingDimensions)
	if len(report.Dimensions) == 1 {
		report.Kept = report.Dimensions[report.MajorityDimension]
		return report, nil
	}

	for _, segment := range segments {
		dim, ok := dimOf[segment.Id]
		if !ok {
			continue
		}
		if dim == report.MajorityDimension {
			report.Kept++
			continue
		}
		segment.EmbeddingId = 0
		segment.Status = core.SegmentChunked
		segment.CompletedAt = time.Time{}
		if _, err := r.segments.UpdateSegments(ctx, segment); err != nil {
			return nil, fmt.Errorf("detaching segment %d: %w", segment.Id, err)
		}
		report.Detached++
	}

	// Park the document where the embedding stage can pick it back up.
	doc.EmbeddingDimensions = report.MajorityDimension
	doc.IndexingStatus = core.IndexingChunked
	doc.LastError = ""
	if doc.ProcessingMetadata == nil {
		doc.ProcessingMetadata = make(map[string]string)
	}
	doc.ProcessingMetadata["dimension_repair_at"] = time.Now().UTC().Format(time.RFC3339)
	if _, err := r.documents.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	r.logger.Info("dimension repair complete",
		"document_id", documentID,
		"majority_dimension", report.MajorityDimension,
		"detached", report.Detached,
		"kept", report.Kept)
	return report, nil
}

// majority picks the dimension with the most segments. Ties prefer the
// document's recorded dimension, then the smaller value for determinism.
func (r *DimensionRepairer) majority(counts map[int]int, recorded int) int {
	best, bestCount := 0, -1
	for dim, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount = dim, count
		case count == bestCount:
			if dim == recorded || (best != recorded && dim < best) {
				best = dim
			}
		}
	}
	return best
}
