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

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// DefaultBatchSize is the default segment batch size for iteration.
const DefaultBatchSize = 100

// SegmentIterator walks a document's segments in position order, delivering
// them in batches. Parent segments are skipped; they carry context, not
// embeddings.
type SegmentIterator struct {
	repo      storage.SegmentRepository
	batchSize int
}

// NewSegmentIterator creates an iterator with the given batch size.
// Sizes <= 0 fall back to DefaultBatchSize.
func NewSegmentIterator(repo storage.SegmentRepository, batchSize int) *SegmentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SegmentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of the document's non-parent segments.
// Iteration stops on the first error from fn; context cancellation is
// checked between batches.
func (it *SegmentIterator) ForEach(ctx context.Context, documentID core.ID, fn func([]*core.Segment) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	all, err := it.repo.GetSegmentsByDocument(ctx, documentID)
	if err != nil {
		return err
	}

	var segments []*core.Segment
	for _, segment := range all {
		if segment.SegmentType != core.SegmentTypeParent {
			segments = append(segments, segment)
		}
	}
	if len(segments) == 0 {
		return nil
	}

	for i := 0; i < len(segments); i += it.batchSize {
		end := i + it.batchSize
		if end > len(segments) {
			end = len(segments)
		}
		if err := fn(segments[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

// Count returns the number of segments ForEach would deliver.
func (it *SegmentIterator) Count(ctx context.Context, documentID core.ID) (int, error) {
	all, err := it.repo.GetSegmentsByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, segment := range all {
		if segment.SegmentType != core.SegmentTypeParent {
			n++
		}
	}
	return n, nil
}
