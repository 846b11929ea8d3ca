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


package core

import (
	"fmt"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - IndexingStatus must be a known value
//
// NOT validated (populated by pipeline stages):
//   - EmbeddingModel / EmbeddingDimensions (set by the embedding stage)
//   - ProcessingMetadata (open-ended)
//   - ID (0 is valid from database sequences)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidDocument)
	}

	if _, ok := indexingStatusNames[doc.IndexingStatus]; !ok {
		return fmt.Errorf("%w: unknown indexing status %d", ErrInvalidDocument, doc.IndexingStatus)
	}

	return nil
}

// ValidateSegment validates a Segment according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Position must be 1-based
//   - SegmentType must be valid
//   - A child segment must carry a parent reference
//
// NOT validated (populated by pipeline stages):
//   - EmbeddingId (0 until the embedding stage runs)
//   - Keywords (empty until the NER stage runs)
//   - ID (0 is valid from database sequences)
func ValidateSegment(seg *Segment) error {
	if seg == nil {
		return fmt.Errorf("%w: segment is nil", ErrInvalidSegment)
	}

	if seg.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrEmptyContent)
	}

	if seg.Position < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrInvalidPosition)
	}

	if err := ValidateSegmentType(seg.SegmentType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, err)
	}

	if seg.SegmentType == SegmentTypeChild && seg.ParentId == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSegment, ErrMissingParent)
	}

	return nil
}

// ValidateEmbedding validates an Embedding according to domain rules.
func ValidateEmbedding(emb *Embedding) error {
	if emb == nil {
		return fmt.Errorf("%w: embedding is nil", ErrInvalidEmbedding)
	}

	if len(emb.Vector) == 0 {
		return fmt.Errorf("%w: vector cannot be empty", ErrInvalidEmbedding)
	}

	if emb.ModelName == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidEmbedding)
	}

	if emb.Hash == "" {
		return fmt.Errorf("%w: hash cannot be empty", ErrInvalidEmbedding)
	}

	return nil
}

// ValidateSegmentType validates that a SegmentType has a valid value.
func ValidateSegmentType(st SegmentType) error {
	if st != SegmentTypeChunk && st != SegmentTypeParent && st != SegmentTypeChild {
		return fmt.Errorf("%w: value %d", ErrInvalidSegmentType, st)
	}
	return nil
}
