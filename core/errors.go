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
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidSegment indicates a Segment failed validation.
	ErrInvalidSegment = errors.New("invalid segment")

	// ErrInvalidEmbedding indicates an Embedding failed validation.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidPosition indicates a segment position that is not 1-based.
	ErrInvalidPosition = errors.New("segment position must be >= 1")

	// ErrInvalidSegmentType indicates an invalid SegmentType value.
	ErrInvalidSegmentType = errors.New("invalid segment type")

	// ErrMissingParent indicates a child segment with no parent reference.
	ErrMissingParent = errors.New("child segment requires a parent reference")

	// ErrInvalidTransition indicates an illegal document status transition.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DimensionMismatchError reports an attempt to introduce a second distinct
// embedding dimension into one document. Mixed dimensions silently corrupt
// similarity comparisons, so this fails fast instead.
type DimensionMismatchError struct {
	DocumentId ID
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch for document %d: document uses %d, got %d", e.DocumentId, e.Want, e.Got)
}

// IsDimensionMismatch reports whether err is a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var dme *DimensionMismatchError
	return errors.As(err, &dme)
}
