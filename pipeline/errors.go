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
	"errors"
	"fmt"

	"github.com/poiesic/indexit/core"
)

var (
	// ErrUnsupportedFormat indicates a source format no extractor handles.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtraction indicates the source text could not be read.
	ErrExtraction = errors.New("text extraction failed")

	// ErrEmptyDocument indicates the extracted text contains nothing to split.
	ErrEmptyDocument = errors.New("document has no content")

	// ErrUnresolvedSegments indicates the completion check found segments
	// that never finished embedding.
	ErrUnresolvedSegments = errors.New("document has unresolved segments")
)

// StageError wraps a stage-aborting failure with the stage name and the
// document it was processing. The orchestrator returns it after moving the
// document to the stage's failed status so the job runner can apply its own
// retry policy.
type StageError struct {
	Stage      core.Stage
	DocumentId core.ID
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed for document %d: %v", e.Stage, e.DocumentId, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
