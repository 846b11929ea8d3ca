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


// Package pipeline drives documents through the indexing stages: chunking,
// embedding, and optional entity extraction.
//
// Each stage is idempotent against already-advanced segments, so an
// external job runner may re-dispatch a stage after a crash without
// duplicating work. A stage-aborting failure parks the document in that
// stage's terminal failed status with the error recorded, then re-raises as
// a StageError for the dispatcher's retry policy.
package pipeline
