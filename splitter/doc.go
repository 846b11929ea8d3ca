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


// Package splitter turns raw document text into ordered chunks.
//
// Split is a pure function: given the same text and configuration it always
// produces the same chunk sequence, performs no I/O, and is safe for
// concurrent use. Several strategies are available (fixed-width character
// windows, recursive separator search, token estimation, sentence
// accumulation, markdown headings, python code boundaries, and
// paragraph-first smart chunking). Logographic scripts are detected
// automatically and routed to a variant that does not rely on spaces.
//
// BuildHierarchy layers two-granularity parent/child segmentation on top of
// Split for retrieval setups that match on small chunks but feed large ones
// to the model.
package splitter
