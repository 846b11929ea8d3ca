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


package badger

import "errors"

// Repositories bundles the repository set sharing one backend.
type Repositories struct {
	Backend     *Backend
	Documents   *DocumentRepo
	Segments    *SegmentRepo
	Embeddings  *EmbeddingRepo
	Checkpoints *CheckpointRepo
}

// OpenRepositories opens a backend at path and constructs the full
// repository set on it. Pass inMemory=true for an ephemeral store.
func OpenRepositories(path string, inMemory bool) (*Repositories, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	docs, err := NewDocumentRepo(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	segments, err := NewSegmentRepo(backend)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}
	embeddings, err := NewEmbeddingRepo(backend)
	if err != nil {
		segments.Close()
		docs.Close()
		backend.Close()
		return nil, err
	}

	return &Repositories{
		Backend:     backend,
		Documents:   docs,
		Segments:    segments,
		Embeddings:  embeddings,
		Checkpoints: NewCheckpointRepo(backend),
	}, nil
}

// Close releases the sequences and closes the backend.
func (r *Repositories) Close() error {
	errs := []error{
		r.Documents.Close(),
		r.Segments.Close(),
		r.Embeddings.Close(),
		r.Backend.Close(),
	}
	return errors.Join(errs...)
}
