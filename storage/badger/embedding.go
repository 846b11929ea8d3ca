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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// EmbeddingRepo implements storage.EmbeddingRepository backed by BadgerDB.
// Embeddings are immutable and deduplicated by content+model hash.
type EmbeddingRepo struct {
	backend *Backend
	seq     *badger.Sequence
	logger  *slog.Logger
}

var _ storage.EmbeddingRepository = (*EmbeddingRepo)(nil)

// NewEmbeddingRepo creates an embedding repository on the given backend.
func NewEmbeddingRepo(backend *Backend) (*EmbeddingRepo, error) {
	seq, err := backend.GetSequence(embeddingSeq)
	if err != nil {
		return nil, fmt.Errorf("embedding sequence: %w", err)
	}
	return &EmbeddingRepo{
		backend: backend,
		seq:     seq,
		logger:  slog.Default().With("component", "embedding_repo"),
	}, nil
}

// readEmbedding loads an embedding inside a transaction. Returns nil, nil
// when the key does not exist.
func readEmbedding(tx *badger.Txn, id core.ID) (*core.Embedding, error) {
	item, err := tx.Get(recordKey(embeddingPrefix, id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var emb *core.Embedding
	err = item.Value(func(val []byte) error {
		emb, err = storage.UnmarshalEmbedding(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %d: %w", storage.ErrSerializationFailed, id, err)
	}
	return emb, nil
}

// readEmbeddingByHash resolves the hash index and loads the embedding.
// Returns nil, nil when no embedding carries the hash.
func readEmbeddingByHash(tx *badger.Txn, hash string) (*core.Embedding, error) {
	item, err := tx.Get(embeddingByHashKey(hash))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var id core.ID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return readEmbedding(tx, id)
}

// GetOrCreateEmbedding finds an existing embedding by the candidate's hash
// or persists the candidate. Concurrent callers racing on the same hash are
// resolved by retrying the lookup when the insert conflicts.
func (r *EmbeddingRepo) GetOrCreateEmbedding(ctx context.Context, emb *core.Embedding) (*core.Embedding, error) {
	if err := core.ValidateEmbedding(emb); err != nil {
		return nil, err
	}

	for {
		var found *core.Embedding
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			var err error
			found, err = readEmbeddingByHash(tx, emb.Hash)
			return err
		}, false)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}

		created, err := r.createEmbedding(emb)
		if err == nil {
			return created, nil
		}
		// A concurrent writer beat us to the hash; loop and pick theirs up.
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return nil, err
	}
}

func (r *EmbeddingRepo) createEmbedding(emb *core.Embedding) (*core.Embedding, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Re-check under the write transaction so the conflict detector
		// covers the hash key.
		existing, err := readEmbeddingByHash(tx, emb.Hash)
		if err != nil {
			return err
		}
		if existing != nil {
			*emb = *existing
			return tx.Commit()
		}
		if emb.Id == 0 {
			id, err := nextID(r.seq)
			if err != nil {
				return err
			}
			emb.Id = id
		}
		emb.InsertedAt = nowUTC()
		if err := tx.Set(recordKey(embeddingPrefix, emb.Id), storage.MarshalEmbedding(emb)); err != nil {
			return err
		}
		if err := tx.Set(embeddingByHashKey(emb.Hash), storage.MarshalID(emb.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return emb, nil
}

func (r *EmbeddingRepo) GetEmbedding(ctx context.Context, id core.ID) (*core.Embedding, error) {
	var emb *core.Embedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		emb, err = readEmbedding(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: embedding %d", storage.ErrNotFound, id)
	}
	return emb, nil
}

func (r *EmbeddingRepo) GetEmbeddings(ctx context.Context, ids ...core.ID) ([]*core.Embedding, error) {
	var embs []*core.Embedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			emb, err := readEmbedding(tx, id)
			if err != nil {
				return err
			}
			if emb == nil {
				continue
			}
			embs = append(embs, emb)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return embs, nil
}

func (r *EmbeddingRepo) FindEmbeddingByHash(ctx context.Context, hash string) (*core.Embedding, error) {
	var emb *core.Embedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		emb, err = readEmbeddingByHash(tx, hash)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: embedding hash %s", storage.ErrNotFound, hash)
	}
	return emb, nil
}

func (r *EmbeddingRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

func (r *EmbeddingRepo) Close() error {
	return r.seq.Release()
}
