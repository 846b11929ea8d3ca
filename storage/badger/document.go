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
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// DocumentRepo implements storage.DocumentRepository backed by BadgerDB.
type DocumentRepo struct {
	backend *Backend
	seq     *badger.Sequence
	logger  *slog.Logger
}

var _ storage.DocumentRepository = (*DocumentRepo)(nil)

// NewDocumentRepo creates a document repository on the given backend.
func NewDocumentRepo(backend *Backend) (*DocumentRepo, error) {
	seq, err := backend.GetSequence(documentSeq)
	if err != nil {
		return nil, fmt.Errorf("document sequence: %w", err)
	}
	return &DocumentRepo{
		backend: backend,
		seq:     seq,
		logger:  slog.Default().With("component", "document_repo"),
	}, nil
}

// readDocument loads a document inside a transaction. Returns nil, nil when
// the key does not exist.
func readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	item, err := tx.Get(recordKey(documentPrefix, id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: document %d: %w", storage.ErrSerializationFailed, id, err)
	}
	return doc, nil
}

func writeDocument(tx *badger.Txn, doc *core.Document) error {
	if err := tx.Set(recordKey(documentPrefix, doc.Id), storage.MarshalDocument(doc)); err != nil {
		return err
	}
	return tx.Set(documentByDatasetKey(doc.DatasetId, doc.Id), storage.MarshalID(doc.Id))
}

func (r *DocumentRepo) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	now := nowUTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if doc.Id == 0 {
			id, err := nextID(r.seq)
			if err != nil {
				return err
			}
			doc.Id = id
		} else {
			existing, err := readDocument(tx, doc.Id)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: document %d", storage.ErrDuplicateKey, doc.Id)
			}
		}
		doc.InsertedAt = now
		doc.UpdatedAt = now
		if err := writeDocument(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readDocument(tx, doc.Id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: document %d", storage.ErrNotFound, doc.Id)
		}
		if existing.DatasetId != doc.DatasetId {
			if err := tx.Delete(documentByDatasetKey(existing.DatasetId, doc.Id)); err != nil {
				return err
			}
		}
		doc.InsertedAt = existing.InsertedAt
		doc.UpdatedAt = nowUTC()
		if err := writeDocument(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepo) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document %d", storage.ErrNotFound, id)
	}
	return doc, nil
}

func (r *DocumentRepo) GetDocumentsByDataset(ctx context.Context, datasetID core.ID) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := documentByDatasetScanPrefix(datasetID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var docID core.ID
			err := it.Item().Value(func(val []byte) error {
				var err error
				docID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			doc, err := readDocument(tx, docID)
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			docs = append(docs, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// DeleteDocument removes the document record, its dataset index entry, and
// all of its segments. Embeddings referenced by the segments are left in
// place; they are content-addressed and may be shared with other documents.
func (r *DocumentRepo) DeleteDocument(ctx context.Context, id core.ID) error {
	removed := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%w: document %d", storage.ErrNotFound, id)
		}
		if err := deleteSegmentsOfDocument(tx, id, &removed); err != nil {
			return err
		}
		if err := tx.Delete(documentByDatasetKey(doc.DatasetId, id)); err != nil {
			return err
		}
		if err := tx.Delete(recordKey(documentPrefix, id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	r.logger.Debug("document deleted", "document_id", id, "segments_removed", removed)
	return nil
}

func (r *DocumentRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

func (r *DocumentRepo) Close() error {
	return r.seq.Release()
}
