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
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// SegmentRepo implements storage.SegmentRepository backed by BadgerDB.
type SegmentRepo struct {
	backend *Backend
	seq     *badger.Sequence
	logger  *slog.Logger
}

var _ storage.SegmentRepository = (*SegmentRepo)(nil)

// NewSegmentRepo creates a segment repository on the given backend.
func NewSegmentRepo(backend *Backend) (*SegmentRepo, error) {
	seq, err := backend.GetSequence(segmentSeq)
	if err != nil {
		return nil, fmt.Errorf("segment sequence: %w", err)
	}
	return &SegmentRepo{
		backend: backend,
		seq:     seq,
		logger:  slog.Default().With("component", "segment_repo"),
	}, nil
}

// nextID draws the next sequence value, skipping 0 which is reserved for
// "unset" references.
func nextID(seq *badger.Sequence) (core.ID, error) {
	for {
		n, err := seq.Next()
		if err != nil {
			return 0, err
		}
		if n != 0 {
			return core.ID(n), nil
		}
	}
}

// readSegment loads a segment inside a transaction. Returns nil, nil when
// the key does not exist.
func readSegment(tx *badger.Txn, id core.ID) (*core.Segment, error) {
	item, err := tx.Get(recordKey(segmentPrefix, id))
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var segment *core.Segment
	err = item.Value(func(val []byte) error {
		segment, err = storage.UnmarshalSegment(val)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: segment %d: %w", storage.ErrSerializationFailed, id, err)
	}
	return segment, nil
}

func writeSegment(tx *badger.Txn, segment *core.Segment) error {
	if err := tx.Set(recordKey(segmentPrefix, segment.Id), storage.MarshalSegment(segment)); err != nil {
		return err
	}
	return tx.Set(segmentByDocKey(segment.DocumentId, segment.Position), storage.MarshalID(segment.Id))
}

func (r *SegmentRepo) AddSegments(ctx context.Context, segments ...*core.Segment) ([]*core.Segment, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	for _, segment := range segments {
		if err := core.ValidateSegment(segment); err != nil {
			return nil, err
		}
	}

	now := nowUTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, segment := range segments {
			if segment.Id == 0 {
				id, err := nextID(r.seq)
				if err != nil {
					return err
				}
				segment.Id = id
			}
			segment.InsertedAt = now
			segment.UpdatedAt = now
			if err := writeSegment(tx, segment); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, fmt.Errorf("%w: add segments: %w", storage.ErrTransactionFailed, err)
	}
	return segments, nil
}

func (r *SegmentRepo) UpdateSegments(ctx context.Context, segments ...*core.Segment) ([]*core.Segment, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	now := nowUTC()
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, segment := range segments {
			existing, err := readSegment(tx, segment.Id)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("%w: segment %d", storage.ErrNotFound, segment.Id)
			}
			// A moved segment leaves a stale index entry behind.
			if existing.Position != segment.Position || existing.DocumentId != segment.DocumentId {
				if err := tx.Delete(segmentByDocKey(existing.DocumentId, existing.Position)); err != nil {
					return err
				}
			}
			segment.InsertedAt = existing.InsertedAt
			segment.UpdatedAt = now
			if err := writeSegment(tx, segment); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (r *SegmentRepo) GetSegment(ctx context.Context, id core.ID) (*core.Segment, error) {
	var segment *core.Segment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		segment, err = readSegment(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if segment == nil {
		return nil, fmt.Errorf("%w: segment %d", storage.ErrNotFound, id)
	}
	return segment, nil
}

// forEachSegmentOfDocument walks a document's segments in position order.
// Returning false from fn stops the walk.
func forEachSegmentOfDocument(tx *badger.Txn, documentID core.ID, fn func(segment *core.Segment) (bool, error)) error {
	prefix := segmentByDocScanPrefix(documentID)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var segmentID core.ID
		err := it.Item().Value(func(val []byte) error {
			var err error
			segmentID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}
		segment, err := readSegment(tx, segmentID)
		if err != nil {
			return err
		}
		if segment == nil {
			// Dangling index entry; skip rather than abort the scan.
			continue
		}
		keep, err := fn(segment)
		if err != nil {
			return err
		}
		if !keep {
			return nil
		}
	}
	return nil
}

func (r *SegmentRepo) GetSegmentsByDocument(ctx context.Context, documentID core.ID) ([]*core.Segment, error) {
	var segments []*core.Segment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return forEachSegmentOfDocument(tx, documentID, func(segment *core.Segment) (bool, error) {
			segments = append(segments, segment)
			return true, nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return segments, nil
}

func (r *SegmentRepo) DeleteSegmentsByDocument(ctx context.Context, documentID core.ID) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteSegmentsOfDocument(tx, documentID, &count); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// deleteSegmentsOfDocument removes a document's segment records and index
// entries within tx. The caller commits. Embeddings stay; they are shared
// by hash.
func deleteSegmentsOfDocument(tx *badger.Txn, documentID core.ID, count *int) error {
	var recordKeys, indexKeys [][]byte
	err := forEachSegmentOfDocument(tx, documentID, func(segment *core.Segment) (bool, error) {
		recordKeys = append(recordKeys, recordKey(segmentPrefix, segment.Id))
		indexKeys = append(indexKeys, segmentByDocKey(segment.DocumentId, segment.Position))
		return true, nil
	})
	if err != nil {
		return err
	}
	for i := range recordKeys {
		if err := tx.Delete(recordKeys[i]); err != nil {
			return err
		}
		if err := tx.Delete(indexKeys[i]); err != nil {
			return err
		}
	}
	if count != nil {
		*count = len(recordKeys)
	}
	return nil
}

func (r *SegmentRepo) CountByStatus(ctx context.Context, documentID core.ID) (map[core.SegmentStatus]int, error) {
	counts := make(map[core.SegmentStatus]int)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return forEachSegmentOfDocument(tx, documentID, func(segment *core.Segment) (bool, error) {
			counts[segment.Status]++
			return true, nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *SegmentRepo) FindSimilar(ctx context.Context, documentID core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be >= 1", storage.ErrInvalidQuery)
	}

	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return forEachSegmentOfDocument(tx, documentID, func(segment *core.Segment) (bool, error) {
			if segment.EmbeddingId == 0 {
				return true, nil
			}
			emb, err := readEmbedding(tx, segment.EmbeddingId)
			if err != nil {
				return false, err
			}
			if emb == nil {
				return true, nil
			}
			if emb.Dimensions() != len(vector) {
				return false, &core.DimensionMismatchError{
					DocumentId: documentID,
					Want:       emb.Dimensions(),
					Got:        len(vector),
				}
			}
			score := dotProduct(vector, emb.Vector)
			if score >= minSimilarity {
				results = append(results, &core.SearchResult{Segment: segment, Score: score})
			}
			return true, nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *SegmentRepo) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

func (r *SegmentRepo) Close() error {
	return r.seq.Release()
}
