package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

// CheckpointRepo implements storage.CheckpointRepository backed by BadgerDB.
type CheckpointRepo struct {
	backend *Backend
}

var _ storage.CheckpointRepository = (*CheckpointRepo)(nil)

// NewCheckpointRepo creates a checkpoint repository on the given backend.
func NewCheckpointRepo(backend *Backend) *CheckpointRepo {
	return &CheckpointRepo{backend: backend}
}

func (r *CheckpointRepo) SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error {
	if checkpoint.Stage == "" {
		return fmt.Errorf("%w: checkpoint stage cannot be empty", storage.ErrInvalidQuery)
	}
	checkpoint.UpdatedAt = nowUTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := checkpointKey(checkpoint.Stage, checkpoint.DocumentId)
		if err := tx.Set(key, storage.MarshalCheckpoint(checkpoint)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *CheckpointRepo) LoadCheckpoint(ctx context.Context, stage string, documentID core.ID) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(checkpointKey(stage, documentID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			checkpoint, err = storage.UnmarshalCheckpoint(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return checkpoint, nil
}

func (r *CheckpointRepo) DeleteCheckpoint(ctx context.Context, stage string, documentID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(checkpointKey(stage, documentID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
