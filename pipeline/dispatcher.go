package pipeline

import (
	"context"
	"fmt"

	"github.com/poiesic/indexit/core"
)

// SyncDispatcher invokes the next stage inline. It suits a single process
// that owns the whole pipeline, like the CLI; a deployment with a durable
// job queue plugs its own dispatcher in instead.
type SyncDispatcher struct {
	Orchestrator *Orchestrator
}

var _ JobDispatcher = (*SyncDispatcher)(nil)

func (d *SyncDispatcher) Dispatch(ctx context.Context, stage core.Stage, documentID core.ID) error {
	switch stage {
	case core.StageChunking:
		return d.Orchestrator.RunChunking(ctx, documentID)
	case core.StageEmbedding:
		_, err := d.Orchestrator.RunEmbedding(ctx, documentID)
		return err
	case core.StageNER:
		return d.Orchestrator.RunNER(ctx, documentID)
	}
	return fmt.Errorf("unknown stage %q", stage)
}
