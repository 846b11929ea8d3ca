package indexit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/pipeline"
	"github.com/poiesic/indexit/splitter"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithMockProvider())
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.DocumentRepository())
		assert.NotNil(t, db.SegmentRepository())
		assert.NotNil(t, db.EmbeddingRepository())
		assert.NotNil(t, db.CheckpointRepository())
		assert.NotNil(t, db.Provider())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		db, err := NewDatabase(tmpFile, WithMockProvider())
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase("", WithInMemory(), WithMockProvider())
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase("", WithInMemory(), WithMockProvider())
	require.NoError(t, err)
	defer db.Close()

	t.Run("can create pipeline", func(t *testing.T) {
		orch := db.NewPipeline()
		require.NotNil(t, orch)
	})

	t.Run("can create dimension repairer", func(t *testing.T) {
		require.NotNil(t, db.NewDimensionRepairer())
	})

	t.Run("can create reembedder", func(t *testing.T) {
		require.NotNil(t, db.NewReembedder(nil, os.Stderr))
	})
}

func TestDatabase_EndToEndIndexing(t *testing.T) {
	db, err := NewDatabase("", WithInMemory(), WithMockProvider())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()

	source := filepath.Join(t.TempDir(), "note.txt")
	content := "Observations from the field survey were recorded daily.\n\n" +
		"Each station reported temperature, humidity, and wind speed at dawn and dusk.\n\n" +
		"The aggregated readings were archived for the annual climate report."
	require.NoError(t, os.WriteFile(source, []byte(content), 0644))

	doc, err := db.DocumentRepository().AddDocument(ctx, &core.Document{
		DatasetId:      1,
		Name:           "note.txt",
		SourceRef:      source,
		IndexingStatus: core.IndexingWaiting,
	})
	require.NoError(t, err)

	orch := db.NewPipeline(
		pipeline.WithSplitConfig(splitter.Config{Strategy: splitter.StrategyRecursive, ChunkSize: 120}),
	)
	dispatcher := &pipeline.SyncDispatcher{Orchestrator: orch}

	require.NoError(t, orch.RunChunking(ctx, doc.Id))
	require.NoError(t, dispatcher.Dispatch(ctx, core.StageEmbedding, doc.Id))

	got, err := db.DocumentRepository().GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingCompleted, got.IndexingStatus)
	assert.NotZero(t, got.EmbeddingDimensions)

	segments, err := db.SegmentRepository().GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, segments)
	for _, segment := range segments {
		assert.NotZero(t, segment.EmbeddingId)
	}
}
