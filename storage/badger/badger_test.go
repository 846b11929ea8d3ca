package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/storage"
)

func testDocument(name string) *core.Document {
	return &core.Document{
		DatasetId:      1,
		Name:           name,
		IndexingStatus: core.IndexingWaiting,
	}
}

func testSegment(documentID core.ID, position int, content string) *core.Segment {
	return &core.Segment{
		DocumentId:  documentID,
		DatasetId:   1,
		Position:    position,
		Content:     content,
		Status:      core.SegmentChunked,
		SegmentType: core.SegmentTypeChunk,
	}
}

func TestDocumentRepo_AddAndGet(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, testDocument("report.pdf"))
	require.NoError(t, err)
	assert.NotZero(t, doc.Id)
	assert.False(t, doc.InsertedAt.IsZero())
	assert.False(t, doc.UpdatedAt.IsZero())

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, core.IndexingWaiting, got.IndexingStatus)
}

func TestDocumentRepo_GetMissing(t *testing.T) {
	repos := NewMemoryRepositories(t)

	_, err := repos.Documents.GetDocument(context.Background(), 99999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentRepo_AddValidates(t *testing.T) {
	repos := NewMemoryRepositories(t)

	_, err := repos.Documents.AddDocument(context.Background(), &core.Document{})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestDocumentRepo_Update(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, testDocument("draft.md"))
	require.NoError(t, err)
	inserted := doc.InsertedAt

	doc.IndexingStatus = core.IndexingSplitting
	updated, err := repos.Documents.UpdateDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, inserted, updated.InsertedAt)

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingSplitting, got.IndexingStatus)
}

func TestDocumentRepo_UpdateMissing(t *testing.T) {
	repos := NewMemoryRepositories(t)

	doc := testDocument("ghost.txt")
	doc.Id = 4242
	_, err := repos.Documents.UpdateDocument(context.Background(), doc)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentRepo_GetByDataset(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	first := testDocument("a.txt")
	second := testDocument("b.txt")
	other := testDocument("c.txt")
	other.DatasetId = 2

	_, err := repos.Documents.AddDocument(ctx, first)
	require.NoError(t, err)
	_, err = repos.Documents.AddDocument(ctx, second)
	require.NoError(t, err)
	_, err = repos.Documents.AddDocument(ctx, other)
	require.NoError(t, err)

	docs, err := repos.Documents.GetDocumentsByDataset(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	docs, err = repos.Documents.GetDocumentsByDataset(ctx, 2)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c.txt", docs[0].Name)
}

func TestDocumentRepo_DeleteCascadesToSegments(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, testDocument("doomed.txt"))
	require.NoError(t, err)

	_, err = repos.Segments.AddSegments(ctx,
		testSegment(doc.Id, 1, "first"),
		testSegment(doc.Id, 2, "second"),
	)
	require.NoError(t, err)

	require.NoError(t, repos.Documents.DeleteDocument(ctx, doc.Id))

	_, err = repos.Documents.GetDocument(ctx, doc.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestDocumentRepo_DeleteLeavesSharedEmbeddings(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, testDocument("shared.txt"))
	require.NoError(t, err)

	emb, err := repos.Embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
		ModelName: "m",
		Hash:      core.EmbeddingHash("shared content", "m"),
		Vector:    []float32{1, 0},
	})
	require.NoError(t, err)

	segment := testSegment(doc.Id, 1, "shared content")
	segment.EmbeddingId = emb.Id
	_, err = repos.Segments.AddSegments(ctx, segment)
	require.NoError(t, err)

	require.NoError(t, repos.Documents.DeleteDocument(ctx, doc.Id))

	got, err := repos.Embeddings.GetEmbedding(ctx, emb.Id)
	require.NoError(t, err)
	assert.Equal(t, emb.Hash, got.Hash)
}

func TestSegmentRepo_AddAssignsIDsAndTimestamps(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	segments, err := repos.Segments.AddSegments(ctx,
		testSegment(7, 1, "one"),
		testSegment(7, 2, "two"),
	)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.NotZero(t, segments[0].Id)
	assert.NotZero(t, segments[1].Id)
	assert.NotEqual(t, segments[0].Id, segments[1].Id)
	assert.False(t, segments[0].InsertedAt.IsZero())
}

func TestSegmentRepo_AddValidates(t *testing.T) {
	repos := NewMemoryRepositories(t)

	_, err := repos.Segments.AddSegments(context.Background(), testSegment(7, 0, "bad position"))
	assert.ErrorIs(t, err, core.ErrInvalidSegment)
}

func TestSegmentRepo_GetByDocumentOrdersByPosition(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	// Insert out of order; the index key encodes position big-endian.
	_, err := repos.Segments.AddSegments(ctx,
		testSegment(7, 3, "third"),
		testSegment(7, 1, "first"),
		testSegment(7, 2, "second"),
	)
	require.NoError(t, err)

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, 7)
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{segments[0].Position, segments[1].Position, segments[2].Position})
	assert.Equal(t, "first", segments[0].Content)
}

func TestSegmentRepo_UpdateStampsAndPersists(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	segments, err := repos.Segments.AddSegments(ctx, testSegment(7, 1, "original"))
	require.NoError(t, err)

	segment := segments[0]
	segment.Status = core.SegmentEmbedded
	segment.EmbeddingId = 55
	_, err = repos.Segments.UpdateSegments(ctx, segment)
	require.NoError(t, err)

	got, err := repos.Segments.GetSegment(ctx, segment.Id)
	require.NoError(t, err)
	assert.Equal(t, core.SegmentEmbedded, got.Status)
	assert.Equal(t, core.ID(55), got.EmbeddingId)
}

func TestSegmentRepo_UpdateMissing(t *testing.T) {
	repos := NewMemoryRepositories(t)

	segment := testSegment(7, 1, "nope")
	segment.Id = 31337
	_, err := repos.Segments.UpdateSegments(context.Background(), segment)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSegmentRepo_DeleteByDocument(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	_, err := repos.Segments.AddSegments(ctx,
		testSegment(7, 1, "a"),
		testSegment(7, 2, "b"),
		testSegment(8, 1, "other doc"),
	)
	require.NoError(t, err)

	removed, err := repos.Segments.DeleteSegmentsByDocument(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := repos.Segments.GetSegmentsByDocument(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestSegmentRepo_CountByStatus(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	done := testSegment(7, 1, "done")
	done.Status = core.SegmentCompleted
	pending := testSegment(7, 2, "pending")
	alsoPending := testSegment(7, 3, "also pending")

	_, err := repos.Segments.AddSegments(ctx, done, pending, alsoPending)
	require.NoError(t, err)

	counts, err := repos.Segments.CountByStatus(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[core.SegmentCompleted])
	assert.Equal(t, 2, counts[core.SegmentChunked])
}

func addEmbeddedSegment(t *testing.T, repos *Repositories, documentID core.ID, position int, content string, vector []float32) *core.Segment {
	t.Helper()
	ctx := context.Background()
	emb, err := repos.Embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
		ModelName: "test-model",
		Hash:      core.EmbeddingHash(content, "test-model"),
		Vector:    vector,
	})
	require.NoError(t, err)

	segment := testSegment(documentID, position, content)
	segment.Status = core.SegmentEmbedded
	segment.EmbeddingId = emb.Id
	segments, err := repos.Segments.AddSegments(ctx, segment)
	require.NoError(t, err)
	return segments[0]
}

func TestSegmentRepo_FindSimilar(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	addEmbeddedSegment(t, repos, 7, 1, "close match", []float32{1, 0, 0})
	addEmbeddedSegment(t, repos, 7, 2, "partial match", []float32{0.6, 0.8, 0})
	addEmbeddedSegment(t, repos, 7, 3, "orthogonal", []float32{0, 0, 1})

	results, err := repos.Segments.FindSimilar(ctx, 7, []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close match", results[0].Segment.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "partial match", results[1].Segment.Content)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)
}

func TestSegmentRepo_FindSimilarHonorsLimit(t *testing.T) {
	repos := NewMemoryRepositories(t)

	addEmbeddedSegment(t, repos, 7, 1, "a", []float32{1, 0})
	addEmbeddedSegment(t, repos, 7, 2, "b", []float32{0.9, 0.1})
	addEmbeddedSegment(t, repos, 7, 3, "c", []float32{0.8, 0.2})

	results, err := repos.Segments.FindSimilar(context.Background(), 7, []float32{1, 0}, 0, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSegmentRepo_FindSimilarDimensionMismatch(t *testing.T) {
	repos := NewMemoryRepositories(t)

	addEmbeddedSegment(t, repos, 7, 1, "three dims", []float32{1, 0, 0})

	_, err := repos.Segments.FindSimilar(context.Background(), 7, []float32{1, 0}, 0, 10)
	require.Error(t, err)
	assert.True(t, core.IsDimensionMismatch(err))
}

func TestSegmentRepo_FindSimilarSkipsUnembedded(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	_, err := repos.Segments.AddSegments(ctx, testSegment(7, 1, "no embedding yet"))
	require.NoError(t, err)
	addEmbeddedSegment(t, repos, 7, 2, "embedded", []float32{1, 0})

	results, err := repos.Segments.FindSimilar(ctx, 7, []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "embedded", results[0].Segment.Content)
}

func TestSegmentRepo_FindSimilarRejectsBadQuery(t *testing.T) {
	repos := NewMemoryRepositories(t)

	_, err := repos.Segments.FindSimilar(context.Background(), 7, nil, 0, 10)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = repos.Segments.FindSimilar(context.Background(), 7, []float32{1}, 0, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestEmbeddingRepo_GetOrCreateDeduplicatesByHash(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	hash := core.EmbeddingHash("same text", "model-a")
	first, err := repos.Embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
		ModelName: "model-a",
		Hash:      hash,
		Vector:    []float32{0.1, 0.2},
	})
	require.NoError(t, err)

	second, err := repos.Embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
		ModelName: "model-a",
		Hash:      hash,
		Vector:    []float32{0.1, 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, first.Id, second.Id)
}

func TestEmbeddingRepo_GetOrCreateValidates(t *testing.T) {
	repos := NewMemoryRepositories(t)

	_, err := repos.Embeddings.GetOrCreateEmbedding(context.Background(), &core.Embedding{
		ModelName: "m",
		Hash:      "h",
	})
	assert.ErrorIs(t, err, core.ErrInvalidEmbedding)
}

func TestEmbeddingRepo_FindByHash(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	hash := core.EmbeddingHash("findable", "m")
	created, err := repos.Embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
		ModelName: "m",
		Hash:      hash,
		Vector:    []float32{1},
	})
	require.NoError(t, err)

	found, err := repos.Embeddings.FindEmbeddingByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, created.Id, found.Id)

	_, err = repos.Embeddings.FindEmbeddingByHash(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEmbeddingRepo_GetEmbeddingsSkipsMissing(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	created, err := repos.Embeddings.GetOrCreateEmbedding(ctx, &core.Embedding{
		ModelName: "m",
		Hash:      core.EmbeddingHash("only one", "m"),
		Vector:    []float32{1},
	})
	require.NoError(t, err)

	embs, err := repos.Embeddings.GetEmbeddings(ctx, created.Id, 99999)
	require.NoError(t, err)
	assert.Len(t, embs, 1)
}

func TestCheckpointRepo_SaveLoadDelete(t *testing.T) {
	repos := NewMemoryRepositories(t)
	ctx := context.Background()

	checkpoint := &core.Checkpoint{
		Stage:         string(core.StageEmbedding),
		DocumentId:    7,
		LastSegmentId: 42,
	}
	require.NoError(t, repos.Checkpoints.SaveCheckpoint(ctx, checkpoint))
	assert.False(t, checkpoint.UpdatedAt.IsZero())

	loaded, err := repos.Checkpoints.LoadCheckpoint(ctx, string(core.StageEmbedding), 7)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, core.ID(42), loaded.LastSegmentId)

	require.NoError(t, repos.Checkpoints.DeleteCheckpoint(ctx, string(core.StageEmbedding), 7))

	loaded, err = repos.Checkpoints.LoadCheckpoint(ctx, string(core.StageEmbedding), 7)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCheckpointRepo_LoadMissingIsNil(t *testing.T) {
	repos := NewMemoryRepositories(t)

	loaded, err := repos.Checkpoints.LoadCheckpoint(context.Background(), "chunking", 123)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCheckpointRepo_SaveRequiresStage(t *testing.T) {
	repos := NewMemoryRepositories(t)

	err := repos.Checkpoints.SaveCheckpoint(context.Background(), &core.Checkpoint{DocumentId: 1})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}
