package repair

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/ai/mock"
	"github.com/poiesic/indexit/core"
	badgerstore "github.com/poiesic/indexit/storage/badger"
)

func newReembedderUnderTest(t *testing.T, repos *badgerstore.Repositories, embedder ai.Embedder, config *Config) (*Reembedder, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r := NewReembedder(
		repos.Documents, repos.Segments, repos.Embeddings,
		embedder, ai.DefaultModelMapping(), "mock", "mock-embedder",
		config, &out,
	)
	return r, &out
}

func TestReembedder_ReplacesEmbeddings(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addRepairDocument(t, repos)

	old1 := addEmbeddedSegment(t, repos, doc.Id, 1, 8, "first passage of text")
	old2 := addEmbeddedSegment(t, repos, doc.Id, 2, 8, "second passage of text")

	reembedder, out := newReembedderUnderTest(t, repos, mock.NewMockEmbedder(), nil)
	require.NoError(t, reembedder.Run(ctx, doc.Id))

	gotDoc, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, "mock-embedder", gotDoc.EmbeddingModel)
	assert.Equal(t, mock.DefaultDimensions, gotDoc.EmbeddingDimensions)

	for _, segment := range []*core.Segment{old1, old2} {
		got, err := repos.Segments.GetSegment(ctx, segment.Id)
		require.NoError(t, err)
		assert.NotZero(t, got.EmbeddingId)
		assert.NotEqual(t, segment.EmbeddingId, got.EmbeddingId, "segment should point at a new embedding row")

		emb, err := repos.Embeddings.GetEmbedding(ctx, got.EmbeddingId)
		require.NoError(t, err)
		assert.Equal(t, mock.DefaultDimensions, emb.Dimensions())
	}

	// Old rows are preserved.
	for _, segment := range []*core.Segment{old1, old2} {
		_, err := repos.Embeddings.GetEmbedding(ctx, segment.EmbeddingId)
		require.NoError(t, err)
	}

	assert.Contains(t, out.String(), "Re-embedding complete")
}

func TestReembedder_NormalizesVectors(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addRepairDocument(t, repos)
	segment := addEmbeddedSegment(t, repos, doc.Id, 1, 4, "needs normalizing")

	embedder := &mock.MockEmbedder{
		EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			vectors := make([][]float32, len(texts))
			for i := range texts {
				vectors[i] = []float32{3, 4, 0, 0}
			}
			return vectors, nil
		},
	}

	reembedder, _ := newReembedderUnderTest(t, repos, embedder, nil)
	require.NoError(t, reembedder.Run(ctx, doc.Id))

	got, err := repos.Segments.GetSegment(ctx, segment.Id)
	require.NoError(t, err)
	emb, err := repos.Embeddings.GetEmbedding(ctx, got.EmbeddingId)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, magnitude(emb.Vector), 1e-6)
	assert.InDelta(t, 0.6, float64(emb.Vector[0]), 1e-6)
}

func TestReembedder_EmptyDocument(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	doc := addRepairDocument(t, repos)

	reembedder, out := newReembedderUnderTest(t, repos, mock.NewMockEmbedder(), nil)
	require.NoError(t, reembedder.Run(context.Background(), doc.Id))
	assert.Contains(t, out.String(), "no segments")
}

func TestSegmentIterator_BatchesInOrder(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addRepairDocument(t, repos)

	for i := 1; i <= 5; i++ {
		addEmbeddedSegment(t, repos, doc.Id, i, 4, string(rune('a'+i))+" content")
	}

	it := NewSegmentIterator(repos.Segments, 2)
	var batchSizes []int
	lastPosition := 0
	err := it.ForEach(ctx, doc.Id, func(batch []*core.Segment) error {
		batchSizes = append(batchSizes, len(batch))
		for _, segment := range batch {
			require.Greater(t, segment.Position, lastPosition)
			lastPosition = segment.Position
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestSegmentIterator_SkipsParents(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addRepairDocument(t, repos)

	_, err := repos.Segments.AddSegments(ctx, &core.Segment{
		DocumentId:  doc.Id,
		DatasetId:   1,
		Position:    1,
		Content:     "context parent",
		Status:      core.SegmentCompleted,
		SegmentType: core.SegmentTypeParent,
	})
	require.NoError(t, err)
	addEmbeddedSegment(t, repos, doc.Id, 2, 4, "actual child")

	it := NewSegmentIterator(repos.Segments, 10)
	count, err := it.Count(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
