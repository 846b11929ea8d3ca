package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/ai/mock"
	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/entities"
	"github.com/poiesic/indexit/splitter"
	badgerstore "github.com/poiesic/indexit/storage/badger"
)

const testText = `The expedition reached the northern ridge after eleven days of steady climbing through dense forest.

Supplies ran lower than planned because the river crossing had washed away two of the equipment rafts.

The team established a weather station at the summit and began transmitting readings every six hours.`

func staticExtractor(text string) TextExtractor {
	return TextExtractorFunc(func(ctx context.Context, fileRef, docType string) (string, error) {
		return text, nil
	})
}

func addWaitingDocument(t *testing.T, repos *badgerstore.Repositories) *core.Document {
	t.Helper()
	doc, err := repos.Documents.AddDocument(context.Background(), &core.Document{
		DatasetId:      1,
		Name:           "expedition.txt",
		SourceRef:      "ignored-by-static-extractor",
		IndexingStatus: core.IndexingWaiting,
	})
	require.NoError(t, err)
	return doc
}

func newTestOrchestrator(t *testing.T, repos *badgerstore.Repositories, embedder ai.Embedder, embedOpts []EmbeddingOption, opts ...Option) *Orchestrator {
	t.Helper()
	eo := NewEmbeddingOrchestrator(
		embedder, ai.DefaultModelMapping(), "mock", "mock-embedder",
		repos.Segments, repos.Embeddings, embedOpts...,
	)
	defaults := []Option{
		WithSplitConfig(splitter.Config{Strategy: splitter.StrategyRecursive, ChunkSize: 120}),
		WithTextExtractor(staticExtractor(testText)),
	}
	return New(repos.Documents, repos.Segments, eo, append(defaults, opts...)...)
}

func TestRunChunking_PersistsSegments(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil)
	doc := addWaitingDocument(t, repos)
	ctx := context.Background()

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingChunked, got.IndexingStatus)
	assert.NotEmpty(t, got.ProcessingMetadata["chunking_completed_at"])

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, segments)
	for i, segment := range segments {
		assert.Equal(t, i+1, segment.Position)
		assert.Equal(t, core.SegmentChunked, segment.Status)
		assert.NotEmpty(t, segment.Content)
		assert.Positive(t, segment.WordCount)
	}
}

func TestRunChunking_ResumeReusesSegments(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	_, err := repos.Segments.AddSegments(ctx, &core.Segment{
		DocumentId:  doc.Id,
		DatasetId:   doc.DatasetId,
		Position:    1,
		Content:     "pre-existing segment from an interrupted run",
		Status:      core.SegmentChunked,
		SegmentType: core.SegmentTypeChunk,
	})
	require.NoError(t, err)

	extractorCalls := 0
	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil,
		WithTextExtractor(TextExtractorFunc(func(ctx context.Context, fileRef, docType string) (string, error) {
			extractorCalls++
			return testText, nil
		})),
	)

	require.NoError(t, orch.RunChunking(ctx, doc.Id))
	assert.Zero(t, extractorCalls, "resume must not re-extract")

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Len(t, segments, 1)

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingChunked, got.IndexingStatus)
}

func TestRunChunking_ExtractionFailureParksDocument(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	doc := addWaitingDocument(t, repos)
	ctx := context.Background()

	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil,
		WithTextExtractor(TextExtractorFunc(func(ctx context.Context, fileRef, docType string) (string, error) {
			return "", ErrExtraction
		})),
	)

	err := orch.RunChunking(ctx, doc.Id)
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, core.StageChunking, stageErr.Stage)
	assert.ErrorIs(t, err, ErrExtraction)

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingChunkingFailed, got.IndexingStatus)
	assert.NotEmpty(t, got.LastError)
	assert.False(t, got.StoppedAt.IsZero())
}

func TestRunEmbedding_EmbedsAllPending(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil)
	doc := addWaitingDocument(t, repos)
	ctx := context.Background()

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	result, err := orch.RunEmbedding(ctx, doc.Id)
	require.NoError(t, err)
	assert.Positive(t, result.ProcessedCount)
	assert.Zero(t, result.FailedCount)
	assert.Equal(t, mock.DefaultDimensions, result.EmbeddingDimensions)

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingCompleted, got.IndexingStatus)
	assert.Equal(t, "mock-embedder", got.EmbeddingModel)
	assert.Equal(t, mock.DefaultDimensions, got.EmbeddingDimensions)

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	for _, segment := range segments {
		assert.Equal(t, core.SegmentEmbedded, segment.Status)
		assert.NotZero(t, segment.EmbeddingId)
	}
}

func TestRunEmbedding_IdempotentResume(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil)
	doc := addWaitingDocument(t, repos)
	ctx := context.Background()

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	first, err := orch.RunEmbedding(ctx, doc.Id)
	require.NoError(t, err)
	require.Positive(t, first.ProcessedCount)

	second, err := orch.RunEmbedding(ctx, doc.Id)
	require.NoError(t, err)
	assert.Zero(t, second.ProcessedCount)
}

func TestRunEmbedding_DimensionMismatchFailsFast(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)

	var mu sync.Mutex
	calls := 0
	embedder := &mock.MockEmbedder{
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return make([]float32, 8), nil
			}
			return make([]float32, 16), nil
		},
	}

	// Batch size 1 keeps completion order deterministic.
	orch := newTestOrchestrator(t, repos, embedder, []EmbeddingOption{WithBatchSize(1)})
	doc := addWaitingDocument(t, repos)
	ctx := context.Background()

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(segments), 2, "test needs at least two segments")

	_, err = orch.RunEmbedding(ctx, doc.Id)
	require.Error(t, err)
	assert.True(t, core.IsDimensionMismatch(err))

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingEmbeddingFailed, got.IndexingStatus)
}

func TestRunEmbedding_PerSegmentFailureDoesNotAbortBatch(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	_, err := repos.Segments.AddSegments(ctx,
		&core.Segment{DocumentId: doc.Id, DatasetId: 1, Position: 1, Content: "healthy segment one", Status: core.SegmentChunked, SegmentType: core.SegmentTypeChunk},
		&core.Segment{DocumentId: doc.Id, DatasetId: 1, Position: 2, Content: "FAILME poisoned segment", Status: core.SegmentChunked, SegmentType: core.SegmentTypeChunk},
		&core.Segment{DocumentId: doc.Id, DatasetId: 1, Position: 3, Content: "healthy segment two", Status: core.SegmentChunked, SegmentType: core.SegmentTypeChunk},
	)
	require.NoError(t, err)

	embedder := &mock.MockEmbedder{
		EmbedTextFunc: func(ctx context.Context, text string) ([]float32, error) {
			if strings.Contains(text, "FAILME") {
				return nil, errors.New("provider rejected input")
			}
			return make([]float32, 4), nil
		},
	}
	orch := newTestOrchestrator(t, repos, embedder, nil)

	result, err := orch.RunEmbedding(ctx, doc.Id)
	require.Error(t, err, "completion gate must refuse a document with unresolved segments")
	assert.ErrorIs(t, err, ErrUnresolvedSegments)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.FailedCount)

	// Healthy siblings advanced; the poisoned one stays eligible for resume.
	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	statuses := map[core.SegmentStatus]int{}
	for _, segment := range segments {
		statuses[segment.Status]++
	}
	assert.Equal(t, 2, statuses[core.SegmentEmbedded])
	assert.Equal(t, 1, statuses[core.SegmentChunked])

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingEmbeddingFailed, got.IndexingStatus)
	assert.NotEqual(t, core.IndexingCompleted, got.IndexingStatus)
}

func TestRunNER_TagsEmbeddedSegments(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil,
		WithEntityExtraction(entities.New(), entities.Config{Method: entities.MethodNgram}),
	)

	require.NoError(t, orch.RunChunking(ctx, doc.Id))
	_, err := orch.RunEmbedding(ctx, doc.Id)
	require.NoError(t, err)

	// NER enabled, so embedding does not complete the document by itself.
	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingEmbedded, got.IndexingStatus)

	require.NoError(t, orch.RunNER(ctx, doc.Id))

	got, err = repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingCompleted, got.IndexingStatus)

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	for _, segment := range segments {
		assert.Equal(t, core.SegmentCompleted, segment.Status)
		assert.False(t, segment.Keywords.ExtractedAt.IsZero())
	}
}

func TestSyncDispatcher_RunsFullPipeline(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil,
		WithEntityExtraction(entities.New(), entities.Config{Method: entities.MethodNgram}),
		WithCheckpoints(repos.Checkpoints),
	)
	orch.dispatcher = &SyncDispatcher{Orchestrator: orch}

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingCompleted, got.IndexingStatus)

	// Completion clears the stage checkpoints.
	for _, stage := range []core.Stage{core.StageChunking, core.StageEmbedding, core.StageNER} {
		checkpoint, err := repos.Checkpoints.LoadCheckpoint(ctx, string(stage), doc.Id)
		require.NoError(t, err)
		assert.Nil(t, checkpoint, "checkpoint for %s should be cleared", stage)
	}
}

func TestHierarchicalChunking_ParentsAndChildren(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil,
		WithSplitConfig(splitter.Config{Strategy: splitter.StrategyRecursive, ChunkSize: 100}),
		WithHierarchy(splitter.Config{Strategy: splitter.StrategyRecursive, ChunkSize: 300}),
	)

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)

	parentIDs := map[core.ID]bool{}
	children := 0
	for _, segment := range segments {
		if segment.SegmentType == core.SegmentTypeParent {
			parentIDs[segment.Id] = true
			assert.Equal(t, core.SegmentCompleted, segment.Status)
		}
	}
	require.NotEmpty(t, parentIDs)
	for _, segment := range segments {
		if segment.SegmentType == core.SegmentTypeChild {
			children++
			assert.True(t, parentIDs[segment.ParentId], "child %d references unknown parent %d", segment.Id, segment.ParentId)
			assert.Equal(t, core.SegmentChunked, segment.Status)
		}
	}
	require.NotZero(t, children)

	// Embedding skips the context-only parents.
	_, err = orch.RunEmbedding(ctx, doc.Id)
	require.NoError(t, err)
	segments, err = repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	for _, segment := range segments {
		if segment.SegmentType == core.SegmentTypeParent {
			assert.Zero(t, segment.EmbeddingId)
		} else {
			assert.NotZero(t, segment.EmbeddingId)
		}
	}
}

func TestNotifier_ReceivesStageEvents(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	var mu sync.Mutex
	var events []Notification
	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil,
		WithNotifier(NotifierFunc(func(documentID, datasetID core.ID, n Notification) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, n)
		})),
	)

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, core.StageChunking, events[0].Stage)
	assert.Equal(t, "started", events[0].Message)
}

func TestNotifier_PanicDoesNotFailStage(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil,
		WithNotifier(NotifierFunc(func(documentID, datasetID core.ID, n Notification) {
			panic("notifier exploded")
		})),
	)

	require.NoError(t, orch.RunChunking(ctx, doc.Id))

	got, err := repos.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.IndexingChunked, got.IndexingStatus)
}

func TestEmbeddingOrchestrator_SharesEmbeddingsByHash(t *testing.T) {
	repos := badgerstore.NewMemoryRepositories(t)
	ctx := context.Background()
	doc := addWaitingDocument(t, repos)

	_, err := repos.Segments.AddSegments(ctx,
		&core.Segment{DocumentId: doc.Id, DatasetId: 1, Position: 1, Content: "identical content", Status: core.SegmentChunked, SegmentType: core.SegmentTypeChunk},
		&core.Segment{DocumentId: doc.Id, DatasetId: 1, Position: 2, Content: "identical content", Status: core.SegmentChunked, SegmentType: core.SegmentTypeChunk},
	)
	require.NoError(t, err)

	orch := newTestOrchestrator(t, repos, mock.NewMockEmbedder(), nil)
	_, err = orch.RunEmbedding(ctx, doc.Id)
	require.NoError(t, err)

	segments, err := repos.Segments.GetSegmentsByDocument(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, segments[0].EmbeddingId, segments[1].EmbeddingId,
		"identical content under one model should share one embedding row")
}

func TestPlainTextExtractor_RejectsUnknownFormat(t *testing.T) {
	_, err := PlainTextExtractor{}.ExtractText(context.Background(), "whatever.bin", ".bin")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
