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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/indexit/core"
	"github.com/poiesic/indexit/entities"
	"github.com/poiesic/indexit/splitter"
	"github.com/poiesic/indexit/storage"
)

// Orchestrator drives a document through the indexing stages. Stages are
// invoked one at a time per document, each is idempotent against
// already-advanced segments, and an aborting failure parks the document in
// the stage's failed status before the error is re-raised for the
// dispatcher.
type Orchestrator struct {
	documents   storage.DocumentRepository
	segments    storage.SegmentRepository
	checkpoints storage.CheckpointRepository
	embedding   *EmbeddingOrchestrator

	textExtractor TextExtractor
	dispatcher    JobDispatcher
	notifier      Notifier

	splitCfg     splitter.Config
	hierarchical bool
	parentCfg    splitter.Config

	extractor  *entities.Extractor
	extractCfg entities.Config
	nerEnabled bool

	logger *slog.Logger
}

// Option is a functional option for the Orchestrator.
type Option func(*Orchestrator)

// WithTextExtractor overrides the default plain-text extractor.
func WithTextExtractor(extractor TextExtractor) Option {
	return func(o *Orchestrator) {
		o.textExtractor = extractor
	}
}

// WithDispatcher sets the job dispatcher used to hand off to the next stage.
// Without one, stages must be invoked directly.
func WithDispatcher(dispatcher JobDispatcher) Option {
	return func(o *Orchestrator) {
		o.dispatcher = dispatcher
	}
}

// WithNotifier sets the progress notifier.
func WithNotifier(notifier Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = notifier
	}
}

// WithSplitConfig sets the chunking configuration.
func WithSplitConfig(cfg splitter.Config) Option {
	return func(o *Orchestrator) {
		o.splitCfg = cfg
	}
}

// WithHierarchy enables parent/child chunking. parentCfg produces the coarse
// context segments; the base split config produces their children.
func WithHierarchy(parentCfg splitter.Config) Option {
	return func(o *Orchestrator) {
		o.hierarchical = true
		o.parentCfg = parentCfg
	}
}

// WithCheckpoints enables per-stage checkpoint records.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(o *Orchestrator) {
		o.checkpoints = repo
	}
}

// WithEntityExtraction enables the NER stage.
func WithEntityExtraction(extractor *entities.Extractor, cfg entities.Config) Option {
	return func(o *Orchestrator) {
		o.extractor = extractor
		o.extractCfg = cfg
		o.nerEnabled = true
	}
}

// WithPipelineLogger overrides the default logger.
func WithPipelineLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator over the given repositories and embedding
// orchestrator.
func New(
	documents storage.DocumentRepository,
	segments storage.SegmentRepository,
	embedding *EmbeddingOrchestrator,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		documents:     documents,
		segments:      segments,
		embedding:     embedding,
		textExtractor: PlainTextExtractor{},
		splitCfg: splitter.Config{
			Strategy:  splitter.StrategySmart,
			ChunkSize: 1000,
		},
		logger: slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunChunking is stage one: extract text, split it, and persist the
// segments. On resume, segments that already exist are reused and splitting
// is skipped.
func (o *Orchestrator) RunChunking(ctx context.Context, documentID core.ID) error {
	doc, err := o.documents.GetDocument(ctx, documentID)
	if err != nil {
		return &StageError{Stage: core.StageChunking, DocumentId: documentID, Err: err}
	}

	o.notify(doc, core.StageChunking, "started", 0)

	if err := o.runChunking(ctx, doc); err != nil {
		return o.failStage(ctx, doc, core.StageChunking, err)
	}

	o.saveCheckpoint(ctx, core.StageChunking, doc.Id, 0)
	o.notify(doc, core.StageChunking, "completed", 1)
	o.dispatch(ctx, core.StageEmbedding, doc.Id)
	return nil
}

func (o *Orchestrator) runChunking(ctx context.Context, doc *core.Document) error {
	existing, err := o.segments.GetSegmentsByDocument(ctx, doc.Id)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		o.logger.Info("reusing existing segments",
			"document_id", doc.Id, "segments", len(existing))
		return o.markChunked(ctx, doc, len(existing))
	}

	if err := o.advance(ctx, doc, core.IndexingParsing); err != nil {
		return err
	}
	text, err := o.textExtractor.ExtractText(ctx, doc.SourceRef, DocTypeOf(doc.Name))
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Name)
	}

	if err := o.advance(ctx, doc, core.IndexingSplitting); err != nil {
		return err
	}
	// A fresh run replaces whatever a crashed earlier run left behind.
	if _, err := o.segments.DeleteSegmentsByDocument(ctx, doc.Id); err != nil {
		return err
	}

	var segments []*core.Segment
	if o.hierarchical {
		segments, err = o.buildHierarchical(ctx, doc, text)
	} else {
		segments, err = o.buildFlat(ctx, doc, text)
	}
	if err != nil {
		return err
	}

	return o.markChunked(ctx, doc, len(segments))
}

func (o *Orchestrator) buildFlat(ctx context.Context, doc *core.Document, text string) ([]*core.Segment, error) {
	chunks, err := splitter.Split(text, o.splitCfg)
	if err != nil {
		return nil, err
	}
	if err := o.advance(ctx, doc, core.IndexingChunking); err != nil {
		return nil, err
	}

	segments := make([]*core.Segment, len(chunks))
	for i, chunk := range chunks {
		segments[i] = &core.Segment{
			DocumentId:  doc.Id,
			DatasetId:   doc.DatasetId,
			Position:    i + 1,
			Content:     chunk,
			WordCount:   splitter.WordCount(chunk),
			Tokens:      splitter.EstimateTokens(chunk),
			Status:      core.SegmentChunked,
			SegmentType: core.SegmentTypeChunk,
		}
	}
	return o.segments.AddSegments(ctx, segments...)
}

// buildHierarchical persists parents first so children can carry their
// assigned identities. A child whose parent failed to persist is dropped
// with a warning rather than stored dangling.
func (o *Orchestrator) buildHierarchical(ctx context.Context, doc *core.Document, text string) ([]*core.Segment, error) {
	nodes, err := splitter.BuildHierarchy(text, o.parentCfg, o.splitCfg)
	if err != nil {
		return nil, err
	}
	if err := o.advance(ctx, doc, core.IndexingChunking); err != nil {
		return nil, err
	}

	// Parent segments are context-only rows: never embedded, never tagged,
	// terminal at creation.
	parentByIndex := make(map[int]*core.Segment)
	for i, node := range nodes {
		if node.ParentIndex != -1 {
			continue
		}
		parent := node.Segment
		parent.DocumentId = doc.Id
		parent.DatasetId = doc.DatasetId
		parent.Status = core.SegmentCompleted
		persisted, err := o.segments.AddSegments(ctx, &parent)
		if err != nil {
			return nil, err
		}
		parentByIndex[i] = persisted[0]
	}

	var children []*core.Segment
	for _, node := range nodes {
		if node.ParentIndex == -1 {
			continue
		}
		parent, ok := parentByIndex[node.ParentIndex]
		if !ok {
			o.logger.Warn("dropping child with unresolved parent",
				"document_id", doc.Id, "position", node.Segment.Position)
			continue
		}
		child := node.Segment
		child.DocumentId = doc.Id
		child.DatasetId = doc.DatasetId
		child.ParentId = parent.Id
		child.Status = core.SegmentChunked
		children = append(children, &child)
	}
	persisted, err := o.segments.AddSegments(ctx, children...)
	if err != nil {
		return nil, err
	}

	all := make([]*core.Segment, 0, len(parentByIndex)+len(persisted))
	for _, parent := range parentByIndex {
		all = append(all, parent)
	}
	return append(all, persisted...), nil
}

func (o *Orchestrator) markChunked(ctx context.Context, doc *core.Document, segmentCount int) error {
	stampMetadata(doc, "chunking_completed_at", time.Now().UTC().Format(time.RFC3339))
	stampMetadata(doc, "chunking_segments", strconv.Itoa(segmentCount))
	return o.advance(ctx, doc, core.IndexingChunked)
}

// RunEmbedding is stage two: embed every segment still waiting for a
// vector. The returned result reports how many segments advanced; a resumed
// run with nothing left reports zero and goes straight to the completion
// check.
func (o *Orchestrator) RunEmbedding(ctx context.Context, documentID core.ID, segmentIDs ...core.ID) (ProcessResult, error) {
	doc, err := o.documents.GetDocument(ctx, documentID)
	if err != nil {
		return ProcessResult{}, &StageError{Stage: core.StageEmbedding, DocumentId: documentID, Err: err}
	}

	o.notify(doc, core.StageEmbedding, "started", 0)

	result, err := o.runEmbedding(ctx, doc, segmentIDs)
	if err != nil {
		return result, o.failStage(ctx, doc, core.StageEmbedding, err)
	}

	o.saveCheckpoint(ctx, core.StageEmbedding, doc.Id, 0)
	o.notify(doc, core.StageEmbedding, "completed", 1)

	if o.nerEnabled {
		o.dispatch(ctx, core.StageNER, doc.Id)
		return result, nil
	}
	if err := o.completionCheck(ctx, doc); err != nil {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) runEmbedding(ctx context.Context, doc *core.Document, segmentIDs []core.ID) (ProcessResult, error) {
	segments, err := o.fetchSegments(ctx, doc.Id, segmentIDs)
	if err != nil {
		return ProcessResult{}, err
	}

	pending := 0
	for _, segment := range segments {
		if segment.Status.NeedsEmbedding() && segment.SegmentType != core.SegmentTypeParent {
			pending++
		}
	}
	if pending == 0 {
		return ProcessResult{EmbeddingDimensions: doc.EmbeddingDimensions}, nil
	}

	if err := o.advance(ctx, doc, core.IndexingEmbedding); err != nil {
		return ProcessResult{}, err
	}

	result, err := o.embedding.ProcessSegments(ctx, doc, segments)
	if err != nil {
		return result, err
	}

	doc.EmbeddingModel = o.embedding.Model()
	doc.EmbeddingDimensions = result.EmbeddingDimensions
	stampMetadata(doc, "embedding_completed_at", time.Now().UTC().Format(time.RFC3339))
	stampMetadata(doc, "embedding_processed", strconv.Itoa(result.ProcessedCount))
	if err := o.advance(ctx, doc, core.IndexingEmbedded); err != nil {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) fetchSegments(ctx context.Context, documentID core.ID, segmentIDs []core.ID) ([]*core.Segment, error) {
	if len(segmentIDs) == 0 {
		return o.segments.GetSegmentsByDocument(ctx, documentID)
	}
	segments := make([]*core.Segment, 0, len(segmentIDs))
	for _, id := range segmentIDs {
		segment, err := o.segments.GetSegment(ctx, id)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

// RunNER is the optional stage three: extract keyword entities per embedded
// segment. One failing segment is marked ner_failed and does not abort its
// siblings.
func (o *Orchestrator) RunNER(ctx context.Context, documentID core.ID) error {
	doc, err := o.documents.GetDocument(ctx, documentID)
	if err != nil {
		return &StageError{Stage: core.StageNER, DocumentId: documentID, Err: err}
	}

	o.notify(doc, core.StageNER, "started", 0)

	if err := o.runNER(ctx, doc); err != nil {
		return o.failStage(ctx, doc, core.StageNER, err)
	}

	o.saveCheckpoint(ctx, core.StageNER, doc.Id, 0)
	o.notify(doc, core.StageNER, "completed", 1)
	return o.completionCheck(ctx, doc)
}

func (o *Orchestrator) runNER(ctx context.Context, doc *core.Document) error {
	if !o.nerEnabled {
		return nil
	}
	segments, err := o.segments.GetSegmentsByDocument(ctx, doc.Id)
	if err != nil {
		return err
	}

	if err := o.advance(ctx, doc, core.IndexingNERProcessing); err != nil {
		return err
	}

	now := time.Now().UTC()
	tagged, failed := 0, 0
	for _, segment := range segments {
		if segment.Status != core.SegmentEmbedded {
			continue
		}
		res, err := o.extractor.Extract(ctx, segment.Content, o.extractCfg)
		if err != nil {
			segment.Status = core.SegmentNERFailed
			failed++
			o.logger.Warn("entity extraction failed",
				"document_id", doc.Id, "segment_id", segment.Id, "error", err)
		} else {
			segment.Keywords = core.Keywords{
				List:        res.Entities,
				Count:       len(res.Entities),
				ExtractedAt: now,
			}
			segment.Status = core.SegmentCompleted
			segment.CompletedAt = now
			tagged++
		}
		if _, err := o.segments.UpdateSegments(ctx, segment); err != nil {
			return err
		}
	}

	stampMetadata(doc, "ner_completed_at", now.Format(time.RFC3339))
	stampMetadata(doc, "ner_tagged", strconv.Itoa(tagged))
	if failed > 0 {
		stampMetadata(doc, "ner_failed", strconv.Itoa(failed))
	}
	return nil
}

// completionCheck closes out a document. Segments still waiting on an
// embedding mean an earlier pass silently lost work, so the document is
// parked in embedding_failed instead of being marked complete.
func (o *Orchestrator) completionCheck(ctx context.Context, doc *core.Document) error {
	counts, err := o.segments.CountByStatus(ctx, doc.Id)
	if err != nil {
		return o.failStage(ctx, doc, core.StageEmbedding, err)
	}

	unresolved := 0
	for status, n := range counts {
		if status.Unresolved() {
			unresolved += n
		}
	}
	if unresolved > 0 {
		err := fmt.Errorf("%w: %d segments never finished embedding", ErrUnresolvedSegments, unresolved)
		return o.failStage(ctx, doc, core.StageEmbedding, err)
	}

	// Segments that stay embedded are fine when NER is off or was skipped.
	if err := o.advance(ctx, doc, core.IndexingCompleted); err != nil {
		return o.failStage(ctx, doc, core.StageEmbedding, err)
	}
	o.clearCheckpoints(ctx, doc.Id)
	o.notify(doc, core.StageNER, "document completed", 1)
	o.logger.Info("document completed", "document_id", doc.Id)
	return nil
}

// happyPath is the linear status order a document moves through. advance
// uses it to step over in-progress states a crashed run never recorded.
var happyPath = []core.IndexingStatus{
	core.IndexingWaiting,
	core.IndexingParsing,
	core.IndexingSplitting,
	core.IndexingChunking,
	core.IndexingChunked,
	core.IndexingEmbedding,
	core.IndexingEmbedded,
	core.IndexingNERProcessing,
	core.IndexingCompleted,
}

// advance moves the document to the given status and persists it. Already
// being there is a no-op, which keeps resumed stages idempotent. A target
// further along the happy path is reached by validating each intermediate
// transition; only the final status is persisted.
func (o *Orchestrator) advance(ctx context.Context, doc *core.Document, to core.IndexingStatus) error {
	if doc.IndexingStatus == to {
		return nil
	}
	if !core.CanTransition(doc.IndexingStatus, to) {
		from, target := pathIndex(doc.IndexingStatus), pathIndex(to)
		if from == -1 || target == -1 || target <= from {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, doc.IndexingStatus, to)
		}
		current := doc.IndexingStatus
		for i := from + 1; i <= target; i++ {
			if !core.CanTransition(current, happyPath[i]) {
				return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, current, happyPath[i])
			}
			current = happyPath[i]
		}
	}
	doc.IndexingStatus = to
	updated, err := o.documents.UpdateDocument(ctx, doc)
	if err != nil {
		return err
	}
	*doc = *updated
	return nil
}

// failStage parks the document in the stage's terminal failed status,
// records the error and stop time, and wraps the cause for the dispatcher.
func (o *Orchestrator) failStage(ctx context.Context, doc *core.Document, stage core.Stage, cause error) error {
	doc.IndexingStatus = stage.FailedStatus()
	doc.LastError = cause.Error()
	doc.StoppedAt = time.Now().UTC()
	if _, err := o.documents.UpdateDocument(ctx, doc); err != nil {
		o.logger.Error("recording stage failure",
			"document_id", doc.Id, "stage", stage, "error", err)
	}
	o.notify(doc, stage, cause.Error(), 0)
	o.logger.Error("stage failed", "document_id", doc.Id, "stage", stage, "error", cause)
	return &StageError{Stage: stage, DocumentId: doc.Id, Err: cause}
}

func (o *Orchestrator) dispatch(ctx context.Context, stage core.Stage, documentID core.ID) {
	if o.dispatcher == nil {
		o.logger.Debug("no dispatcher attached", "stage", stage, "document_id", documentID)
		return
	}
	if err := o.dispatcher.Dispatch(ctx, stage, documentID); err != nil {
		o.logger.Error("dispatch failed", "stage", stage, "document_id", documentID, "error", err)
	}
}

// notify is best-effort: errors are the notifier's problem and panics are
// swallowed.
func (o *Orchestrator) notify(doc *core.Document, stage core.Stage, message string, progress float64) {
	if o.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("notifier panicked", "stage", stage, "recovered", r)
		}
	}()
	o.notifier.Notify(doc.Id, doc.DatasetId, Notification{
		Status:   doc.IndexingStatus.String(),
		Stage:    stage,
		Message:  message,
		Progress: progress,
	})
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context, stage core.Stage, documentID, lastSegmentID core.ID) {
	if o.checkpoints == nil {
		return
	}
	err := o.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Stage:         string(stage),
		DocumentId:    documentID,
		LastSegmentId: lastSegmentID,
	})
	if err != nil {
		o.logger.Warn("saving checkpoint", "stage", stage, "document_id", documentID, "error", err)
	}
}

func (o *Orchestrator) clearCheckpoints(ctx context.Context, documentID core.ID) {
	if o.checkpoints == nil {
		return
	}
	for _, stage := range []core.Stage{core.StageChunking, core.StageEmbedding, core.StageNER} {
		if err := o.checkpoints.DeleteCheckpoint(ctx, string(stage), documentID); err != nil {
			o.logger.Warn("clearing checkpoint", "stage", stage, "document_id", documentID, "error", err)
		}
	}
}

func pathIndex(status core.IndexingStatus) int {
	for i, s := range happyPath {
		if s == status {
			return i
		}
	}
	return -1
}

func stampMetadata(doc *core.Document, key, value string) {
	if doc.ProcessingMetadata == nil {
		doc.ProcessingMetadata = make(map[string]string)
	}
	doc.ProcessingMetadata[key] = value
}
