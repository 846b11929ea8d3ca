package core

// IndexingStatus is the document-level pipeline state machine.
type IndexingStatus int

const (
	IndexingWaiting IndexingStatus = iota + 1
	IndexingParsing
	IndexingSplitting
	IndexingChunking
	IndexingChunked
	IndexingEmbedding
	IndexingEmbedded
	IndexingNERProcessing
	IndexingCompleted
	IndexingChunkingFailed
	IndexingEmbeddingFailed
	IndexingNERFailed
)

var indexingStatusNames = map[IndexingStatus]string{
	IndexingWaiting:         "waiting",
	IndexingParsing:         "parsing",
	IndexingSplitting:       "splitting",
	IndexingChunking:        "chunking",
	IndexingChunked:         "chunked",
	IndexingEmbedding:       "embedding",
	IndexingEmbedded:        "embedded",
	IndexingNERProcessing:   "ner_processing",
	IndexingCompleted:       "completed",
	IndexingChunkingFailed:  "chunking_failed",
	IndexingEmbeddingFailed: "embedding_failed",
	IndexingNERFailed:       "ner_failed",
}

func (s IndexingStatus) String() string {
	if name, ok := indexingStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the status is a terminal state.
func (s IndexingStatus) Terminal() bool {
	switch s {
	case IndexingCompleted, IndexingChunkingFailed, IndexingEmbeddingFailed, IndexingNERFailed:
		return true
	}
	return false
}

// indexingTransitions lists the legal document status transitions.
// The happy path is linear; each in-progress stage may branch to its failed
// state, and the completion check may fail a document that looked embedded.
var indexingTransitions = map[IndexingStatus][]IndexingStatus{
	IndexingWaiting:       {IndexingParsing, IndexingSplitting},
	IndexingParsing:       {IndexingSplitting, IndexingChunkingFailed},
	IndexingSplitting:     {IndexingChunking, IndexingChunkingFailed},
	IndexingChunking:      {IndexingChunked, IndexingChunkingFailed},
	IndexingChunked:       {IndexingEmbedding},
	IndexingEmbedding:     {IndexingEmbedded, IndexingEmbeddingFailed},
	IndexingEmbedded:      {IndexingNERProcessing, IndexingCompleted, IndexingEmbeddingFailed},
	IndexingNERProcessing: {IndexingCompleted, IndexingNERFailed, IndexingEmbeddingFailed},
}

// CanTransition reports whether moving a document from one status to another
// is legal.
func CanTransition(from, to IndexingStatus) bool {
	for _, next := range indexingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stage names one phase of the indexing pipeline.
type Stage string

const (
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageNER       Stage = "ner"
)

// FailedStatus returns the terminal failed status for a stage.
func (s Stage) FailedStatus() IndexingStatus {
	switch s {
	case StageChunking:
		return IndexingChunkingFailed
	case StageEmbedding:
		return IndexingEmbeddingFailed
	case StageNER:
		return IndexingNERFailed
	}
	return IndexingEmbeddingFailed
}

// SegmentStatus is the per-segment state machine.
type SegmentStatus int

const (
	SegmentWaiting SegmentStatus = iota + 1
	SegmentChunked
	SegmentEmbedding
	SegmentEmbedded
	SegmentNERProcessing
	SegmentCompleted
	SegmentNERFailed
)

var segmentStatusNames = map[SegmentStatus]string{
	SegmentWaiting:       "waiting",
	SegmentChunked:       "chunked",
	SegmentEmbedding:     "embedding",
	SegmentEmbedded:      "embedded",
	SegmentNERProcessing: "ner_processing",
	SegmentCompleted:     "completed",
	SegmentNERFailed:     "ner_failed",
}

func (s SegmentStatus) String() string {
	if name, ok := segmentStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the segment status is terminal.
func (s SegmentStatus) Terminal() bool {
	return s == SegmentCompleted || s == SegmentNERFailed
}

// NeedsEmbedding reports whether a segment is still waiting for an embedding.
// These are the statuses the embedding stage picks up on entry and on resume.
func (s SegmentStatus) NeedsEmbedding() bool {
	return s == SegmentWaiting || s == SegmentChunked
}

// Unresolved reports whether a segment would block document completion.
// A document is never marked completed while any segment is unresolved.
func (s SegmentStatus) Unresolved() bool {
	switch s {
	case SegmentWaiting, SegmentChunked, SegmentEmbedding:
		return true
	}
	return false
}
