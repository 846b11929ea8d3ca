package storage

import (
	"context"

	"github.com/poiesic/indexit/core"
)

// Repository provides common storage operations shared across all
// repositories. Implementations must be thread-safe and support concurrent
// access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository

	// AddDocument adds a document to storage.
	// For documents with Id=0, generates a new ID from sequence.
	// Sets InsertedAt and UpdatedAt timestamps.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument updates an existing document and stamps UpdatedAt.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocumentsByDataset retrieves all documents belonging to a dataset.
	GetDocumentsByDataset(ctx context.Context, datasetID core.ID) ([]*core.Document, error)

	// DeleteDocument removes a document and cascades to its segments and
	// their index entries. Shared embeddings are left in place; other
	// documents may reference them by hash.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error
}

// SegmentRepository provides operations for managing document segments.
type SegmentRepository interface {
	Repository

	// AddSegments adds one or more segments to storage.
	// For segments with Id=0, generates new IDs from sequence.
	// Sets InsertedAt and UpdatedAt timestamps.
	// Returns the segments with generated IDs and timestamps populated.
	AddSegments(ctx context.Context, segments ...*core.Segment) ([]*core.Segment, error)

	// UpdateSegments updates existing segments and stamps UpdatedAt.
	// Returns ErrNotFound if any segment doesn't exist.
	UpdateSegments(ctx context.Context, segments ...*core.Segment) ([]*core.Segment, error)

	// GetSegment retrieves a single segment by ID.
	// Returns ErrNotFound if the segment doesn't exist.
	GetSegment(ctx context.Context, id core.ID) (*core.Segment, error)

	// GetSegmentsByDocument retrieves all segments of a document ordered by
	// Position ascending.
	GetSegmentsByDocument(ctx context.Context, documentID core.ID) ([]*core.Segment, error)

	// DeleteSegmentsByDocument removes all segments of a document along with
	// their index entries. Returns the number of segments removed.
	DeleteSegmentsByDocument(ctx context.Context, documentID core.ID) (int, error)

	// CountByStatus tallies the document's segments per status.
	CountByStatus(ctx context.Context, documentID core.ID) (map[core.SegmentStatus]int, error)

	// FindSimilar scores the embedded segments of a document against the
	// given vector. Returns segments with similarity >= minSimilarity, up to
	// limit results, ordered by similarity score (highest first).
	// Fails fast with core.DimensionMismatchError when the query vector's
	// length differs from the document's embedding dimension.
	FindSimilar(ctx context.Context, documentID core.ID, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// EmbeddingRepository provides operations for managing embeddings.
// Embeddings are immutable once written and shared across segments by
// content hash.
type EmbeddingRepository interface {
	Repository

	// GetOrCreateEmbedding finds an embedding by the candidate's Hash or
	// persists the candidate if none exists. Thread-safe: handles concurrent
	// creation attempts for the same hash.
	GetOrCreateEmbedding(ctx context.Context, emb *core.Embedding) (*core.Embedding, error)

	// GetEmbedding retrieves a single embedding by ID.
	// Returns ErrNotFound if the embedding doesn't exist.
	GetEmbedding(ctx context.Context, id core.ID) (*core.Embedding, error)

	// GetEmbeddings retrieves multiple embeddings by their IDs.
	// Returns only the embeddings that exist (no error for missing ones).
	GetEmbeddings(ctx context.Context, ids ...core.ID) ([]*core.Embedding, error)

	// FindEmbeddingByHash retrieves an embedding by content+model hash.
	// Returns ErrNotFound if no embedding with the hash exists.
	FindEmbeddingByHash(ctx context.Context, hash string) (*core.Embedding, error)
}

// CheckpointRepository persists per-document stage checkpoints so an
// interrupted run can resume without repeating completed work.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, stamping UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a stage and document.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, stage string, documentID core.ID) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for a stage and document.
	// Removing a missing checkpoint is not an error.
	DeleteCheckpoint(ctx context.Context, stage string, documentID core.ID) error
}
