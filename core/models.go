package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// EmbeddingHash computes the content+model digest used for embedding reuse.
// Two segments with identical content embedded under the same model share one
// Embedding record.
func EmbeddingHash(content, model string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}

// SegmentType identifies the role of a segment in the chunk hierarchy.
type SegmentType int

const (
	// SegmentTypeChunk is a flat segment with no hierarchy.
	SegmentTypeChunk SegmentType = iota + 1
	// SegmentTypeParent is a coarse context segment with children.
	SegmentTypeParent
	// SegmentTypeChild is a fine-grained segment linked to a parent.
	SegmentTypeChild
)

// Document represents one uploaded source document moving through the
// indexing pipeline. It is mutated only by the pipeline orchestrator and the
// stage components it invokes.
type Document struct {
	Id                  ID
	DatasetId           ID
	Name                string
	SourceRef           string // reference to the extracted source text
	IndexingStatus      IndexingStatus
	EmbeddingModel      string
	EmbeddingDimensions int               // set once, from the first successful embedding
	ProcessingMetadata  map[string]string // per-stage timestamps and counts, open-ended
	LastError           string
	StoppedAt           time.Time
	InsertedAt          time.Time
	UpdatedAt           time.Time
}

// Keywords holds the entity-extraction output attached to a segment.
type Keywords struct {
	List        []string
	Count       int
	ExtractedAt time.Time
}

// Segment is a contiguous span of a document's text stored as an indexable
// unit. Position is 1-based and stable. A child segment's ParentId references
// a parent segment in the same document; 0 means no parent.
type Segment struct {
	Id             ID
	DocumentId     ID
	DatasetId      ID
	Position       int
	Content        string
	WordCount      int
	Tokens         int // estimated
	Keywords       Keywords
	Status         SegmentStatus
	EmbeddingId    ID // 0 = no embedding attached
	ParentId       ID // 0 = no parent
	SegmentType    SegmentType
	HierarchyLevel int
	ChildOrder     int
	ChildCount     int
	InsertedAt     time.Time
	UpdatedAt      time.Time
	CompletedAt    time.Time
}

// Embedding is an immutable fixed-length vector for one content+model pair.
// Many segments may share one Embedding by hash.
type Embedding struct {
	Id           ID
	ModelName    string
	ProviderName string
	Hash         string
	Vector       []float32
	InsertedAt   time.Time
}

// Dimensions returns the vector length.
func (e *Embedding) Dimensions() int {
	return len(e.Vector)
}

// SearchResult pairs a segment with its similarity score. Not persisted.
type SearchResult struct {
	Segment *Segment
	Score   float32
}

// Checkpoint records the last completed stage invocation for a document,
// letting an external job runner resume after a process restart.
type Checkpoint struct {
	Stage         string
	DocumentId    ID
	LastSegmentId ID
	UpdatedAt     time.Time
}
