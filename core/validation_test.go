package core

import (
	"errors"
	"testing"
)

func validSegment() *Segment {
	return &Segment{
		DocumentId:  1,
		Position:    1,
		Content:     "some segment content",
		SegmentType: SegmentTypeChunk,
		Status:      SegmentChunked,
	}
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty name",
			doc:     &Document{IndexingStatus: IndexingWaiting},
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "unknown status",
			doc:     &Document{Name: "report.txt", IndexingStatus: IndexingStatus(42)},
			wantErr: ErrInvalidDocument,
		},
		{
			name: "valid document",
			doc:  &Document{Name: "report.txt", IndexingStatus: IndexingWaiting},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSegment(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Segment)
		wantErr error
	}{
		{
			name:   "valid chunk segment",
			mutate: func(s *Segment) {},
		},
		{
			name:    "empty content",
			mutate:  func(s *Segment) { s.Content = "" },
			wantErr: ErrEmptyContent,
		},
		{
			name:    "zero position",
			mutate:  func(s *Segment) { s.Position = 0 },
			wantErr: ErrInvalidPosition,
		},
		{
			name:    "unknown segment type",
			mutate:  func(s *Segment) { s.SegmentType = SegmentType(9) },
			wantErr: ErrInvalidSegmentType,
		},
		{
			name:    "child without parent",
			mutate:  func(s *Segment) { s.SegmentType = SegmentTypeChild; s.ParentId = 0 },
			wantErr: ErrMissingParent,
		},
		{
			name: "child with parent",
			mutate: func(s *Segment) {
				s.SegmentType = SegmentTypeChild
				s.ParentId = 7
				s.HierarchyLevel = 1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := validSegment()
			tt.mutate(seg)

			err := ValidateSegment(seg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSegment() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSegment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSegment_Nil(t *testing.T) {
	if err := ValidateSegment(nil); !errors.Is(err, ErrInvalidSegment) {
		t.Errorf("ValidateSegment(nil) error = %v, want %v", err, ErrInvalidSegment)
	}
}

func TestValidateEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		emb     *Embedding
		wantErr bool
	}{
		{
			name:    "nil embedding",
			emb:     nil,
			wantErr: true,
		},
		{
			name:    "empty vector",
			emb:     &Embedding{ModelName: "m", Hash: "h"},
			wantErr: true,
		},
		{
			name:    "missing model",
			emb:     &Embedding{Vector: []float32{0.1}, Hash: "h"},
			wantErr: true,
		},
		{
			name:    "missing hash",
			emb:     &Embedding{Vector: []float32{0.1}, ModelName: "m"},
			wantErr: true,
		},
		{
			name: "valid",
			emb:  &Embedding{Vector: []float32{0.1, 0.2}, ModelName: "m", Hash: "h"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbedding(tt.emb)
			if tt.wantErr && !errors.Is(err, ErrInvalidEmbedding) {
				t.Errorf("ValidateEmbedding() error = %v, want %v", err, ErrInvalidEmbedding)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateEmbedding() unexpected error: %v", err)
			}
		})
	}
}

func TestDimensionMismatchError(t *testing.T) {
	err := &DimensionMismatchError{DocumentId: 3, Want: 1536, Got: 768}

	if !IsDimensionMismatch(err) {
		t.Error("IsDimensionMismatch() = false for a DimensionMismatchError")
	}
	if IsDimensionMismatch(errors.New("other")) {
		t.Error("IsDimensionMismatch() = true for an unrelated error")
	}

	var wrapped error = errors.Join(errors.New("stage failed"), err)
	if !IsDimensionMismatch(wrapped) {
		t.Error("IsDimensionMismatch() should see through wrapping")
	}
}
