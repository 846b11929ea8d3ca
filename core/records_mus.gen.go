// Code generated by musgen-go. DO NOT EDIT.

package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

var (
	maplgdFtxlDo9ΣPDSJT4cNP9AΞΞ   = ord.NewMapSer[string, string](ord.String, ord.String)
	slice3gMlmSΔhIe1ZXqΣDsTvbkwΞΞ = ord.NewSliceSer[float32](varint.Float32)
	sliceewBΣXFΣFDLMHIwTiyZvtMAΞΞ = ord.NewSliceSer[string](ord.String)
)

var IDMUS = iDMUS{}

type iDMUS struct{}

func (s iDMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s iDMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s iDMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s iDMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var SegmentTypeMUS = segmentTypeMUS{}

type segmentTypeMUS struct{}

func (s segmentTypeMUS) Marshal(v SegmentType, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s segmentTypeMUS) Unmarshal(bs []byte) (v SegmentType, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = SegmentType(tmp)
	return
}

func (s segmentTypeMUS) Size(v SegmentType) (size int) {
	return varint.Int.Size(int(v))
}

func (s segmentTypeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var IndexingStatusMUS = indexingStatusMUS{}

type indexingStatusMUS struct{}

func (s indexingStatusMUS) Marshal(v IndexingStatus, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s indexingStatusMUS) Unmarshal(bs []byte) (v IndexingStatus, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = IndexingStatus(tmp)
	return
}

func (s indexingStatusMUS) Size(v IndexingStatus) (size int) {
	return varint.Int.Size(int(v))
}

func (s indexingStatusMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var SegmentStatusMUS = segmentStatusMUS{}

type segmentStatusMUS struct{}

func (s segmentStatusMUS) Marshal(v SegmentStatus, bs []byte) (n int) {
	return varint.Int.Marshal(int(v), bs)
}

func (s segmentStatusMUS) Unmarshal(bs []byte) (v SegmentStatus, n int, err error) {
	tmp, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	v = SegmentStatus(tmp)
	return
}

func (s segmentStatusMUS) Size(v SegmentStatus) (size int) {
	return varint.Int.Size(int(v))
}

func (s segmentStatusMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int.Skip(bs)
}

var KeywordsMUS = keywordsMUS{}

type keywordsMUS struct{}

func (s keywordsMUS) Marshal(v Keywords, bs []byte) (n int) {
	n = sliceewBΣXFΣFDLMHIwTiyZvtMAΞΞ.Marshal(v.List, bs)
	n += varint.Int.Marshal(v.Count, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.ExtractedAt, bs[n:])
}

func (s keywordsMUS) Unmarshal(bs []byte) (v Keywords, n int, err error) {
	v.List, n, err = sliceewBΣXFΣFDLMHIwTiyZvtMAΞΞ.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Count, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ExtractedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s keywordsMUS) Size(v Keywords) (size int) {
	size = sliceewBΣXFΣFDLMHIwTiyZvtMAΞΞ.Size(v.List)
	size += varint.Int.Size(v.Count)
	return size + raw.TimeUnixMicro.Size(v.ExtractedAt)
}

func (s keywordsMUS) Skip(bs []byte) (n int, err error) {
	n, err = sliceewBΣXFΣFDLMHIwTiyZvtMAΞΞ.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DatasetId, bs[n:])
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.SourceRef, bs[n:])
	n += IndexingStatusMUS.Marshal(v.IndexingStatus, bs[n:])
	n += ord.String.Marshal(v.EmbeddingModel, bs[n:])
	n += varint.Int.Marshal(v.EmbeddingDimensions, bs[n:])
	n += maplgdFtxlDo9ΣPDSJT4cNP9AΞΞ.Marshal(v.ProcessingMetadata, bs[n:])
	n += ord.String.Marshal(v.LastError, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.StoppedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DatasetId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SourceRef, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IndexingStatus, n1, err = IndexingStatusMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EmbeddingDimensions, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ProcessingMetadata, n1, err = maplgdFtxlDo9ΣPDSJT4cNP9AΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastError, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.StoppedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DatasetId)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.SourceRef)
	size += IndexingStatusMUS.Size(v.IndexingStatus)
	size += ord.String.Size(v.EmbeddingModel)
	size += varint.Int.Size(v.EmbeddingDimensions)
	size += maplgdFtxlDo9ΣPDSJT4cNP9AΞΞ.Size(v.ProcessingMetadata)
	size += ord.String.Size(v.LastError)
	size += raw.TimeUnixMicro.Size(v.StoppedAt)
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	return size + raw.TimeUnixMicro.Size(v.UpdatedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IndexingStatusMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = maplgdFtxlDo9ΣPDSJT4cNP9AΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var SegmentMUS = segmentMUS{}

type segmentMUS struct{}

func (s segmentMUS) Marshal(v Segment, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += IDMUS.Marshal(v.DatasetId, bs[n:])
	n += varint.Int.Marshal(v.Position, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += varint.Int.Marshal(v.WordCount, bs[n:])
	n += varint.Int.Marshal(v.Tokens, bs[n:])
	n += KeywordsMUS.Marshal(v.Keywords, bs[n:])
	n += SegmentStatusMUS.Marshal(v.Status, bs[n:])
	n += IDMUS.Marshal(v.EmbeddingId, bs[n:])
	n += IDMUS.Marshal(v.ParentId, bs[n:])
	n += SegmentTypeMUS.Marshal(v.SegmentType, bs[n:])
	n += varint.Int.Marshal(v.HierarchyLevel, bs[n:])
	n += varint.Int.Marshal(v.ChildOrder, bs[n:])
	n += varint.Int.Marshal(v.ChildCount, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
	n += raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.CompletedAt, bs[n:])
}

func (s segmentMUS) Unmarshal(bs []byte) (v Segment, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DatasetId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Position, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.WordCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Tokens, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Keywords, n1, err = KeywordsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Status, n1, err = SegmentStatusMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.EmbeddingId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ParentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SegmentType, n1, err = SegmentTypeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.HierarchyLevel, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChildOrder, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChildCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CompletedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s segmentMUS) Size(v Segment) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.DocumentId)
	size += IDMUS.Size(v.DatasetId)
	size += varint.Int.Size(v.Position)
	size += ord.String.Size(v.Content)
	size += varint.Int.Size(v.WordCount)
	size += varint.Int.Size(v.Tokens)
	size += KeywordsMUS.Size(v.Keywords)
	size += SegmentStatusMUS.Size(v.Status)
	size += IDMUS.Size(v.EmbeddingId)
	size += IDMUS.Size(v.ParentId)
	size += SegmentTypeMUS.Size(v.SegmentType)
	size += varint.Int.Size(v.HierarchyLevel)
	size += varint.Int.Size(v.ChildOrder)
	size += varint.Int.Size(v.ChildCount)
	size += raw.TimeUnixMicro.Size(v.InsertedAt)
	size += raw.TimeUnixMicro.Size(v.UpdatedAt)
	return size + raw.TimeUnixMicro.Size(v.CompletedAt)
}

func (s segmentMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = KeywordsMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = SegmentStatusMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = SegmentTypeMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = varint.Int.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var EmbeddingMUS = embeddingMUS{}

type embeddingMUS struct{}

func (s embeddingMUS) Marshal(v Embedding, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.ModelName, bs[n:])
	n += ord.String.Marshal(v.ProviderName, bs[n:])
	n += ord.String.Marshal(v.Hash, bs[n:])
	n += slice3gMlmSΔhIe1ZXqΣDsTvbkwΞΞ.Marshal(v.Vector, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.InsertedAt, bs[n:])
}

func (s embeddingMUS) Unmarshal(bs []byte) (v Embedding, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.ModelName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ProviderName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Hash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = slice3gMlmSΔhIe1ZXqΣDsTvbkwΞΞ.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InsertedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s embeddingMUS) Size(v Embedding) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.ModelName)
	size += ord.String.Size(v.ProviderName)
	size += ord.String.Size(v.Hash)
	size += slice3gMlmSΔhIe1ZXqΣDsTvbkwΞΞ.Size(v.Vector)
	return size + raw.TimeUnixMicro.Size(v.InsertedAt)
}

func (s embeddingMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = ord.String.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = slice3gMlmSΔhIe1ZXqΣDsTvbkwΞΞ.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}

var CheckpointMUS = checkpointMUS{}

type checkpointMUS struct{}

func (s checkpointMUS) Marshal(v Checkpoint, bs []byte) (n int) {
	n = ord.String.Marshal(v.Stage, bs)
	n += IDMUS.Marshal(v.DocumentId, bs[n:])
	n += IDMUS.Marshal(v.LastSegmentId, bs[n:])
	return n + raw.TimeUnixMicro.Marshal(v.UpdatedAt, bs[n:])
}

func (s checkpointMUS) Unmarshal(bs []byte) (v Checkpoint, n int, err error) {
	v.Stage, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.LastSegmentId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = raw.TimeUnixMicro.Unmarshal(bs[n:])
	n += n1
	return
}

func (s checkpointMUS) Size(v Checkpoint) (size int) {
	size = ord.String.Size(v.Stage)
	size += IDMUS.Size(v.DocumentId)
	size += IDMUS.Size(v.LastSegmentId)
	return size + raw.TimeUnixMicro.Size(v.UpdatedAt)
}

func (s checkpointMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = IDMUS.Skip(bs[n:])
	n += n1
	if err != nil {
		return
	}
	n1, err = raw.TimeUnixMicro.Skip(bs[n:])
	n += n1
	return
}
