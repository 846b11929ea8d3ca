package splitter

import "errors"

var (
	// ErrInvalidChunkSize indicates a chunk size that is zero or negative.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates a chunk overlap that is negative or not
	// smaller than the chunk size.
	ErrInvalidOverlap = errors.New("chunk overlap must be non-negative and smaller than chunk size")

	// ErrUnknownStrategy indicates an unrecognized split strategy.
	ErrUnknownStrategy = errors.New("unknown split strategy")
)
