package repair

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNoEmbeddings is returned when a repair target has no embedded
	// segments to inspect.
	ErrNoEmbeddings = errors.New("document has no embedded segments")
)
