package ai

import "errors"

var (
	// ErrProviderUnavailable indicates the provider's backing service could
	// not be reached.
	ErrProviderUnavailable = errors.New("ai provider unavailable")

	// ErrModelNotFound indicates a logical model identifier with no mapping
	// for the active provider.
	ErrModelNotFound = errors.New("model not found in mapping")

	// ErrRateLimited indicates the provider rejected the request due to rate
	// limiting. Callers may retry with backoff.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("provider returned empty response")
)
