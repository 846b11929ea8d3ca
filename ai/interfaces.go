package ai

import "context"

// Embedder generates vector embeddings from text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts. Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityTagger runs token classification over a window of text.
// Implementations must be thread-safe for concurrent use.
type EntityTagger interface {
	// TagTokens labels each token of the text with an entity tag and a
	// confidence score. Tokens are returned in input order. An empty result
	// means no entities were found; callers decide how to fall back.
	TagTokens(ctx context.Context, text string) ([]TokenTag, error)
}

// Provider aggregates the AI services for convenient initialization and
// lifecycle management. A provider creates and owns Embedder and
// EntityTagger instances, ensuring they share configuration and resources.
type Provider interface {
	// Name identifies the provider, e.g. "openai" or "mock". Used as the
	// provider key in model mapping and on persisted Embedding records.
	Name() string

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// EntityTagger returns the token classification service.
	// The returned EntityTagger is safe for concurrent use.
	EntityTagger() EntityTagger

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
