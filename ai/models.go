package ai

import (
	"fmt"
	"sync"
)

// ModelInfo describes one concrete embedding model as a provider knows it.
type ModelInfo struct {
	// Name is the identifier the provider's API expects.
	Name string

	// Dimensions is the vector length the model produces, or 0 when unknown.
	Dimensions int
}

// ModelMapping translates logical model identifiers into the concrete names
// expected by each provider. Documents store the logical identifier; the
// mapping is consulted at embedding time so the same document can be
// re-embedded through a different provider without rewriting its metadata.
type ModelMapping struct {
	mu         sync.RWMutex
	byProvider map[string]map[string]ModelInfo
}

// DefaultModelMapping returns the built-in mapping table covering the
// providers this module ships adapters for.
func DefaultModelMapping() *ModelMapping {
	return &ModelMapping{
		byProvider: map[string]map[string]ModelInfo{
			"openai": {
				"embedding-small": {Name: "text-embedding-3-small", Dimensions: 1536},
				"embedding-large": {Name: "text-embedding-3-large", Dimensions: 3072},
				"embedding-ada":   {Name: "text-embedding-ada-002", Dimensions: 1536},
			},
			"ollama": {
				"embedding-small": {Name: "embeddinggemma", Dimensions: 768},
				"embedding-large": {Name: "mxbai-embed-large", Dimensions: 1024},
				"embedding-nomic": {Name: "nomic-embed-text", Dimensions: 768},
			},
			"mock": {
				"embedding-small": {Name: "mock-embedder", Dimensions: 384},
			},
		},
	}
}

// Register adds or replaces the mapping of a logical model for a provider.
func (m *ModelMapping) Register(provider, logical string, info ModelInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byProvider == nil {
		m.byProvider = make(map[string]map[string]ModelInfo)
	}
	models := m.byProvider[provider]
	if models == nil {
		models = make(map[string]ModelInfo)
		m.byProvider[provider] = models
	}
	models[logical] = info
}

// Resolve returns the concrete model name for a logical identifier. An
// identifier with no mapping passes through unchanged, so custom model names
// can be used directly.
func (m *ModelMapping) Resolve(provider, logical string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if info, ok := m.byProvider[provider][logical]; ok {
		return info.Name
	}
	return logical
}

// DimensionsFor returns the known vector length for a logical identifier.
// Returns ErrModelNotFound for identifiers outside the mapping; callers fall
// back to observing the first embedding's dimension at runtime.
func (m *ModelMapping) DimensionsFor(provider, logical string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.byProvider[provider][logical]
	if !ok {
		return 0, fmt.Errorf("%w: provider %q, model %q", ErrModelNotFound, provider, logical)
	}
	return info.Dimensions, nil
}
