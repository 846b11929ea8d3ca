// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"log/slog"

	"github.com/poiesic/indexit/ai"
)

// ProviderName is the key this provider registers under in model mappings
// and on persisted embedding records.
const ProviderName = "openai"

// Provider implements ai.Provider using OpenAI-compatible services.
// It manages embedder and entity tagger instances.
type Provider struct {
	config   *ai.Config
	embedder *Embedder
	tagger   *EntityTagger
	logger   *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The logical embedding model from the config is resolved through mapping
// before the embedder client is built.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config, mapping *ai.ModelMapping) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if mapping == nil {
		mapping = ai.DefaultModelMapping()
	}

	model := mapping.Resolve(ProviderName, config.EmbeddingModel)

	embedder, err := newEmbedder(config, model)
	if err != nil {
		return nil, err
	}

	tagger, err := newEntityTagger(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		embedder: embedder,
		tagger:   tagger,
		logger:   slog.Default().With("component", "openai-provider"),
	}, nil
}

// Name identifies this provider.
func (p *Provider) Name() string {
	return ProviderName
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// EntityTagger returns the token classification service.
func (p *Provider) EntityTagger() ai.EntityTagger {
	return p.tagger
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
