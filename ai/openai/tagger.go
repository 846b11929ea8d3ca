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
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/indexit/ai"
)

// EntityTagger implements ai.EntityTagger using OpenAI-compatible chat APIs.
// The model is prompted to emit token-level BIOE labels as JSON.
type EntityTagger struct {
	client llms.Model
	logger *slog.Logger
}

// taggedToken is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type taggedToken struct {
	Token      string  `json:"token"`
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// tagging is the wrapper structure for the LLM's JSON response.
type tagging struct {
	Tokens []taggedToken `json:"tokens"`
}

// newEntityTagger is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityTagger(config *ai.Config) (*EntityTagger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.TaggerHost),
		openai.WithToken("none"),
		openai.WithModel(config.TaggerModel),
	)
	if err != nil {
		return nil, err
	}

	return &EntityTagger{
		client: client,
		logger: slog.Default().With("component", "openai-tagger"),
	}, nil
}

// NewEntityTagger creates a new entity tagger using the provided configuration.
//
// Returns ai.EntityTagger interface to enforce abstraction.
func NewEntityTagger(config *ai.Config) (ai.EntityTagger, error) {
	return newEntityTagger(config)
}

// TagTokens labels each token of the text with a BIOE entity tag.
func (t *EntityTagger) TagTokens(ctx context.Context, text string) ([]ai.TokenTag, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(taggingPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(text),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result tagging
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := t.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			t.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			t.logger.Debug("no choices returned from model")
			return nil, nil
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			t.logger.Warn("error parsing tagger response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		t.logger.Error("failed to parse tagger response after retries", "err", lastErr)
		return nil, lastErr
	}

	tags := make([]ai.TokenTag, 0, len(result.Tokens))
	for _, tok := range result.Tokens {
		tag := normalizeTag(tok.Tag)
		if tag == "" {
			continue
		}
		tags = append(tags, ai.TokenTag{
			Token:      tok.Token,
			Tag:        tag,
			Confidence: tok.Confidence,
		})
	}

	t.logger.Debug("tagged tokens", "count", len(tags))
	return tags, nil
}

// normalizeTag maps the model's tag spelling onto the canonical constants.
// Unknown tags yield "" and the token is dropped.
func normalizeTag(tag string) string {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "B", "B-ENT":
		return ai.TagBegin
	case "I", "I-ENT":
		return ai.TagInside
	case "E", "E-ENT":
		return ai.TagEnd
	case "O":
		return ai.TagOutside
	}
	return ""
}

// stripCodeFences removes markdown code fences some models wrap around JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
