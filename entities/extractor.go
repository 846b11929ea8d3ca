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


package entities

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/indexit/ai"
)

// Method selects the extraction pipeline.
type Method string

const (
	// MethodPatternModel combines regex patterns with a token-classification
	// model. Requires a tagger; falls back to n-grams when the model pass
	// fails or finds nothing.
	MethodPatternModel Method = "pattern+model"

	// MethodNgram is the dependency-free frequency method.
	MethodNgram Method = "ngram"
)

const (
	defaultMaxEntities   = 10
	defaultMinConfidence = 0.6
	defaultWindowSize    = 400

	// Confidence reported for results produced without a model.
	ngramConfidence = 0.5
)

// Config holds the parameters for one extraction run.
type Config struct {
	// Method selects the pipeline. Empty picks pattern+model when a tagger
	// is available, n-gram otherwise.
	Method Method

	// MaxEntities caps the result length. Default 10.
	MaxEntities int

	// MinConfidence filters model-tagged tokens. Default 0.6.
	MinConfidence float64

	// WindowSize bounds the text length (in characters) sent to the model
	// per call. Default 400.
	WindowSize int
}

// Result is the outcome of one extraction run. Method records the pipeline
// that actually produced the entities, which differs from the requested one
// after a fallback.
type Result struct {
	Entities   []string
	Confidence float64
	Method     Method
}

// Extractor extracts keyword entities from text. Safe for concurrent use.
type Extractor struct {
	tagger ai.EntityTagger
	logger *slog.Logger
}

// Option is a functional option for configuring an Extractor.
type Option func(*Extractor)

// WithTagger attaches a token-classification model, enabling the
// pattern+model method.
func WithTagger(tagger ai.EntityTagger) Option {
	return func(e *Extractor) {
		e.tagger = tagger
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor. Without a tagger only the n-gram method is
// available.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default().With("component", "entity-extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the configured pipeline over text.
func (e *Extractor) Extract(ctx context.Context, text string, cfg Config) (Result, error) {
	cfg = e.withDefaults(cfg)

	if strings.TrimSpace(text) == "" {
		return Result{Method: cfg.Method}, nil
	}

	if cfg.Method == MethodNgram || e.tagger == nil {
		return Result{
			Entities:   extractNgrams(text, cfg.MaxEntities),
			Confidence: ngramConfidence,
			Method:     MethodNgram,
		}, nil
	}

	normalized := Normalize(text)
	patternEntities := matchPatterns(normalized)

	spans, confidence, err := e.modelSpans(ctx, normalized, cfg)
	if err != nil || len(spans) == 0 {
		if err != nil {
			e.logger.Warn("model extraction failed, falling back to ngrams", "err", err)
		}
		entities := merge(patternEntities, extractNgrams(normalized, cfg.MaxEntities), cfg.MaxEntities)
		return Result{
			Entities:   entities,
			Confidence: ngramConfidence,
			Method:     MethodNgram,
		}, nil
	}

	entities := dedupeSubstrings(patternEntities, spans)
	entities = merge(patternEntities, entities, cfg.MaxEntities)

	return Result{
		Entities:   entities,
		Confidence: confidence,
		Method:     MethodPatternModel,
	}, nil
}

func (e *Extractor) withDefaults(cfg Config) Config {
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = defaultMaxEntities
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = defaultMinConfidence
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = defaultWindowSize
	}
	if cfg.Method == "" {
		if e.tagger != nil {
			cfg.Method = MethodPatternModel
		} else {
			cfg.Method = MethodNgram
		}
	}
	return cfg
}

// modelSpans runs the tagger over bounded windows of the text and groups
// the tagged tokens into entity spans. Returns the mean confidence of the
// retained entity tokens.
func (e *Extractor) modelSpans(ctx context.Context, text string, cfg Config) ([]string, float64, error) {
	var spans []string
	var confidenceSum float64
	var confidenceCount int

	for _, window := range windows(text, cfg.WindowSize) {
		tags, err := e.tagger.TagTokens(ctx, window)
		if err != nil {
			return nil, 0, err
		}
		for _, tag := range tags {
			if tag.Entity() && tag.Confidence >= cfg.MinConfidence {
				confidenceSum += tag.Confidence
				confidenceCount++
			}
		}
		for _, span := range ai.GroupSpans(tags, cfg.MinConfidence) {
			if stopwordsOnly(span) {
				continue
			}
			spans = append(spans, span)
		}
	}

	if confidenceCount == 0 {
		return spans, 0, nil
	}
	return spans, confidenceSum / float64(confidenceCount), nil
}

// windows splits text into pieces of at most size characters, cutting at
// word boundaries so the tagger never sees half a word.
func windows(text string, size int) []string {
	words := strings.Fields(text)

	var out []string
	var current []string
	currentLen := 0

	for _, word := range words {
		add := len(word)
		if currentLen > 0 {
			add++
		}
		if currentLen+add > size && len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
			currentLen = 0
			add = len(word)
		}
		current = append(current, word)
		currentLen += add
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

func stopwordsOnly(span string) bool {
	for _, word := range strings.Fields(strings.ToLower(span)) {
		if !isStopword(word) {
			return false
		}
	}
	return true
}

// dedupeSubstrings drops model spans that are strict substrings of a longer
// retained entity. Pattern-derived entities are exempt from removal but do
// participate in suppressing shorter spans.
func dedupeSubstrings(patternEntities, spans []string) []string {
	all := make([]string, 0, len(patternEntities)+len(spans))
	all = append(all, patternEntities...)
	all = append(all, spans...)

	var out []string
	seen := make(map[string]struct{})
	for _, span := range spans {
		if _, ok := seen[span]; ok {
			continue
		}
		seen[span] = struct{}{}

		subsumed := false
		for _, other := range all {
			if other != span && strings.Contains(other, span) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, span)
		}
	}
	return out
}

// merge prepends the pattern entities to rest, dedupes exact matches, and
// truncates to maxEntities.
func merge(patternEntities, rest []string, maxEntities int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, entity := range append(append([]string(nil), patternEntities...), rest...) {
		if _, ok := seen[entity]; ok {
			continue
		}
		seen[entity] = struct{}{}
		out = append(out, entity)
		if len(out) == maxEntities {
			break
		}
	}
	return out
}
