package mock

import (
	"context"
	"strings"
	"unicode"

	"github.com/poiesic/indexit/ai"
)

// MockTagger is a test double for ai.EntityTagger.
// It allows custom behavior injection via function fields.
type MockTagger struct {
	// TagTokensFunc is called by TagTokens if set.
	// If nil, uses default heuristic behavior.
	TagTokensFunc func(ctx context.Context, text string) ([]ai.TokenTag, error)

	callCount int
}

// NewMockTagger creates a mock tagger with default heuristic behavior.
func NewMockTagger() *MockTagger {
	return &MockTagger{}
}

// TagTokens labels whitespace-separated tokens. The default heuristic tags
// runs of capitalized words as entity spans with fixed 0.9 confidence, which
// is deterministic and good enough to exercise span grouping in tests.
func (m *MockTagger) TagTokens(ctx context.Context, text string) ([]ai.TokenTag, error) {
	m.callCount++

	if m.TagTokensFunc != nil {
		return m.TagTokensFunc(ctx, text)
	}

	words := strings.Fields(text)
	tags := make([]ai.TokenTag, len(words))
	for i, word := range words {
		tags[i] = ai.TokenTag{Token: word, Tag: ai.TagOutside, Confidence: 0.99}
	}

	for i := 0; i < len(words); {
		if !capitalized(words[i]) {
			i++
			continue
		}
		j := i
		for j+1 < len(words) && capitalized(words[j+1]) {
			j++
		}
		switch {
		case i == j:
			tags[i].Tag = ai.TagBegin
		default:
			tags[i].Tag = ai.TagBegin
			for k := i + 1; k < j; k++ {
				tags[k].Tag = ai.TagInside
			}
			tags[j].Tag = ai.TagEnd
		}
		for k := i; k <= j; k++ {
			tags[k].Confidence = 0.9
		}
		i = j + 1
	}
	return tags, nil
}

// CallCount returns the number of times TagTokens was called.
func (m *MockTagger) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockTagger) Reset() {
	m.callCount = 0
	m.TagTokensFunc = nil
}

func capitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}
