package entities

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/indexit/ai"
	"github.com/poiesic/indexit/ai/mock"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "spaced letters rejoined",
			input: "the d o c u m e n t was scanned",
			want:  "the document was scanned",
		},
		{
			name:  "bracket spacing",
			input: "see ( appendix A ) for details",
			want:  "see (appendix A) for details",
		},
		{
			name:  "number spacing",
			input: "revenue of 1 , 000 units",
			want:  "revenue of 1,000 units",
		},
		{
			name:  "collapsed whitespace",
			input: "too   many    spaces",
			want:  "too many spaces",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestMatchPatterns(t *testing.T) {
	text := `The "Annual Report" cites 45 kg of samples collected on 2024-03-15, a 12% increase.`
	got := matchPatterns(text)

	assert.Contains(t, got, "Annual Report")
	assert.Contains(t, got, "45 kg")
	assert.Contains(t, got, "2024-03-15")
	assert.Contains(t, got, "12%")
}

func TestMatchPatterns_CurlyQuotes(t *testing.T) {
	got := matchPatterns("読んだ本は《論語》だった")
	assert.Contains(t, got, "論語")
}

func TestExtractNgrams(t *testing.T) {
	text := "machine learning improves machine learning systems"
	got := extractNgrams(text, 5)

	require.NotEmpty(t, got)
	assert.Equal(t, "machine learning", got[0])
	assert.LessOrEqual(t, len(got), 5)
}

func TestExtractNgrams_TooShort(t *testing.T) {
	assert.Empty(t, extractNgrams("word", 5))
	assert.Empty(t, extractNgrams("the of and", 5))
}

func TestExtract_NgramDefault(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), "database indexing speeds up database indexing workloads", Config{})
	require.NoError(t, err)

	assert.Equal(t, MethodNgram, res.Method)
	assert.Equal(t, ngramConfidence, res.Confidence)
	assert.NotEmpty(t, res.Entities)
}

func TestExtract_EmptyText(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(), "   ", Config{})
	require.NoError(t, err)
	assert.Empty(t, res.Entities)
}

func TestExtract_PatternModel(t *testing.T) {
	tagger := mock.NewMockTagger()
	tagger.TagTokensFunc = func(ctx context.Context, text string) ([]ai.TokenTag, error) {
		return []ai.TokenTag{
			{Token: "The", Tag: ai.TagOutside, Confidence: 0.99},
			{Token: "Eiffel", Tag: ai.TagBegin, Confidence: 0.95},
			{Token: "Tower", Tag: ai.TagEnd, Confidence: 0.94},
			{Token: "is", Tag: ai.TagOutside, Confidence: 0.99},
			{Token: "in", Tag: ai.TagOutside, Confidence: 0.99},
			{Token: "Paris", Tag: ai.TagBegin, Confidence: 0.92},
		}, nil
	}

	e := New(WithTagger(tagger))
	res, err := e.Extract(context.Background(), "The Eiffel Tower is in Paris", Config{})
	require.NoError(t, err)

	assert.Equal(t, MethodPatternModel, res.Method)
	assert.Equal(t, []string{"Eiffel Tower", "Paris"}, res.Entities)
	assert.InDelta(t, 0.936, res.Confidence, 0.01)
}

func TestExtract_ModelErrorFallsBack(t *testing.T) {
	tagger := mock.NewMockTagger()
	tagger.TagTokensFunc = func(ctx context.Context, text string) ([]ai.TokenTag, error) {
		return nil, errors.New("model offline")
	}

	e := New(WithTagger(tagger))
	res, err := e.Extract(context.Background(),
		"vector database stores embeddings for vector database queries", Config{})
	require.NoError(t, err)

	assert.Equal(t, MethodNgram, res.Method)
	assert.NotEmpty(t, res.Entities)
}

func TestExtract_ZeroModelEntitiesFallsBack(t *testing.T) {
	tagger := mock.NewMockTagger()
	tagger.TagTokensFunc = func(ctx context.Context, text string) ([]ai.TokenTag, error) {
		return []ai.TokenTag{
			{Token: "nothing", Tag: ai.TagOutside, Confidence: 0.99},
			{Token: "notable", Tag: ai.TagOutside, Confidence: 0.99},
		}, nil
	}

	e := New(WithTagger(tagger))
	res, err := e.Extract(context.Background(),
		"search index rebuilds overnight so search index stays fresh", Config{})
	require.NoError(t, err)

	assert.Equal(t, MethodNgram, res.Method)
	assert.NotEmpty(t, res.Entities)
}

func TestExtract_MaxEntitiesTruncation(t *testing.T) {
	e := New()
	res, err := e.Extract(context.Background(),
		"alpha beta gamma delta epsilon zeta eta theta iota kappa", Config{MaxEntities: 3})
	require.NoError(t, err)

	assert.Len(t, res.Entities, 3)
}

func TestDedupeSubstrings(t *testing.T) {
	patterns := []string{"Annual Report 2024"}
	spans := []string{"Annual Report", "Quarterly Review", "Quarterly Review"}

	got := dedupeSubstrings(patterns, spans)
	assert.Equal(t, []string{"Quarterly Review"}, got)
}

func TestWindows(t *testing.T) {
	out := windows("one two three four five", 9)
	assert.Equal(t, []string{"one two", "three", "four five"}, out)
}
