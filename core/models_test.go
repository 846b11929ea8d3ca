package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestEmbeddingHash(t *testing.T) {
	tests := []struct {
		name     string
		contentA string
		modelA   string
		contentB string
		modelB   string
		wantSame bool
	}{
		{
			name:     "same content and model",
			contentA: "hello world", modelA: "text-embedding-3-small",
			contentB: "hello world", modelB: "text-embedding-3-small",
			wantSame: true,
		},
		{
			name:     "different model",
			contentA: "hello world", modelA: "text-embedding-3-small",
			contentB: "hello world", modelB: "text-embedding-3-large",
			wantSame: false,
		},
		{
			name:     "different content",
			contentA: "hello world", modelA: "text-embedding-3-small",
			contentB: "goodbye world", modelB: "text-embedding-3-small",
			wantSame: false,
		},
		{
			name:     "separator prevents boundary collisions",
			contentA: "ab", modelA: "c",
			contentB: "a", modelB: "bc",
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashA := EmbeddingHash(tt.contentA, tt.modelA)
			hashB := EmbeddingHash(tt.contentB, tt.modelB)

			if tt.wantSame && hashA != hashB {
				t.Errorf("EmbeddingHash() produced different hashes: %s vs %s", hashA, hashB)
			}
			if !tt.wantSame && hashA == hashB {
				t.Errorf("EmbeddingHash() produced colliding hashes for distinct inputs")
			}
		})
	}
}

func TestEmbedding_Dimensions(t *testing.T) {
	emb := &Embedding{Vector: []float32{0.1, 0.2, 0.3}}
	if got := emb.Dimensions(); got != 3 {
		t.Errorf("Dimensions() = %d, want 3", got)
	}

	empty := &Embedding{}
	if got := empty.Dimensions(); got != 0 {
		t.Errorf("Dimensions() = %d, want 0", got)
	}
}
