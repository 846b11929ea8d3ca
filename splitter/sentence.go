package splitter

import (
	"regexp"
	"strings"
)

var sentenceEnd = regexp.MustCompile(`([.!?]["')\]]?)\s+`)

// splitSentences breaks text into sentences on sentence-ending punctuation
// followed by whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	rest := text
	for {
		loc := sentenceEnd.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}
		end := loc[3] // end of the punctuation group
		sentences = append(sentences, strings.TrimSpace(rest[:end]))
		rest = rest[loc[1]:]
	}
	if strings.TrimSpace(rest) != "" {
		sentences = append(sentences, strings.TrimSpace(rest))
	}
	return sentences
}

// splitSentence accumulates whole sentences up to ChunkSize characters.
// Overlap reuses trailing sentences whose combined length stays within
// ChunkOverlap plus 20% slack, so overlapping chunks share complete
// sentences instead of arbitrary cuts.
func splitSentence(text string, cfg Config) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	overlapBudget := float64(cfg.ChunkOverlap) * 1.2

	var chunks []string
	var current []string
	currentLen := 0

	emit := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Carry trailing sentences that fit the overlap budget.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			add := len(current[i])
			if carriedLen > 0 {
				add++ // joining space
			}
			if float64(carriedLen+add) > overlapBudget {
				break
			}
			carried = append([]string{current[i]}, carried...)
			carriedLen += add
		}
		if len(carried) == len(current) {
			carried = nil // carrying everything would just duplicate the chunk
			carriedLen = 0
		}
		current = carried
		currentLen = carriedLen
	}

	for _, sentence := range sentences {
		// A sentence longer than the whole chunk budget is force-split at
		// word boundaries rather than dropped.
		if len(sentence) > cfg.ChunkSize {
			emit()
			current = nil
			currentLen = 0
			chunks = append(chunks, splitLongSentence(sentence, cfg.ChunkSize)...)
			continue
		}

		add := len(sentence)
		if currentLen > 0 {
			add++ // joining space
		}
		if currentLen+add > cfg.ChunkSize {
			emit()
			add = len(sentence)
			if currentLen > 0 {
				add++
			}
		}
		current = append(current, sentence)
		currentLen += add
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// splitLongSentence cuts an oversized sentence at word boundaries, falling
// back to hard character cuts for single oversized words.
func splitLongSentence(sentence string, chunkSize int) []string {
	words := strings.Fields(sentence)

	var pieces []string
	var current []string
	currentLen := 0

	for _, word := range words {
		if len(word) > chunkSize {
			if len(current) > 0 {
				pieces = append(pieces, strings.Join(current, " "))
				current = nil
				currentLen = 0
			}
			pieces = append(pieces, hardSplit(word, chunkSize)...)
			continue
		}

		add := len(word)
		if currentLen > 0 {
			add++
		}
		if currentLen+add > chunkSize && len(current) > 0 {
			pieces = append(pieces, strings.Join(current, " "))
			current = nil
			currentLen = 0
			add = len(word)
		}
		current = append(current, word)
		currentLen += add
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}
	return pieces
}
