package splitter

import (
	"strings"
	"unicode"
)

// logographicThreshold is the fraction of logographic runes above which the
// whole text is treated as space-free and routed to splitLogographic.
const logographicThreshold = 0.15

var logographicRanges = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

func isLogographic(r rune) bool {
	for _, rt := range logographicRanges {
		if unicode.Is(rt, r) {
			return true
		}
	}
	return false
}

// logographicFraction returns the share of non-space runes that belong to a
// logographic script.
func logographicFraction(text string) float64 {
	total := 0
	logo := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isLogographic(r) {
			logo++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(logo) / float64(total)
}

// Fullwidth sentence and clause punctuation used by CJK text.
var logographicSeparators = []rune{'。', '！', '？', '；', '，', '、'}

func isLogographicSeparator(r rune) bool {
	for _, sep := range logographicSeparators {
		if r == sep {
			return true
		}
	}
	return false
}

// splitLogographic chunks space-free text by paragraph first, then by
// fullwidth punctuation, and finally by rune windows. ChunkSize and
// ChunkOverlap count runes.
func splitLogographic(text string, cfg Config) []string {
	var chunks []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len([]rune(para)) <= cfg.ChunkSize {
			chunks = append(chunks, para)
			continue
		}
		chunks = append(chunks, splitLogographicRunes(para, cfg)...)
	}
	return chunks
}

func splitLogographicRunes(text string, cfg Config) []string {
	runes := []rune(text)

	var chunks []string
	start := 0
	for start < len(runes) {
		remaining := len(runes) - start
		if remaining <= cfg.ChunkSize {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// Prefer the last fullwidth separator inside the window, keeping the
		// punctuation with the chunk it closes.
		end := start + cfg.ChunkSize
		cut := end
		for i := end - 1; i > start; i-- {
			if isLogographicSeparator(runes[i]) {
				cut = i + 1
				break
			}
		}

		chunks = append(chunks, string(runes[start:cut]))

		next := cut - cfg.ChunkOverlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}
