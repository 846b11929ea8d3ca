package splitter

import "strings"

// splitSmart packs whole paragraphs up to ChunkSize. Paragraphs that exceed
// the budget on their own degrade to sentence accumulation, and trailing
// chunks below the minimum size merge into their predecessor. It trades exact
// window sizes for boundaries a reader would choose.
func splitSmart(text string, cfg Config) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder

	emit := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
	}

	for _, para := range paragraphs {
		if len(para) > cfg.ChunkSize {
			emit()
			chunks = append(chunks, splitSentence(para, cfg)...)
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(para) > cfg.ChunkSize {
			emit()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	emit()

	return mergeSmallChunks(chunks, cfg.ChunkSize)
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return paragraphs
}

// mergeSmallChunks folds chunks below the minimum size into the previous
// chunk, as long as the merge does not blow past the budget.
func mergeSmallChunks(chunks []string, chunkSize int) []string {
	min := minChunkSize(chunkSize)

	var merged []string
	for _, chunk := range chunks {
		if len(merged) > 0 && len(chunk) < min &&
			len(merged[len(merged)-1])+2+len(chunk) <= max(chunkSize, min) {
			merged[len(merged)-1] = merged[len(merged)-1] + "\n\n" + chunk
			continue
		}
		merged = append(merged, chunk)
	}
	return merged
}

// minChunkSize is the floor below which a chunk is considered too small to
// stand alone: 10% of the budget, but never less than 50 characters.
func minChunkSize(chunkSize int) int {
	min := chunkSize / 10
	if min < 50 {
		min = 50
	}
	return min
}
