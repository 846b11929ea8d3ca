package splitter

import (
	"regexp"
	"strings"
)

var (
	markdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s`)
	pythonBoundary  = regexp.MustCompile(`(?m)^(class\s+\w|def\s+\w|async\s+def\s+\w)`)
)

// splitMarkdown cuts text at heading lines so every chunk starts at a
// heading when one exists. Sections larger than ChunkSize are re-split
// recursively; tiny adjacent sections are packed together.
func splitMarkdown(text string, cfg Config) []string {
	return splitStructured(text, cfg, markdownHeading)
}

// splitPython cuts text at top-level class and function definitions.
// Oversized blocks fall back to the recursive strategy.
func splitPython(text string, cfg Config) []string {
	return splitStructured(text, cfg, pythonBoundary)
}

func splitStructured(text string, cfg Config, boundary *regexp.Regexp) []string {
	sections := splitAtBoundaries(text, boundary)
	if len(sections) == 0 {
		return nil
	}

	recursiveCfg := cfg
	recursiveCfg.Strategy = StrategyRecursive
	recursiveCfg.Separators = nil

	var chunks []string
	var current strings.Builder

	emit := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
	}

	for _, section := range sections {
		if len(section) > cfg.ChunkSize {
			emit()
			chunks = append(chunks, splitRecursive(section, recursiveCfg)...)
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(section) > cfg.ChunkSize {
			emit()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(section)
	}
	emit()
	return chunks
}

// splitAtBoundaries returns the text partitioned at every boundary match,
// with each boundary starting a new section. Leading text before the first
// boundary forms its own section.
func splitAtBoundaries(text string, boundary *regexp.Regexp) []string {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	locs := boundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var sections []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			section := strings.TrimRight(text[prev:loc[0]], "\n")
			if strings.TrimSpace(section) != "" {
				sections = append(sections, section)
			}
		}
		prev = loc[0]
	}
	tail := strings.TrimRight(text[prev:], "\n")
	if strings.TrimSpace(tail) != "" {
		sections = append(sections, tail)
	}
	return sections
}
