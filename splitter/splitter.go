package splitter

import (
	"fmt"
	"strings"
)

// Strategy selects the splitting algorithm.
type Strategy string

const (
	StrategyCharacter Strategy = "character"
	StrategyRecursive Strategy = "recursive_character"
	StrategyToken     Strategy = "token"
	StrategySentence  Strategy = "sentence"
	StrategyMarkdown  Strategy = "markdown"
	StrategyPython    Strategy = "python_code"
	StrategySmart     Strategy = "smart_chunking"
)

// DefaultSeparators is the coarse-to-fine separator ladder used by the
// recursive strategy: paragraph, line, sentence-ending punctuation, clause
// punctuation, space, and finally a hard character split.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Config holds the parameters for a split run.
// ChunkSize and ChunkOverlap are character counts; the token strategy
// interprets them as estimated tokens.
type Config struct {
	Strategy     Strategy
	ChunkSize    int
	ChunkOverlap int
	Separators   []string     // recursive strategy only; nil uses DefaultSeparators
	Counter      TokenCounter // token strategy only; nil uses the estimator
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: size %d, overlap %d", ErrInvalidOverlap, c.ChunkSize, c.ChunkOverlap)
	}
	switch c.Strategy {
	case StrategyCharacter, StrategyRecursive, StrategyToken, StrategySentence,
		StrategyMarkdown, StrategyPython, StrategySmart:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownStrategy, c.Strategy)
}

// Split breaks text into an ordered chunk sequence according to the
// configured strategy. Empty input yields an empty sequence. When the text is
// dominated by a logographic script the space-free variant takes over
// regardless of strategy, since word boundaries do not exist there.
func Split(text string, cfg Config) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []string
	if logographicFraction(text) > logographicThreshold {
		chunks = splitLogographic(text, cfg)
	} else {
		switch cfg.Strategy {
		case StrategyCharacter:
			chunks = splitCharacter(text, cfg)
		case StrategyRecursive:
			chunks = splitRecursive(text, cfg)
		case StrategyToken:
			chunks = splitToken(text, cfg)
		case StrategySentence:
			chunks = splitSentence(text, cfg)
		case StrategyMarkdown:
			chunks = splitMarkdown(text, cfg)
		case StrategyPython:
			chunks = splitPython(text, cfg)
		case StrategySmart:
			chunks = splitSmart(text, cfg)
		}
	}

	return postProcess(chunks, cfg), nil
}

// splitCharacter produces fixed-width windows advancing by
// chunkSize - chunkOverlap. The last partial window is kept even if short.
func splitCharacter(text string, cfg Config) []string {
	runes := []rune(text)
	step := cfg.ChunkSize - cfg.ChunkOverlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitRecursive walks the separator ladder from coarse to fine. Within each
// window it scores every candidate boundary by separator priority weighted by
// how far right it sits, takes the best one, and falls back first to a word
// boundary in the last 20% of the window and then to a hard cut.
func splitRecursive(text string, cfg Config) []string {
	seps := cfg.Separators
	if seps == nil {
		seps = DefaultSeparators
	}

	runes := []rune(text)
	var chunks []string

	start := 0
	for start < len(runes) {
		remaining := len(runes) - start
		if remaining <= cfg.ChunkSize {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		window := string(runes[start : start+cfg.ChunkSize])
		cut := bestBoundary(window, seps, cfg.ChunkSize)
		if cut <= 0 {
			cut = wordBoundaryFallback(window, cfg.ChunkSize)
		}
		if cut <= 0 {
			cut = cfg.ChunkSize
		}

		chunks = append(chunks, string(runes[start:start+cut]))

		next := start + cut - cfg.ChunkOverlap
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return chunks
}

// bestBoundary returns the rune offset of the best separator boundary in
// window, or 0 when no separator occurs. Coarser separators get higher
// priority; boundaries further right score higher.
func bestBoundary(window string, seps []string, chunkSize int) int {
	bestScore := 0.0
	bestCut := 0

	for i, sep := range seps {
		if sep == "" {
			continue
		}
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := len([]rune(window[:idx+len(sep)]))
		if cut == 0 {
			continue
		}
		priority := float64(len(seps) - i)
		score := priority * float64(cut) / float64(chunkSize)
		if score > bestScore {
			bestScore = score
			bestCut = cut
		}
	}
	return bestCut
}

// wordBoundaryFallback looks for the last space within the final 20% of the
// window. Returns 0 when none exists.
func wordBoundaryFallback(window string, chunkSize int) int {
	runes := []rune(window)
	floor := chunkSize - chunkSize/5
	for i := len(runes) - 1; i >= floor && i > 0; i-- {
		if runes[i] == ' ' {
			return i + 1
		}
	}
	return 0
}

// splitToken accumulates words until the estimated token count would exceed
// ChunkSize (interpreted as tokens). Overlap is expressed in estimated tokens
// and converted back into a trailing word count.
func splitToken(text string, cfg Config) []string {
	counter := cfg.Counter
	if counter == nil {
		counter = estimateCounter{}
	}

	words := strings.Fields(text)
	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Carry trailing words worth roughly ChunkOverlap tokens.
		carry := 0
		carryTokens := 0
		for i := len(current) - 1; i >= 0 && carryTokens < cfg.ChunkOverlap; i-- {
			carryTokens += counter.Count(current[i])
			carry++
		}
		if carry >= len(current) {
			carry = 0 // avoid re-emitting the whole chunk
		}
		current = append([]string(nil), current[len(current)-carry:]...)
		currentTokens = carryTokens
		if carry == 0 {
			current = nil
			currentTokens = 0
		}
	}

	for _, word := range words {
		wordTokens := counter.Count(word)

		// A single word longer than the whole budget is force-split at a
		// character boundary rather than dropped.
		if wordTokens > cfg.ChunkSize {
			flush()
			current = nil
			currentTokens = 0
			for _, piece := range hardSplit(word, cfg.ChunkSize*charsPerTokenDefault) {
				chunks = append(chunks, piece)
			}
			continue
		}

		if currentTokens+wordTokens > cfg.ChunkSize {
			flush()
		}
		current = append(current, word)
		currentTokens += wordTokens
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// hardSplit cuts text into pieces of at most width runes.
func hardSplit(text string, width int) []string {
	if width <= 0 {
		width = 1
	}
	runes := []rune(text)
	var pieces []string
	for start := 0; start < len(runes); start += width {
		end := start + width
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
