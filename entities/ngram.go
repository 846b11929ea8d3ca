package entities

import (
	"slices"
	"strings"
	"unicode"
)

const (
	ngramMin = 2
	ngramMax = 6
)

// extractNgrams is the dependency-free extraction method: lowercase the
// text, drop stop words and punctuation, build sliding n-grams of 2 to 6
// terms, and score each by frequency weighted toward longer terms.
func extractNgrams(text string, maxEntities int) []string {
	tokens := contentTokens(text)
	if len(tokens) < ngramMin {
		return nil
	}

	type scored struct {
		term  string
		score float64
	}
	counts := make(map[string]int)
	order := make(map[string]int) // first-occurrence index for stable ties

	for n := ngramMin; n <= ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if counts[term] == 0 {
				order[term] = len(order)
			}
			counts[term]++
		}
	}

	ranked := make([]scored, 0, len(counts))
	for term, count := range counts {
		n := strings.Count(term, " ") + 1
		ranked = append(ranked, scored{
			term:  term,
			score: float64(count) * (1 + 0.5*float64(n-1)),
		})
	}

	slices.SortFunc(ranked, func(a, b scored) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		return order[a.term] - order[b.term]
	})

	if len(ranked) > maxEntities {
		ranked = ranked[:maxEntities]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.term
	}
	return out
}

// contentTokens lowercases and tokenizes text, stripping punctuation and
// stop words. Consecutive content words stay adjacent so n-grams read as
// phrases.
func contentTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})

	var tokens []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f == "" || isStopword(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
