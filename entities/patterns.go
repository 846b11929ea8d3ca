package entities

import (
	"regexp"
	"strings"
)

// Universal high-confidence patterns. These hold across domains and
// languages that use the respective conventions, so matches bypass the
// model and the substring deduplication.
var (
	quotedTitle = regexp.MustCompile(`"([^"\n]{2,80})"`)
	curlyTitle  = regexp.MustCompile(`[“『「《]([^”』」》\n]{2,80})[”』」》]`)

	measurement = regexp.MustCompile(
		`\b\d+(?:[.,]\d+)?\s?(?:km/h|km|cm|mm|mg|kg|g|m|lbs?|mi|ft|in|GHz|MHz|TB|GB|MB|KB|ms)\b`)

	// Symbol units carry no trailing word boundary of their own.
	symbolMeasure = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s?(?:%|°C|°F)`)

	datePattern = regexp.MustCompile(
		`\b(?:\d{4}-\d{2}-\d{2}` +
			`|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s\d{1,2},?\s\d{4}` +
			`|\d{1,2}/\d{1,2}/\d{2,4})\b`)
)

// matchPatterns collects the pattern-derived entities from normalized text,
// in match order, without duplicates.
func matchPatterns(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(entity string) {
		entity = strings.TrimSpace(entity)
		if entity == "" {
			return
		}
		if _, ok := seen[entity]; ok {
			return
		}
		seen[entity] = struct{}{}
		out = append(out, entity)
	}

	for _, m := range quotedTitle.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range curlyTitle.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range measurement.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range symbolMeasure.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range datePattern.FindAllString(text, -1) {
		add(m)
	}
	return out
}
