package openai

import "regexp"

var (
	unquotedKey   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_ ]*)(":)`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// repairJSON fixes the malformations small models emit most often: keys
// missing their opening quote (e.g. `, tag":` instead of `, "tag":`) and
// trailing commas before a closing brace or bracket.
func repairJSON(s string) string {
	s = unquotedKey.ReplaceAllString(s, `$1"$2$3`)
	s = trailingComma.ReplaceAllString(s, `$1`)
	return s
}
