package entities

import (
	"regexp"
	"strings"
)

var (
	// Single letters separated by spaces, an artifact of PDF text extraction:
	// "d o c u m e n t" should read "document".
	spacedLetters = regexp.MustCompile(`\b(?:[A-Za-z] ){2,}[A-Za-z]\b`)

	spaceAfterOpen   = regexp.MustCompile(`([(\[{])\s+`)
	spaceBeforeClose = regexp.MustCompile(`\s+([)\]}])`)

	// "1 , 000" and "3 . 14" read as "1,000" and "3.14".
	spacedNumber = regexp.MustCompile(`(\d)\s*([,.])\s*(\d)`)

	multiSpace = regexp.MustCompile(`[ \t]{2,}`)
)

// Normalize repairs spacing artifacts that upstream text extraction
// introduces, so both the regex patterns and the tagger see clean input.
func Normalize(text string) string {
	text = spacedLetters.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, " ", "")
	})
	text = spaceAfterOpen.ReplaceAllString(text, "$1")
	text = spaceBeforeClose.ReplaceAllString(text, "$1")
	text = spacedNumber.ReplaceAllString(text, "$1$2$3")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
