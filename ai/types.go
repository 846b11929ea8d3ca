package ai

// Entity tag values in the BIOE scheme. B opens a span, I continues it,
// E closes it, and O marks a token outside any entity.
const (
	TagBegin   = "B-ENT"
	TagInside  = "I-ENT"
	TagEnd     = "E-ENT"
	TagOutside = "O"
)

// TokenTag is one token-classification result: the token text, its BIOE
// tag, and the model's confidence in the label.
type TokenTag struct {
	// Token is the surface form, which may be a sub-word piece depending on
	// the model's tokenizer.
	Token string

	// Tag is one of the Tag* constants.
	Tag string

	// Confidence is the model's score for this label in [0, 1].
	Confidence float64
}

// Entity returns true when the token is part of an entity span.
func (t TokenTag) Entity() bool {
	return t.Tag == TagBegin || t.Tag == TagInside || t.Tag == TagEnd
}

// GroupSpans folds a tag sequence into entity strings: each B opens a new
// span, I and E extend the open span, and O closes it. Sub-word pieces
// prefixed with "##" are joined without a space. Tokens below minConfidence
// close the open span without contributing to it.
func GroupSpans(tags []TokenTag, minConfidence float64) []string {
	var spans []string
	var current string

	flush := func() {
		if current != "" {
			spans = append(spans, current)
			current = ""
		}
	}

	for _, t := range tags {
		if !t.Entity() || t.Confidence < minConfidence {
			flush()
			continue
		}

		switch {
		case t.Tag == TagBegin:
			flush()
			current = stripSubword(t.Token)
		case current == "":
			// I or E without a preceding B still opens a span; models emit
			// this when an entity starts at a window boundary.
			current = stripSubword(t.Token)
		case isSubword(t.Token):
			current += stripSubword(t.Token)
		default:
			current += " " + t.Token
		}

		if t.Tag == TagEnd {
			flush()
		}
	}
	flush()
	return spans
}

func isSubword(token string) bool {
	return len(token) > 2 && token[0] == '#' && token[1] == '#'
}

func stripSubword(token string) string {
	if isSubword(token) {
		return token[2:]
	}
	return token
}
