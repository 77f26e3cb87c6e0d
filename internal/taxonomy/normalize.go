package taxonomy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics strips combining marks so "Méxican" scores like "Mexican".
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// wordSubstitutions maps whole normalized tokens to the spelling the table
// uses. Region qualifiers are truncated so that "european"/"eurasian" prefix-
// match either full form in candidate names after both sides normalize.
var wordSubstitutions = map[string]string{
	"european": "eur",
	"eurasian": "eur",
	"grey":     "gray",
	"colour":   "color",
	"gosling":  "goose",
	"duckling": "duck",
	"juv":      "",
	"juvenile": "",
	"immature": "",
	"adult":    "",
	"male":     "",
	"female":   "",
}

// Normalize lowercases, folds diacritics, strips punctuation except the four
// characters the category cues need (/ ( ) .), collapses whitespace and
// hyphen runs, and applies the word substitution table. Both query text and
// table names pass through here so prefix matching compares like with like.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	if folded, _, err := transform.String(foldDiacritics, lower); err == nil {
		lower = folded
	}

	var b strings.Builder
	b.Grow(len(lower))
	space := true // suppress leading space
	for _, r := range lower {
		switch {
		case r == '/' || r == '(' || r == ')' || r == '.':
			b.WriteRune(r)
			space = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		default:
			// whitespace, hyphens and all other punctuation collapse
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}

	words := strings.Fields(b.String())
	out := words[:0]
	for _, w := range words {
		if sub, ok := wordSubstitutions[strings.TrimRight(w, ".")]; ok {
			if sub == "" {
				continue
			}
			w = sub
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// ScoreTokens splits normalized text into the tokens the scorer compares.
// Parentheses and trailing dots are shed here; the cue pass needs them, the
// scorer does not.
func ScoreTokens(normalized string) []string {
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ' ' || r == '/' || r == '(' || r == ')'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimRight(f, "."); f != "" {
			out = append(out, f)
		}
	}
	return out
}
