package taxonomy

import (
	"strings"
)

// Index holds the flat code table plus per-locale, per-category token indexes
// and answers fuzzy name resolution. It is built once at startup and is
// read-only afterwards, so it is safe for concurrent use.
type Index struct {
	entries  map[string]Entry
	byLocale map[Locale]map[Category][]candidate
}

type candidate struct {
	code   string
	tokens []string
}

func newIndex() *Index {
	return &Index{
		entries: make(map[string]Entry),
		byLocale: map[Locale]map[Category][]candidate{
			LocaleCommon:     make(map[Category][]candidate),
			LocaleScientific: make(map[Category][]candidate),
		},
	}
}

func (ix *Index) add(e Entry) {
	ix.entries[e.Code] = e
	if toks := ScoreTokens(Normalize(e.CommonName)); len(toks) > 0 {
		ix.byLocale[LocaleCommon][e.Category] = append(ix.byLocale[LocaleCommon][e.Category], candidate{e.Code, toks})
	}
	if toks := ScoreTokens(Normalize(e.SciName)); len(toks) > 0 {
		ix.byLocale[LocaleScientific][e.Category] = append(ix.byLocale[LocaleScientific][e.Category], candidate{e.Code, toks})
	}
}

// Lookup returns the table entry for a code.
func (ix *Index) Lookup(code string) (Entry, bool) {
	e, ok := ix.entries[code]
	return e, ok
}

// ValidCode reports whether code appears in the table. The extractor's
// command fast path validates codes here instead of fuzzy-resolving them.
func (ix *Index) ValidCode(code string) bool {
	_, ok := ix.entries[strings.ToLower(code)]
	return ok
}

// Ordinal returns the taxonomic sort position for a code, or -1.
func (ix *Index) Ordinal(code string) int {
	if e, ok := ix.entries[code]; ok {
		return e.Ordinal
	}
	return -1
}

// CommonName returns the display name for a code, falling back to the code.
func (ix *Index) CommonName(code string) string {
	if e, ok := ix.entries[code]; ok && e.CommonName != "" {
		return e.CommonName
	}
	return code
}

func (ix *Index) Len() int { return len(ix.entries) }

// Resolve maps free text to a taxonomy code, or "" when nothing matches.
// Resolution never fails with an error; an unresolvable name is simply "".
func (ix *Index) Resolve(freeText string) string {
	lower := strings.ToLower(freeText)

	// Two irreducible special cases, checked before any normalization:
	// "chicken" without "prairie" is the domestic chicken (prairie-chickens
	// are wild grouse), and "nonavian" is the not-a-bird sentinel.
	if strings.Contains(lower, "chicken") && !strings.Contains(lower, "prairie") {
		return CodeDomesticChicken
	}
	if strings.Contains(strings.ReplaceAll(strings.ReplaceAll(lower, "-", ""), " ", ""), "nonavian") {
		return CodeNonavian
	}

	normalized := Normalize(freeText)
	if normalized == "" {
		return ""
	}
	queryTokens := ScoreTokens(normalized)
	if len(queryTokens) == 0 {
		return ""
	}
	bonus := queryBonus(queryTokens)

	bestCode := ""
	bestScore := 0
	bestTokens := 0
	for _, cat := range CategoriesFor(normalized) {
		// Common names are always tried before scientific ones, and the
		// category is retried against scientific names before moving on.
		for _, loc := range []Locale{LocaleCommon, LocaleScientific} {
			for _, cand := range ix.byLocale[loc][cat] {
				score := scoreName(cand.tokens, queryTokens, bonus)
				if score == 100 {
					return cand.code
				}
				if score > bestScore || (score == bestScore && score > 0 && len(cand.tokens) < bestTokens) {
					bestCode, bestScore, bestTokens = cand.code, score, len(cand.tokens)
				}
			}
		}
	}

	if bestScore == 0 {
		return ""
	}
	return bestCode
}

// CategoriesFor applies the structural cues of normalized query text and
// returns candidate categories in priority order. The hint resolver reuses
// the same cues to pick its scoped external search.
func CategoriesFor(normalized string) []Category {
	tokens := strings.Fields(normalized)
	has := func(want string) bool {
		for _, t := range tokens {
			if strings.TrimRight(t, ".") == want {
				return true
			}
		}
		return false
	}

	switch {
	case has("hybrid"):
		return []Category{CategoryHybrid}
	case has("domestic") || has("feral"):
		return []Category{CategoryDomestic}
	case has("intergrade") || has("integrade"):
		return []Category{CategoryIntergrade}
	case strings.Contains(normalized, "/"):
		return []Category{CategorySlash}
	case isSpuhQuery(tokens):
		return []Category{CategorySpuh}
	case strings.Contains(normalized, " x "):
		return []Category{CategoryHybrid, CategoryIntergrade}
	case strings.Contains(normalized, "(") || has("subsp") || has("ssp"):
		return []Category{CategoryForm}
	default:
		return []Category{CategorySpecies, CategoryForm, CategoryHybrid}
	}
}

// PrimaryCategory is the first cue category for text, used to scope external
// hint searches.
func PrimaryCategory(text string) Category {
	return CategoriesFor(Normalize(text))[0]
}

// isSpuhQuery reports an isolated "sp"/"sp." token at either end of the query.
func isSpuhQuery(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	first := strings.TrimRight(tokens[0], ".")
	last := strings.TrimRight(tokens[len(tokens)-1], ".")
	return first == "sp" || last == "sp"
}
