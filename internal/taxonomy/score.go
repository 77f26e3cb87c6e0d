package taxonomy

import "strings"

// bonusTokens is the empirically tuned disambiguation table for generic
// English name qualifiers. The literal values are a fixture; do not re-derive
// them.
var bonusTokens = map[string]int{
	"common":   9,
	"eur":      8,
	"northern": 7,
	"great":    6,
	"greater":  6,
	"american": 5,
	"eastern":  4,
	"western":  3,
	"southern": 2,
}

// queryBonus is the maximum bonus among qualifier tokens present in the query.
func queryBonus(queryTokens []string) int {
	bonus := 0
	for _, t := range queryTokens {
		if b, ok := bonusTokens[t]; ok && b > bonus {
			bonus = b
		}
	}
	return bonus
}

// scoreName scores one candidate's token list against the query's. A perfect
// 100 requires a bijective prefix cover: every candidate token is a prefix of
// some distinct query token. Partial credit is 10 points per distinct covered
// candidate token plus the query bonus, capped at 99. Zero covered tokens is
// an automatic rejection, bonus or not.
func scoreName(candTokens, queryTokens []string, bonus int) int {
	covered := maxPrefixCover(candTokens, queryTokens)
	switch {
	case covered == 0:
		return 0
	case covered == len(candTokens):
		return 100
	default:
		score := 10*covered + bonus
		if score > 99 {
			score = 99
		}
		return score
	}
}

// maxPrefixCover computes the size of a maximum matching between candidate
// tokens and distinct query tokens they prefix (Kuhn's augmenting paths;
// token counts are tiny).
func maxPrefixCover(candTokens, queryTokens []string) int {
	matchOf := make([]int, len(queryTokens)) // query index -> cand index
	for i := range matchOf {
		matchOf[i] = -1
	}

	var augment func(c int, seen []bool) bool
	augment = func(c int, seen []bool) bool {
		for q, qt := range queryTokens {
			if seen[q] || !strings.HasPrefix(qt, candTokens[c]) {
				continue
			}
			seen[q] = true
			if matchOf[q] == -1 || augment(matchOf[q], seen) {
				matchOf[q] = c
				return true
			}
		}
		return false
	}

	covered := 0
	for c := range candTokens {
		if augment(c, make([]bool, len(queryTokens))) {
			covered++
		}
	}
	return covered
}
