package actors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"bird-board/internal/taxonomy"
)

var (
	bodyCodeRe     = regexp.MustCompile(`ebird\.org/species/([a-z0-9]+)`)
	bodyReviewerRe = regexp.MustCompile(`\bu/([A-Za-z0-9_-]+)`)
)

// RenderAnswerBody formats a consensus as the bot's published comment. Each
// taxon is a species link that embeds its code, which is what makes the
// published comment round-trippable through ParseAnswerBody.
func RenderAnswerBody(taxa, reviewers []string, tax *taxonomy.Index) string {
	var b strings.Builder

	b.WriteString("Taxa recorded: ")
	for i, code := range taxa {
		if i > 0 {
			b.WriteString(", ")
		}
		name := tax.CommonName(code)
		if name == "" {
			name = code
		}
		fmt.Fprintf(&b, "[%s](https://ebird.org/species/%s)", name, code)
	}

	if len(reviewers) > 0 {
		b.WriteString("\n\nReviewed by ")
		for i, r := range reviewers {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("u/")
			b.WriteString(r)
		}
	}

	b.WriteString("\n\n^(Recorded automatically from identifications in this thread.)")
	return b.String()
}

// ParseAnswerBody recovers the taxa codes and reviewer names from a
// previously published comment body. Results are sorted and deduplicated.
func ParseAnswerBody(body string) (taxa, reviewers []string) {
	seen := make(map[string]bool)
	for _, m := range bodyCodeRe.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			taxa = append(taxa, m[1])
		}
	}
	seenR := make(map[string]bool)
	for _, m := range bodyReviewerRe.FindAllStringSubmatch(body, -1) {
		if !seenR[m[1]] {
			seenR[m[1]] = true
			reviewers = append(reviewers, m[1])
		}
	}
	sort.Strings(taxa)
	sort.Strings(reviewers)
	return taxa, reviewers
}
