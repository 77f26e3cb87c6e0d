// Package claims turns raw comment bodies into typed consensus motions plus
// the free-text hints that still need taxonomy resolution.
package claims

import (
	"strings"

	"bird-board/internal/models"
	"bird-board/internal/taxonomy"
)

const (
	// OptOutToken anywhere in a body makes the whole comment invisible to the
	// pipeline.
	OptOutToken = "!nobot"

	// ReviewOptOutToken lets a recognized reviewer comment without their
	// words carrying review weight.
	ReviewOptOutToken = "!unofficial"

	// RemovalToken is the authorized removal command; authorization is the
	// caller's concern.
	RemovalToken = "!remove"

	addCommand      = "!addtaxa"
	overrideCommand = "!overridetaxa"

	// Command scan bounds. Stopping the scan at the first illegal character
	// keeps pathological bodies from costing more than this many bytes.
	commandLimit         = 256
	reviewerCommandLimit = 512
)

// Extractor parses one comment into an Extract. It is stateless and safe for
// concurrent use.
type Extractor struct {
	tax    *taxonomy.Index
	roster *Roster
}

func NewExtractor(tax *taxonomy.Index, roster *Roster) *Extractor {
	return &Extractor{tax: tax, roster: roster}
}

// Extract parses the comment body. Non-participant authors and opted-out
// bodies yield the empty Extract; a recognized command yields a fully
// resolved motion; otherwise the body goes through the markdown grammar and
// may come back with unresolved hints.
func (e *Extractor) Extract(c models.Comment) models.Extract {
	if e.roster.IsNonParticipant(c.Author) || strings.Contains(c.Body, OptOutToken) {
		return models.EmptyExtract()
	}

	reviewer := e.roster.IsReviewer(c.Author) && !strings.Contains(c.Body, ReviewOptOutToken)

	if motion, ok := e.extractCommand(c.Body, c.Author, reviewer); ok {
		return models.Extract{Motion: motion}
	}

	// Cheap short-circuit: without a link or at least two '+' delimiters the
	// full parser cannot find anything.
	if !containsLink(c.Body) && strings.Count(c.Body, "+") < 2 {
		return models.EmptyExtract()
	}

	taxa, hints, vague := e.parseBody(c.Body)
	var motion models.Motion
	if reviewer {
		motion = models.NewPlusReview(c.Author, taxa...)
	} else {
		motion = models.NewPlusSuggestion(taxa...)
	}
	return models.Extract{Motion: motion, Hints: hints, VagueHints: vague}
}

// IsRemoval reports an explicit removal command line. The caller decides
// whether the author is authorized to issue it.
func IsRemoval(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == RemovalToken || strings.HasPrefix(strings.ToLower(line), RemovalToken+" ") {
			return true
		}
	}
	return false
}

// extractCommand recognizes an explicit !addTaxa / !overrideTaxa command line
// carrying already-valid taxonomy codes. A malformed command with zero valid
// codes yields an empty Suggestion even from a reviewer; an empty Review
// would ratify existing taxa, which a typo must never do.
func (e *Extractor) extractCommand(body, author string, reviewer bool) (models.Motion, bool) {
	limit := commandLimit
	if reviewer {
		limit = reviewerCommandLimit
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		var override bool
		var rest string
		switch {
		case hasCommandPrefix(lower, addCommand):
			rest = line[len(addCommand):]
		case hasCommandPrefix(lower, overrideCommand):
			override = true
			rest = line[len(overrideCommand):]
		default:
			continue
		}

		codes := scanCodes(rest, limit, e.tax)
		if len(codes) == 0 {
			return models.Suggestion{}, true
		}
		switch {
		case reviewer && override:
			return models.NewOverrideReview(author, codes...), true
		case reviewer:
			return models.NewPlusReview(author, codes...), true
		case override:
			return models.NewOverrideSuggestion(codes...), true
		default:
			return models.NewPlusSuggestion(codes...), true
		}
	}
	return nil, false
}

// hasCommandPrefix requires the command token to be followed by a delimiter
// or end of line, so "!addtaxation" is not a command.
func hasCommandPrefix(lower, cmd string) bool {
	if !strings.HasPrefix(lower, cmd) {
		return false
	}
	if len(lower) == len(cmd) {
		return true
	}
	c := lower[len(cmd)]
	return c == ' ' || c == '\t' || c == ','
}

// scanCodes reads comma/whitespace-delimited codes from raw, stopping at the
// first illegal character or after limit bytes, and keeps the ones the
// taxonomy table recognizes.
func scanCodes(raw string, limit int, tax *taxonomy.Index) []string {
	if len(raw) > limit {
		raw = raw[:limit]
	}
	end := len(raw)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		legal := c == ' ' || c == '\t' || c == ',' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !legal {
			end = i
			break
		}
	}

	fields := strings.FieldsFunc(raw[:end], func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	var codes []string
	for _, f := range fields {
		f = strings.ToLower(f)
		if tax.ValidCode(f) {
			codes = appendUniqueCode(codes, f)
		}
	}
	return codes
}

func appendUniqueCode(codes []string, code string) []string {
	for _, have := range codes {
		if have == code {
			return codes
		}
	}
	return append(codes, code)
}

func containsLink(body string) bool {
	return strings.Contains(body, "://") ||
		strings.Contains(body, "](") ||
		strings.Contains(body, "www.")
}
