package models

// Motion is a typed update intent against a submission's consensus: either a
// Suggestion (unprivileged) or a Review (from a recognized reviewer).
type Motion interface {
	// PlusTaxa returns the additive taxon set, nil when the motion overrides.
	PlusTaxa() []string
	// OverrideTaxa returns the replacement taxon set, nil when additive.
	OverrideTaxa() []string
	// Empty reports whether the motion carries no taxa at all.
	Empty() bool

	motion()
}

// Suggestion proposes taxa without reviewer privilege. A Suggestion carries
// either a plus set or an override set, never both.
type Suggestion struct {
	Plus     []string
	Override []string
}

// NewPlusSuggestion builds an additive Suggestion.
func NewPlusSuggestion(taxa ...string) Suggestion {
	return Suggestion{Plus: taxa}
}

// NewOverrideSuggestion builds a replacing Suggestion.
func NewOverrideSuggestion(taxa ...string) Suggestion {
	return Suggestion{Override: taxa}
}

func (s Suggestion) PlusTaxa() []string     { return s.Plus }
func (s Suggestion) OverrideTaxa() []string { return s.Override }
func (s Suggestion) Empty() bool            { return len(s.Plus) == 0 && len(s.Override) == 0 }
func (s Suggestion) motion()                {}

// AddTaxon folds one resolved taxon into the suggestion's active set.
func (s Suggestion) AddTaxon(code string) Suggestion {
	if code == "" {
		return s
	}
	if len(s.Override) > 0 {
		s.Override = appendUnique(s.Override, code)
	} else {
		s.Plus = appendUnique(s.Plus, code)
	}
	return s
}

// Review is a Suggestion with reviewer identity attached. Reviews outrank
// Suggestions in the consensus engine.
type Review struct {
	Suggestion
	Reviewer string
}

func NewPlusReview(reviewer string, taxa ...string) Review {
	return Review{Suggestion: NewPlusSuggestion(taxa...), Reviewer: reviewer}
}

func NewOverrideReview(reviewer string, taxa ...string) Review {
	return Review{Suggestion: NewOverrideSuggestion(taxa...), Reviewer: reviewer}
}

func (r Review) AddTaxon(code string) Review {
	r.Suggestion = r.Suggestion.AddTaxon(code)
	return r
}

// Extract is the raw output of parsing one comment: a base motion plus the
// hint text still awaiting taxonomy resolution. Hints are purified one at a
// time and folded back into the motion.
type Extract struct {
	Motion     Motion
	Hints      []string // category-scoped candidates
	VagueHints []string // need an unscoped taxon search
}

// EmptyExtract is what opt-outs, non-participants and contentless comments
// parse to.
func EmptyExtract() Extract {
	return Extract{Motion: Suggestion{}}
}

func (e Extract) IsEmpty() bool {
	return e.Motion.Empty() && len(e.Hints) == 0 && len(e.VagueHints) == 0
}

// Resolved reports whether no hints remain outstanding.
func (e Extract) Resolved() bool {
	return len(e.Hints) == 0 && len(e.VagueHints) == 0
}

// HintCount is the total outstanding hint count, vague included.
func (e Extract) HintCount() int {
	return len(e.Hints) + len(e.VagueHints)
}

func appendUnique(list []string, v string) []string {
	for _, have := range list {
		if have == v {
			return list
		}
	}
	return append(list, v)
}
