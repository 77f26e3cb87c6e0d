// Package consensus folds an ordered sequence of motions into a single
// per-submission answer: the agreed taxa and the reviewers who vouched for
// them.
package consensus

import (
	"sort"

	"bird-board/internal/models"
)

// Answer is the consensus state for one submission. It is owned by exactly
// one processing context and must only see motions in comment-creation
// order; under that discipline no locking is needed.
type Answer struct {
	taxa      map[string]struct{}
	reviewers map[string]struct{}
}

func NewAnswer() *Answer {
	return &Answer{
		taxa:      make(map[string]struct{}),
		reviewers: make(map[string]struct{}),
	}
}

// Apply folds one motion in and reports whether the answer changed.
func (a *Answer) Apply(m models.Motion) bool {
	switch v := m.(type) {
	case models.Review:
		return a.applyReview(v)
	case models.Suggestion:
		return a.applySuggestion(v)
	default:
		return false
	}
}

// applySuggestion unions or replaces taxa, unless a review has ever been
// applied; reviewed answers ignore suggestions entirely.
func (a *Answer) applySuggestion(s models.Suggestion) bool {
	if a.Reviewed() {
		return false
	}
	if len(s.Override) > 0 {
		return a.replaceTaxa(s.Override)
	}
	return a.unionTaxa(s.Plus)
}

// applyReview applies the taxa like a suggestion would, but with authorship:
// an override review always credits its reviewer; an additive review credits
// the reviewer only if taxa actually changed, or if it is the first review
// ever and there is already something to ratify.
func (a *Answer) applyReview(r models.Review) bool {
	if len(r.Override) > 0 {
		changed := a.replaceTaxa(r.Override)
		return a.addReviewer(r.Reviewer) || changed
	}

	firstRatify := !a.Reviewed() && len(a.taxa) > 0
	changed := a.unionTaxa(r.Plus)
	if changed || firstRatify {
		return a.addReviewer(r.Reviewer) || changed
	}
	return false
}

// SuggestionSignificant reports whether applying s would change the answer,
// so callers can skip re-deriving and re-publishing identical state.
func (a *Answer) SuggestionSignificant(s models.Suggestion) bool {
	if a.Reviewed() {
		return false
	}
	if len(s.Override) > 0 {
		return !a.taxaEqual(s.Override)
	}
	return a.anyMissing(s.Plus)
}

// ReviewSignificant reports whether applying r would change the answer.
func (a *Answer) ReviewSignificant(r models.Review) bool {
	if len(r.Override) > 0 {
		if a.taxaEqual(r.Override) {
			_, credited := a.reviewers[r.Reviewer]
			return !credited
		}
		return true
	}
	if a.anyMissing(r.Plus) {
		return true
	}
	return !a.Reviewed() && len(a.taxa) > 0
}

// Reviewed reports whether any review has ever been applied. Once true, only
// further reviews can change state.
func (a *Answer) Reviewed() bool {
	return len(a.reviewers) > 0
}

// Taxa returns the consensus taxa, sorted for stable comparison and output.
func (a *Answer) Taxa() []string {
	return sortedKeys(a.taxa)
}

// Reviewers returns the crediting reviewers, sorted.
func (a *Answer) Reviewers() []string {
	return sortedKeys(a.reviewers)
}

func (a *Answer) Empty() bool {
	return len(a.taxa) == 0 && len(a.reviewers) == 0
}

// Matches compares against a previously published {taxa, reviewers} pair.
func (a *Answer) Matches(taxa, reviewers []string) bool {
	return setEqual(a.taxa, taxa) && setEqual(a.reviewers, reviewers)
}

func (a *Answer) replaceTaxa(taxa []string) bool {
	if a.taxaEqual(taxa) {
		return false
	}
	a.taxa = make(map[string]struct{}, len(taxa))
	for _, t := range taxa {
		a.taxa[t] = struct{}{}
	}
	return true
}

func (a *Answer) unionTaxa(taxa []string) bool {
	changed := false
	for _, t := range taxa {
		if _, ok := a.taxa[t]; !ok {
			a.taxa[t] = struct{}{}
			changed = true
		}
	}
	return changed
}

func (a *Answer) addReviewer(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := a.reviewers[name]; ok {
		return false
	}
	a.reviewers[name] = struct{}{}
	return true
}

func (a *Answer) anyMissing(taxa []string) bool {
	for _, t := range taxa {
		if _, ok := a.taxa[t]; !ok {
			return true
		}
	}
	return false
}

func (a *Answer) taxaEqual(taxa []string) bool {
	return setEqual(a.taxa, taxa)
}

func setEqual(set map[string]struct{}, list []string) bool {
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		seen[v] = struct{}{}
	}
	if len(seen) != len(set) {
		return false
	}
	for v := range seen {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
