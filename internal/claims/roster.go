package claims

import "strings"

// Roster knows which forum accounts are recognized reviewers and which are
// flagged non-participants (other bots, the publishing identity itself).
type Roster struct {
	reviewers       map[string]bool
	nonParticipants map[string]bool
}

func NewRoster(reviewers, nonParticipants []string) *Roster {
	r := &Roster{
		reviewers:       make(map[string]bool, len(reviewers)),
		nonParticipants: make(map[string]bool, len(nonParticipants)),
	}
	for _, u := range reviewers {
		r.reviewers[strings.ToLower(u)] = true
	}
	for _, u := range nonParticipants {
		r.nonParticipants[strings.ToLower(u)] = true
	}
	return r
}

func (r *Roster) IsReviewer(user string) bool {
	return r.reviewers[strings.ToLower(user)]
}

func (r *Roster) IsNonParticipant(user string) bool {
	return r.nonParticipants[strings.ToLower(user)]
}
