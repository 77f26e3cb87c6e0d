package models

import (
	"strconv"
	"strings"
)

// Submission is an immutable snapshot of a forum submission. It is created by
// a fetch pass and never mutated; a later fetch with the same ID supersedes it.
type Submission struct {
	ID           string `json:"id"`    // base-36 forum id
	NumID        int64  `json:"numId"` // base-10 form of ID
	Title        string `json:"title"`
	Author       string `json:"author"`
	Flair        string `json:"flair"` // location tag
	Thumbnail    string `json:"thumbnail"`
	CreatedAt    int64  `json:"createdAt"` // epoch seconds
	Score        int    `json:"score"`
	CommentCount int    `json:"commentCount"`
	Removed      bool   `json:"removed"` // removed by moderation or author deleted
}

// NumericID converts a base-36 forum id to its numeric form. Within the
// forum's id space, equal-length ids compare lexically in creation order, so
// the numeric form orders chronologically across lengths as well.
func NumericID(id string) int64 {
	n, err := strconv.ParseInt(strings.ToLower(id), 36, 64)
	if err != nil {
		return 0
	}
	return n
}

// Base36ID renders a numeric id back to the forum's base-36 form.
func Base36ID(n int64) string {
	return strconv.FormatInt(n, 36)
}

// Gone reports whether the submission should be treated as removed: either
// moderation removed it or its author no longer exists.
func (s *Submission) Gone() bool {
	return s.Removed || s.Author == "" || s.Author == "[deleted]"
}
