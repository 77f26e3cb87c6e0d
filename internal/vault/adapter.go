// Package vault mirrors submissions and observations into a persistent store
// for external querying. Vault writes are fire-and-forget side effects; the
// live pipeline must never block or crash because this side-channel is down.
package vault

import (
	"context"
	"time"
)

// Submission status values mirrored to the store.
const (
	StatusUnanswered = "unanswered"
	StatusSuggested  = "suggested"
	StatusReviewed   = "reviewed"
)

// SubmissionRow is one row of the submissions table.
type SubmissionRow struct {
	ID           int64     `db:"id"`
	Location     string    `db:"location"`
	UploadDate   time.Time `db:"upload_date"`
	Karma        int       `db:"karma"`
	CommentCount int       `db:"comment_count"`
	Title        string    `db:"title"`
	Status       string    `db:"status"`
}

// Adapter is the vault interface. AssignObservations rebuilds a submission's
// observation set wholesale (delete-then-insert); deleting a submission
// cascades its observations.
type Adapter interface {
	UpsertSubmissions(ctx context.Context, rows []SubmissionRow) error
	DeleteSubmissions(ctx context.Context, ids []int64) error
	AssignObservations(ctx context.Context, submissionID int64, taxonOrdinals []int) error
	DeleteObservations(ctx context.Context, submissionID int64) error
	Close(ctx context.Context) error
}
