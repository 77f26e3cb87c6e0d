package models

// Comment is an immutable record of one forum comment as fetched. Base-36 ids
// increase monotonically with creation time within the forum's id space; all
// bookmarking logic depends on that.
type Comment struct {
	ID               string `json:"id"`
	CreatedAt        int64  `json:"createdAt"` // epoch seconds
	SubmissionID     string `json:"submissionId"`
	Author           string `json:"author"`
	Body             string `json:"body"`
	SubmissionAuthor string `json:"submissionAuthor"`

	// The submission's reported comment count at the time this comment was
	// fetched. Coalescing uses it to know when a submission's backfill batch
	// is complete.
	SubmissionCommentCount int `json:"submissionCommentCount"`
}

func (c *Comment) SubmissionNumID() int64 {
	return NumericID(c.SubmissionID)
}

func (c *Comment) NumID() int64 {
	return NumericID(c.ID)
}
