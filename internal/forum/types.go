// Package forum is the HTTP client for the discussion forum: cursor-paginated
// listings, reads by id, the three comment write calls, and OAuth
// password-grant token refresh.
package forum

import (
	"context"

	"bird-board/internal/models"
)

// Reader covers every read path the pipeline takes. Listings use exclusive
// id cursors: Before pages newest-to-oldest, After pages oldest-to-newest.
type Reader interface {
	SubmissionsBefore(ctx context.Context, before string, limit int) ([]models.Submission, error)
	SubmissionsAfter(ctx context.Context, after string, limit int) ([]models.Submission, error)
	CommentsBefore(ctx context.Context, before string, limit int) ([]models.Comment, error)
	CommentsAfter(ctx context.Context, after string, limit int) ([]models.Comment, error)
	SubmissionsByID(ctx context.Context, ids []string) ([]models.Submission, error)
}

// Writer covers the publish pipeline's write calls.
type Writer interface {
	CreateComment(ctx context.Context, submissionID, body string) (commentID string, err error)
	EditComment(ctx context.Context, commentID, body string) error
	DeleteComment(ctx context.Context, commentID string) error
}

type wireSubmission struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Flair       string `json:"linkFlairText"`
	Thumbnail   string `json:"thumbnail"`
	CreatedUTC  int64  `json:"createdUtc"`
	Score       int    `json:"score"`
	NumComments int    `json:"numComments"`
	Removed     bool   `json:"removed"`
}

func (w wireSubmission) model() models.Submission {
	return models.Submission{
		ID:           w.ID,
		NumID:        models.NumericID(w.ID),
		Title:        w.Title,
		Author:       w.Author,
		Flair:        w.Flair,
		Thumbnail:    w.Thumbnail,
		CreatedAt:    w.CreatedUTC,
		Score:        w.Score,
		CommentCount: w.NumComments,
		Removed:      w.Removed,
	}
}

type wireComment struct {
	ID               string `json:"id"`
	CreatedUTC       int64  `json:"createdUtc"`
	SubmissionID     string `json:"submissionId"`
	Author           string `json:"author"`
	Body             string `json:"body"`
	SubmissionAuthor string `json:"submissionAuthor"`
	SubmissionNum    int    `json:"submissionNumComments"`
}

func (w wireComment) model() models.Comment {
	return models.Comment{
		ID:                     w.ID,
		CreatedAt:              w.CreatedUTC,
		SubmissionID:           w.SubmissionID,
		Author:                 w.Author,
		Body:                   w.Body,
		SubmissionAuthor:       w.SubmissionAuthor,
		SubmissionCommentCount: w.SubmissionNum,
	}
}

type submissionListing struct {
	Items []wireSubmission `json:"items"`
}

type commentListing struct {
	Items []wireComment `json:"items"`
}

type createCommentRequest struct {
	SubmissionID string `json:"submissionId"`
	Body         string `json:"body"`
}

type editCommentRequest struct {
	Body string `json:"body"`
}

type createCommentResponse struct {
	ID string `json:"id"`
}
