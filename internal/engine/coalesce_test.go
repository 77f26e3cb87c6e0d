package engine

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bird-board/internal/claims"
	"bird-board/internal/models"
)

type fakeReader struct {
	subPages     [][]models.Submission
	commentPages [][]models.Comment

	subCalls     int
	commentCalls int
}

func (f *fakeReader) SubmissionsBefore(_ context.Context, _ string, _ int) ([]models.Submission, error) {
	if f.subCalls >= len(f.subPages) {
		return nil, nil
	}
	page := f.subPages[f.subCalls]
	f.subCalls++
	return page, nil
}

func (f *fakeReader) SubmissionsAfter(context.Context, string, int) ([]models.Submission, error) {
	return nil, nil
}

func (f *fakeReader) CommentsBefore(_ context.Context, _ string, _ int) ([]models.Comment, error) {
	if f.commentCalls >= len(f.commentPages) {
		return nil, nil
	}
	page := f.commentPages[f.commentCalls]
	f.commentCalls++
	return page, nil
}

func (f *fakeReader) CommentsAfter(context.Context, string, int) ([]models.Comment, error) {
	return nil, nil
}

func (f *fakeReader) SubmissionsByID(context.Context, []string) ([]models.Submission, error) {
	return nil, nil
}

func fixtureSub(numID, createdAt int64, author string, comments int) models.Submission {
	return models.Submission{
		ID:           models.Base36ID(numID),
		NumID:        numID,
		Title:        "title " + models.Base36ID(numID),
		Author:       author,
		CreatedAt:    createdAt,
		CommentCount: comments,
	}
}

func fixtureComment(id string, createdAt int64, subNumID int64, author, body string) models.Comment {
	return models.Comment{
		ID:               id,
		CreatedAt:        createdAt,
		SubmissionID:     models.Base36ID(subNumID),
		Author:           author,
		Body:             body,
		SubmissionAuthor: "op",
	}
}

func TestCoalesceRebuildsWindow(t *testing.T) {
	now := time.Now().Unix()

	reader := &fakeReader{
		subPages: [][]models.Submission{{
			fixtureSub(30, now-10, "op", 3),
			fixtureSub(20, now-20, "[deleted]", 2), // removed, shelved up front
			fixtureSub(10, now-7200, "op", 5),      // beyond the lookback cutoff
		}},
		commentPages: [][]models.Comment{{
			fixtureComment("c5", now-1, 30, "alice", "a +blue jay+"),
			fixtureComment("c4", now-2, 30, "birdbot", "Taxa recorded: ..."),
			fixtureComment("c3", now-3, 20, "bob", "on the removed one"),
			fixtureComment("c2", now-4, 30, "carol", "nice bird"),
		}},
	}

	co := &Coalescer{
		Log:      slog.Default(),
		Reader:   reader,
		Roster:   claims.NewRoster([]string{"revkim"}, nil),
		BotUser:  "birdbot",
		Lookback: time.Hour,
		PageSize: 100,
	}

	res, err := co.Run(context.Background())
	assert.NoError(t, err)

	assert.Len(t, res.Batches, 1)
	batch := res.Batches[0]
	assert.Equal(t, int64(30), batch.Sub.NumID)
	// Comments come back in posting order, bot comments excluded.
	assert.Len(t, batch.Comments, 2)
	assert.Equal(t, "c2", batch.Comments[0].ID)
	assert.Equal(t, "c5", batch.Comments[1].ID)

	assert.Len(t, res.Shelved, 1)
	assert.Equal(t, int64(20), res.Shelved[0].NumID)

	assert.Len(t, res.OwnComments, 1)
	assert.Equal(t, "c4", res.OwnComments[0].ID)

	assert.Equal(t, "c5", res.Bookmark)
	assert.Equal(t, models.Base36ID(30), res.SubmissionBookmark)
	// Oldest in-window submission, shelved ones included.
	assert.Equal(t, models.Base36ID(20), res.BoundaryID)
}

func TestCoalesceClassifiesOrphanComments(t *testing.T) {
	now := time.Now().Unix()

	reader := &fakeReader{
		subPages: [][]models.Submission{{
			fixtureSub(30, now-10, "op", 1),
			fixtureSub(10, now-7200, "op", 5), // beyond the lookback cutoff
		}},
		commentPages: [][]models.Comment{{
			fixtureComment("c3", now-1, 40, "erin", "on a never-listed thread"),
			fixtureComment("c2", now-3, 30, "alice", "nice bird"),
			fixtureComment("c1", now-5, 25, "frank", "on an out-of-window thread"),
		}},
	}

	var logBuf bytes.Buffer
	co := &Coalescer{
		Log:      slog.New(slog.NewTextHandler(&logBuf, nil)),
		Reader:   reader,
		Roster:   claims.NewRoster([]string{"revkim"}, nil),
		BotUser:  "birdbot",
		Lookback: time.Hour,
		PageSize: 100,
	}

	res, err := co.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, models.Base36ID(30), res.BoundaryID)

	// Neither orphan lands in a batch.
	assert.Len(t, res.Batches, 1)
	assert.Len(t, res.Batches[0].Comments, 1)
	assert.Equal(t, "c2", res.Batches[0].Comments[0].ID)

	// At or past the boundary: flagged as a shelf candidate. Older than the
	// boundary: dropped without a word.
	logs := logBuf.String()
	assert.Contains(t, logs, "shelf candidate")
	assert.Contains(t, logs, "c3")
	assert.NotContains(t, logs, "c1")
}

func TestCoalesceReviewerRemovalDiscardsBatch(t *testing.T) {
	now := time.Now().Unix()

	reader := &fakeReader{
		subPages: [][]models.Submission{{
			fixtureSub(30, now-10, "op", 3),
		}},
		commentPages: [][]models.Comment{{
			fixtureComment("c3", now-1, 30, "dave", "late comment"),
			fixtureComment("c2", now-2, 30, "revkim", "!remove off topic"),
			fixtureComment("c1", now-3, 30, "alice", "+blue jay+"),
		}},
	}

	co := &Coalescer{
		Log:      slog.Default(),
		Reader:   reader,
		Roster:   claims.NewRoster([]string{"revkim"}, nil),
		BotUser:  "birdbot",
		Lookback: time.Hour,
		PageSize: 100,
	}

	res, err := co.Run(context.Background())
	assert.NoError(t, err)

	assert.Empty(t, res.Batches)
	assert.Len(t, res.Shelved, 1)
	assert.Equal(t, int64(30), res.Shelved[0].NumID)
}

func TestCoalesceRemovalByNonReviewerIsIgnored(t *testing.T) {
	now := time.Now().Unix()

	reader := &fakeReader{
		subPages: [][]models.Submission{{
			fixtureSub(30, now-10, "op", 1),
		}},
		commentPages: [][]models.Comment{{
			fixtureComment("c1", now-1, 30, "randomuser", "!remove please"),
		}},
	}

	co := &Coalescer{
		Log:      slog.Default(),
		Reader:   reader,
		Roster:   claims.NewRoster([]string{"revkim"}, nil),
		BotUser:  "birdbot",
		Lookback: time.Hour,
		PageSize: 100,
	}

	res, err := co.Run(context.Background())
	assert.NoError(t, err)
	assert.Len(t, res.Batches, 1)
	assert.Len(t, res.Batches[0].Comments, 1)
	assert.Empty(t, res.Shelved)
}

func TestCoalesceEmptyForum(t *testing.T) {
	co := &Coalescer{
		Log:      slog.Default(),
		Reader:   &fakeReader{},
		Roster:   claims.NewRoster(nil, nil),
		BotUser:  "birdbot",
		Lookback: time.Hour,
		PageSize: 100,
	}
	res, err := co.Run(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, res.Batches)
	assert.Equal(t, "", res.Bookmark)
	assert.Equal(t, "", res.SubmissionBookmark)
}
