package engine

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"bird-board/internal/claims"
	"bird-board/internal/forum"
	"bird-board/internal/models"
)

// SeedBatch is one submission with its backfilled comments in posting order.
type SeedBatch struct {
	Sub      models.Submission
	Comments []models.Comment
}

// CoalesceResult is everything a cold start recovers: the seed batches
// oldest-first, the bookmarks the steady-state agents resume from, and the
// bot's own comments for publisher reconciliation.
type CoalesceResult struct {
	Batches            []SeedBatch
	Shelved            []models.Submission
	Bookmark           string
	SubmissionBookmark string
	BoundaryID         string // oldest in-window submission id
	OwnComments        []models.Comment
}

// Coalescer rebuilds the live window from the forum after a restart. It
// pages submissions and comments backwards until the lookback cutoff, so
// the window is gap-free before any steady-state polling begins.
type Coalescer struct {
	Log      *slog.Logger
	Reader   forum.Reader
	Roster   *claims.Roster
	BotUser  string
	Lookback time.Duration
	PageSize int
}

type coalesceEntry struct {
	sub       models.Submission
	comments  []models.Comment // gathered newest-first, reversed at the end
	remaining int
	discarded bool
}

func (c *Coalescer) Run(ctx context.Context) (*CoalesceResult, error) {
	cutoff := time.Now().Add(-c.Lookback).Unix()
	res := &CoalesceResult{}

	entries, err := c.gatherSubmissions(ctx, cutoff, res)
	if err != nil {
		return nil, err
	}
	if err := c.gatherComments(ctx, cutoff, entries, res); err != nil {
		return nil, err
	}

	// Oldest first so seeding replays history in order.
	ids := make([]int64, 0, len(entries))
	for id, e := range entries {
		if e.discarded {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := entries[id]
		reverse(e.comments)
		res.Batches = append(res.Batches, SeedBatch{Sub: e.sub, Comments: e.comments})
	}

	c.Log.Info("coalesce complete",
		"submissions", len(res.Batches),
		"shelved", len(res.Shelved),
		"ownComments", len(res.OwnComments),
		"bookmark", res.Bookmark,
		"boundary", res.BoundaryID)
	return res, nil
}

// gatherSubmissions pages newest-to-oldest until it crosses the cutoff.
func (c *Coalescer) gatherSubmissions(ctx context.Context, cutoff int64, res *CoalesceResult) (map[int64]*coalesceEntry, error) {
	entries := make(map[int64]*coalesceEntry)
	cursor := ""
	for {
		page, err := c.Reader.SubmissionsBefore(ctx, cursor, c.PageSize)
		if err != nil {
			return nil, err
		}
		crossed := false
		for _, sub := range page {
			if res.SubmissionBookmark == "" {
				res.SubmissionBookmark = sub.ID
			}
			if sub.CreatedAt < cutoff {
				crossed = true
				break
			}
			// Pages run newest to oldest, so the last in-window id seen is
			// the boundary for orphan-comment classification.
			res.BoundaryID = sub.ID
			if sub.Gone() {
				res.Shelved = append(res.Shelved, sub)
				continue
			}
			entries[sub.NumID] = &coalesceEntry{sub: sub, remaining: sub.CommentCount}
		}
		if crossed || len(page) < c.PageSize {
			return entries, nil
		}
		cursor = page[len(page)-1].ID
	}
}

// gatherComments pages newest-to-oldest, attaching comments to their
// submissions, until every expected comment is accounted for or the stream
// predates the oldest live submission.
func (c *Coalescer) gatherComments(ctx context.Context, cutoff int64, entries map[int64]*coalesceEntry, res *CoalesceResult) error {
	shelved := make(map[int64]bool)
	for _, s := range res.Shelved {
		shelved[s.NumID] = true
	}
	var oldestSub int64 = -1
	outstanding := 0
	for _, e := range entries {
		if oldestSub == -1 || e.sub.CreatedAt < oldestSub {
			oldestSub = e.sub.CreatedAt
		}
		outstanding += e.remaining
	}

	boundary := models.NumericID(res.BoundaryID)
	cursor := ""
	for {
		page, err := c.Reader.CommentsBefore(ctx, cursor, c.PageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, cm := range page {
			if res.Bookmark == "" {
				res.Bookmark = cm.ID
			}

			if oldestSub >= 0 && cm.CreatedAt < oldestSub {
				return nil
			}
			if outstanding <= 0 && cm.CreatedAt < cutoff {
				return nil
			}

			numID := cm.SubmissionNumID()
			if shelved[numID] {
				continue
			}
			e, ok := entries[numID]
			if !ok {
				// Comments for submissions older than the boundary belong
				// to threads outside the window; drop them silently. At or
				// past the boundary the submission was never listed, either
				// removed before the listing ran or posted mid-coalesce:
				// a shelf candidate the steady-state agents pick up.
				if numID >= boundary {
					c.Log.Warn("shelf candidate, comment for unlisted submission",
						"comment", cm.ID, "submission", cm.SubmissionID)
				}
				continue
			}
			if e.discarded {
				continue
			}
			if e.remaining > 0 {
				e.remaining--
				outstanding--
			}
			if cm.Author == c.BotUser {
				res.OwnComments = append(res.OwnComments, cm)
				continue
			}
			if cm.SubmissionAuthor == "[deleted]" ||
				(claims.IsRemoval(cm.Body) && c.Roster.IsReviewer(cm.Author)) {
				e.discarded = true
				shelved[numID] = true
				res.Shelved = append(res.Shelved, e.sub)
				outstanding -= e.remaining
				e.remaining = 0
				e.comments = nil
				continue
			}
			e.comments = append(e.comments, cm)
		}
		if len(page) < c.PageSize {
			return nil
		}
		cursor = page[len(page)-1].ID
	}
}

func reverse(cs []models.Comment) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
