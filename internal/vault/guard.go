package vault

import (
	"context"
	"log/slog"
)

// Guarded wraps a live adapter so that vault failures never reach the
// pipeline: each failed write is logged with its full error chain and then
// replayed against the dry store, making the lost query visible in logs.
type Guarded struct {
	live Adapter
	dry  *DryVault
	log  *slog.Logger
}

var _ Adapter = (*Guarded)(nil)

// NewGuarded builds the production adapter stack. A nil live adapter (store
// unreachable at startup) degrades to dry-only.
func NewGuarded(live Adapter, log *slog.Logger) *Guarded {
	return &Guarded{live: live, dry: NewDryVault(log), log: log}
}

func (g *Guarded) UpsertSubmissions(ctx context.Context, rows []SubmissionRow) error {
	if g.live != nil {
		if err := g.live.UpsertSubmissions(ctx, rows); err == nil {
			return nil
		} else {
			g.log.Error("vault upsert failed, replaying dry", "err", err)
		}
	}
	return g.dry.UpsertSubmissions(ctx, rows)
}

func (g *Guarded) DeleteSubmissions(ctx context.Context, ids []int64) error {
	if g.live != nil {
		if err := g.live.DeleteSubmissions(ctx, ids); err == nil {
			return nil
		} else {
			g.log.Error("vault delete failed, replaying dry", "err", err)
		}
	}
	return g.dry.DeleteSubmissions(ctx, ids)
}

func (g *Guarded) AssignObservations(ctx context.Context, submissionID int64, taxonOrdinals []int) error {
	if g.live != nil {
		if err := g.live.AssignObservations(ctx, submissionID, taxonOrdinals); err == nil {
			return nil
		} else {
			g.log.Error("vault observations rebuild failed, replaying dry",
				"submissionId", submissionID, "err", err)
		}
	}
	return g.dry.AssignObservations(ctx, submissionID, taxonOrdinals)
}

func (g *Guarded) DeleteObservations(ctx context.Context, submissionID int64) error {
	if g.live != nil {
		if err := g.live.DeleteObservations(ctx, submissionID); err == nil {
			return nil
		} else {
			g.log.Error("vault observations delete failed, replaying dry",
				"submissionId", submissionID, "err", err)
		}
	}
	return g.dry.DeleteObservations(ctx, submissionID)
}

func (g *Guarded) Close(ctx context.Context) error {
	if g.live != nil {
		return g.live.Close(ctx)
	}
	return nil
}
