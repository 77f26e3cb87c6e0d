package vault

import (
	"context"
	"log/slog"
)

// DryVault is the no-op implementation used whenever the real store is
// unreachable. It logs the query that would have run, so an operator can see
// exactly what the pipeline tried to persist.
type DryVault struct {
	log *slog.Logger
}

var _ Adapter = (*DryVault)(nil)

func NewDryVault(log *slog.Logger) *DryVault {
	return &DryVault{log: log}
}

func (d *DryVault) UpsertSubmissions(ctx context.Context, rows []SubmissionRow) error {
	for _, row := range rows {
		d.log.Info("dry vault: would upsert submission",
			"sql", "INSERT INTO submissions ... ON CONFLICT (id) DO UPDATE",
			"id", row.ID, "title", row.Title, "status", row.Status,
			"karma", row.Karma, "commentCount", row.CommentCount)
	}
	return nil
}

func (d *DryVault) DeleteSubmissions(ctx context.Context, ids []int64) error {
	d.log.Info("dry vault: would delete submissions",
		"sql", "DELETE FROM submissions WHERE id = ANY($1)", "ids", ids)
	return nil
}

func (d *DryVault) AssignObservations(ctx context.Context, submissionID int64, taxonOrdinals []int) error {
	d.log.Info("dry vault: would rebuild observations",
		"sql", "DELETE FROM observations WHERE submission_id = $1; INSERT INTO observations ...",
		"submissionId", submissionID, "ordinals", taxonOrdinals)
	return nil
}

func (d *DryVault) DeleteObservations(ctx context.Context, submissionID int64) error {
	d.log.Info("dry vault: would delete observations",
		"sql", "DELETE FROM observations WHERE submission_id = $1",
		"submissionId", submissionID)
	return nil
}

func (d *DryVault) Close(ctx context.Context) error { return nil }
