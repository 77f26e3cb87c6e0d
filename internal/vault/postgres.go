// internal/vault/postgres.go
package vault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresVault is the live vault implementation.
type PostgresVault struct {
	DB  *sqlx.DB
	log *slog.Logger
}

var _ Adapter = (*PostgresVault)(nil)

// NewPostgresVault connects and verifies the connection.
func NewPostgresVault(connectionString string, log *slog.Logger) (*PostgresVault, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	log.Info("connected to vault")
	return &PostgresVault{DB: db, log: log}, nil
}

func (p *PostgresVault) Close(ctx context.Context) error {
	return p.DB.Close()
}

// InitializeTables creates the mirror tables if they don't exist.
func (p *PostgresVault) InitializeTables(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS submissions (
			id BIGINT PRIMARY KEY,
			location TEXT,
			upload_date TIMESTAMP WITH TIME ZONE,
			karma INTEGER DEFAULT 0,
			comment_count INTEGER DEFAULT 0,
			title TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'unanswered'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create submissions table: %v", err)
	}

	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS observations (
			taxon_ordinal INTEGER NOT NULL,
			submission_id BIGINT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
			PRIMARY KEY (taxon_ordinal, submission_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create observations table: %v", err)
	}
	return nil
}

// UpsertSubmissions writes every row, refreshing the mutable columns on
// conflict. Runs on every fetch pass.
func (p *PostgresVault) UpsertSubmissions(ctx context.Context, rows []SubmissionRow) error {
	if len(rows) == 0 {
		return nil
	}
	query := `
		INSERT INTO submissions (id, location, upload_date, karma, comment_count, title, status)
		VALUES (:id, :location, :upload_date, :karma, :comment_count, :title, :status)
		ON CONFLICT (id) DO UPDATE SET
			location = EXCLUDED.location,
			karma = EXCLUDED.karma,
			comment_count = EXCLUDED.comment_count,
			title = EXCLUDED.title,
			status = EXCLUDED.status`
	for _, row := range rows {
		if _, err := p.DB.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to upsert submission %d: %v", row.ID, err)
		}
	}
	return nil
}

func (p *PostgresVault) DeleteSubmissions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		`DELETE FROM submissions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to delete submissions: %v", err)
	}
	return nil
}

// AssignObservations rebuilds a submission's observation rows wholesale.
// The delete-then-insert runs in one transaction so readers never see a
// half-built set.
func (p *PostgresVault) AssignObservations(ctx context.Context, submissionID int64, taxonOrdinals []int) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin observations tx: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM observations WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("failed to clear observations for %d: %v", submissionID, err)
	}
	for _, ordinal := range taxonOrdinals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO observations (taxon_ordinal, submission_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`, ordinal, submissionID); err != nil {
			return fmt.Errorf("failed to insert observation (%d, %d): %v", ordinal, submissionID, err)
		}
	}
	return tx.Commit()
}

func (p *PostgresVault) DeleteObservations(ctx context.Context, submissionID int64) error {
	_, err := p.DB.ExecContext(ctx,
		`DELETE FROM observations WHERE submission_id = $1`, submissionID)
	if err != nil {
		return fmt.Errorf("failed to delete observations for %d: %v", submissionID, err)
	}
	return nil
}
