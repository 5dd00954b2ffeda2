package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the worker's slice of the job store: state transitions only.
type Repository interface {
	ClaimJob(ctx context.Context, jobID string) (bool, error)
	SetProgress(ctx context.Context, jobID string, progress int) error
	MarkSucceeded(ctx context.Context, jobID, docxURL, pdfURL string) error
	MarkFailed(ctx context.Context, jobID, message string) error
	SweepTerminal(ctx context.Context, keep int) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// ClaimJob moves a queued job to processing. Processing rows are claimable
// too: a shutdown mid-render leaves the job in that state, and re-delivery
// must be able to pick it back up. A false return means the job is gone or
// terminal.
func (r *PostgresRepo) ClaimJob(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = 'processing', progress = GREATEST(progress, 10), updated_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'processing')
	`

	result, err := r.db.Exec(ctx, query, jobID)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// SetProgress only ever raises progress, and only while the job is still
// processing.
func (r *PostgresRepo) SetProgress(ctx context.Context, jobID string, progress int) error {
	query := `
		UPDATE jobs
		SET progress = GREATEST(progress, $1), updated_at = NOW()
		WHERE id = $2 AND status = 'processing'
	`

	_, err := r.db.Exec(ctx, query, progress, jobID)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func (r *PostgresRepo) MarkSucceeded(ctx context.Context, jobID, docxURL, pdfURL string) error {
	query := `
		UPDATE jobs
		SET status = 'succeeded', progress = 100, docx_url = $1, pdf_url = $2,
		    error_message = '', updated_at = NOW(), completed_at = NOW()
		WHERE id = $3 AND status = 'processing'
	`

	_, err := r.db.Exec(ctx, query, docxURL, pdfURL, jobID)
	if err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	return nil
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, jobID, message string) error {
	query := `
		UPDATE jobs
		SET status = 'failed', error_message = $1, updated_at = NOW(), completed_at = NOW()
		WHERE id = $2 AND status NOT IN ('succeeded', 'failed')
	`

	_, err := r.db.Exec(ctx, query, message, jobID)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// SweepTerminal drops terminal records beyond the newest keep, bounding how
// long completed and failed jobs stay queryable.
func (r *PostgresRepo) SweepTerminal(ctx context.Context, keep int) error {
	query := `
		DELETE FROM jobs
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status IN ('succeeded', 'failed')
			ORDER BY completed_at DESC
			OFFSET $1
		)
	`

	_, err := r.db.Exec(ctx, query, keep)
	if err != nil {
		return fmt.Errorf("sweep terminal jobs: %w", err)
	}
	return nil
}
