package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/canbahi79-lgtm/formatfactory/api/database"
	"github.com/canbahi79-lgtm/formatfactory/api/models"
)

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateJob(ctx context.Context, job *models.Job) error {
	mapping, err := json.Marshal(job.Mapping)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	query := `
		INSERT INTO jobs (id, trace_id, content_text, mapping, template_url, status, progress)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		job.ID,
		job.TraceID,
		job.ContentText,
		mapping,
		job.TemplateURL,
		job.Status,
		job.Progress,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

// MarkFailed closes out a job the gateway could not hand to the queue. A row
// no worker will ever pick up must not linger as queued.
func (r *PostgresRepo) MarkFailed(ctx context.Context, id, message string) error {
	query := `
		UPDATE jobs
		SET status = 'failed', error_message = $1, updated_at = NOW(), completed_at = NOW()
		WHERE id = $2 AND status = 'queued'
	`

	_, err := r.db.Pool.Exec(ctx, query, message, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, trace_id, content_text, mapping, template_url, status, progress,
		       docx_url, pdf_url, error_message, created_at, updated_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	row := r.db.Pool.QueryRow(ctx, query, id)

	var job models.Job
	var mapping []byte
	err := row.Scan(
		&job.ID,
		&job.TraceID,
		&job.ContentText,
		&mapping,
		&job.TemplateURL,
		&job.Status,
		&job.Progress,
		&job.DocxURL,
		&job.PdfURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}

	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &job.Mapping); err != nil {
			return nil, fmt.Errorf("unmarshal mapping: %w", err)
		}
	}

	return &job, nil
}
