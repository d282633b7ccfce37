package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"app/internal/model"
)

// RenderJobRepository persists render jobs. Creation is guarded so a
// project can hold at most one non-terminal job at a time.
type RenderJobRepository interface {
	// CreateIfNoActive inserts the job unless the project already has a
	// queued or rendering job. Returns model.ErrConflictingJob when the
	// slot is taken.
	CreateIfNoActive(ctx context.Context, job *model.RenderJob) error
	GetRenderJobByID(ctx context.Context, jobID string) (*model.RenderJob, error)
	GetLatestByProjectID(ctx context.Context, projectID string) (*model.RenderJob, error)
	MarkRunning(ctx context.Context, jobID string) error
	MarkCompleted(ctx context.Context, jobID, outputURL string, actualSec int) error
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

type renderJobRepo struct {
	pool *pgxpool.Pool
}

// NewRenderJobRepo creates a new RenderJobRepository.
func NewRenderJobRepo(pool *pgxpool.Pool) RenderJobRepository {
	return &renderJobRepo{pool: pool}
}

const renderJobColumns = `
	id, project_id, provider, status, priority, watermark, quality,
	estimated_seconds, actual_seconds, output_url, error_message,
	created_at, started_at, completed_at
`

func (r *renderJobRepo) CreateIfNoActive(ctx context.Context, job *model.RenderJob) error {
	// The guarded insert and the uniqueness check are one statement, so
	// two concurrent renders of the same project cannot both pass.
	const query = `
		INSERT INTO render_jobs (
			id, project_id, provider, status, priority, watermark, quality,
			estimated_seconds, created_at
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE NOT EXISTS (
			SELECT 1 FROM render_jobs
			WHERE project_id = $2 AND status IN ('queued', 'rendering')
		)
	`
	tag, err := r.pool.Exec(ctx, query,
		job.ID, job.ProjectID, job.Provider, job.Status, job.Priority,
		job.Watermark, job.Quality, job.EstimatedSec, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert render job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", job.ProjectID, model.ErrConflictingJob)
	}
	return nil
}

func (r *renderJobRepo) GetRenderJobByID(ctx context.Context, jobID string) (*model.RenderJob, error) {
	query := `SELECT` + renderJobColumns + `FROM render_jobs WHERE id = $1`
	job, err := scanRenderJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("render job %s: %w", jobID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan render job row: %w", err)
	}
	return job, nil
}

func (r *renderJobRepo) GetLatestByProjectID(ctx context.Context, projectID string) (*model.RenderJob, error) {
	query := `SELECT` + renderJobColumns + `
		FROM render_jobs
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	job, err := scanRenderJob(r.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("render job for project %s: %w", projectID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan render job row: %w", err)
	}
	return job, nil
}

func (r *renderJobRepo) MarkRunning(ctx context.Context, jobID string) error {
	const query = `
		UPDATE render_jobs
		SET status = 'rendering', started_at = NOW()
		WHERE id = $1 AND status = 'queued'
	`
	return r.execTransition(ctx, query, jobID)
}

func (r *renderJobRepo) MarkCompleted(ctx context.Context, jobID, outputURL string, actualSec int) error {
	const query = `
		UPDATE render_jobs
		SET status = 'completed', output_url = $2, actual_seconds = $3, completed_at = NOW()
		WHERE id = $1 AND status = 'rendering'
	`
	tag, err := r.pool.Exec(ctx, query, jobID, outputURL, actualSec)
	if err != nil {
		return fmt.Errorf("failed to update render job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("render job %s: %w", jobID, model.ErrInvalidTransition)
	}
	return nil
}

func (r *renderJobRepo) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	const query = `
		UPDATE render_jobs
		SET status = 'failed', error_message = $2, completed_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'rendering')
	`
	tag, err := r.pool.Exec(ctx, query, jobID, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to update render job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("render job %s: %w", jobID, model.ErrInvalidTransition)
	}
	return nil
}

func (r *renderJobRepo) execTransition(ctx context.Context, query, jobID string) error {
	tag, err := r.pool.Exec(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("failed to update render job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("render job %s: %w", jobID, model.ErrInvalidTransition)
	}
	return nil
}

func scanRenderJob(row pgx.Row) (*model.RenderJob, error) {
	var job model.RenderJob
	if err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&job.Provider,
		&job.Status,
		&job.Priority,
		&job.Watermark,
		&job.Quality,
		&job.EstimatedSec,
		&job.ActualSec,
		&job.OutputURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}
