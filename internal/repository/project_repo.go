package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"app/internal/model"
)

// ProjectRepository persists projects and their pipeline state.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProjectByID(ctx context.Context, projectID string) (*model.Project, error)
	GetProjectsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, projectID string) error
}

type projectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepo creates a new ProjectRepository.
func NewProjectRepo(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepo{pool: pool}
}

const projectColumns = `
	id, user_id, title, original_file_name, original_file_type, original_file_size,
	storage_path, extracted_content, ai_script, video_url, video_duration,
	video_format, status, processing_status, created_at, updated_at
`

func (r *projectRepo) CreateProject(ctx context.Context, p *model.Project) error {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return fmt.Errorf("failed to encode extracted content: %w", err)
	}
	script, err := marshalScript(p.Script)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO projects (
			id, user_id, title, original_file_name, original_file_type, original_file_size,
			storage_path, extracted_content, ai_script, video_url, video_duration,
			video_format, status, processing_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID, p.UserID, p.Title, p.OriginalFileName, p.OriginalFileType, p.OriginalFileSize,
		p.StoragePath, content, script, p.VideoURL, p.VideoDurationSec,
		p.VideoFormat, p.Status, p.ProcessingStatus, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *projectRepo) GetProjectByID(ctx context.Context, projectID string) (*model.Project, error) {
	query := `SELECT` + projectColumns + `FROM projects WHERE id = $1`
	p, err := scanProject(r.pool.QueryRow(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan project row: %w", err)
	}
	return p, nil
}

func (r *projectRepo) GetProjectsByUserID(ctx context.Context, userID string, limit, offset int) ([]model.Project, error) {
	query := `SELECT` + projectColumns + `
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return projects, nil
}

func (r *projectRepo) UpdateProject(ctx context.Context, p *model.Project) error {
	content, err := json.Marshal(p.Content)
	if err != nil {
		return fmt.Errorf("failed to encode extracted content: %w", err)
	}
	script, err := marshalScript(p.Script)
	if err != nil {
		return err
	}

	const query = `
		UPDATE projects
		SET title = $2, storage_path = $3, extracted_content = $4, ai_script = $5,
			video_url = $6, video_duration = $7, video_format = $8,
			status = $9, processing_status = $10, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.Title, p.StoragePath, content, script,
		p.VideoURL, p.VideoDurationSec, p.VideoFormat,
		p.Status, p.ProcessingStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", p.ID, model.ErrNotFound)
	}
	return nil
}

func (r *projectRepo) DeleteProject(ctx context.Context, projectID string) error {
	const query = `DELETE FROM projects WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
	}
	return nil
}

func marshalScript(s *model.Script) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script: %w", err)
	}
	return raw, nil
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var (
		p       model.Project
		content []byte
		script  []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Title,
		&p.OriginalFileName,
		&p.OriginalFileType,
		&p.OriginalFileSize,
		&p.StoragePath,
		&content,
		&script,
		&p.VideoURL,
		&p.VideoDurationSec,
		&p.VideoFormat,
		&p.Status,
		&p.ProcessingStatus,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &p.Content); err != nil {
			return nil, fmt.Errorf("failed to decode extracted content: %w", err)
		}
	}
	if len(script) > 0 {
		var s model.Script
		if err := json.Unmarshal(script, &s); err != nil {
			return nil, fmt.Errorf("failed to decode script: %w", err)
		}
		p.Script = &s
	}
	return &p, nil
}
