package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"app/internal/model"
)

// memoryRenderJobRepo is an in-process RenderJobRepository used by tests
// and local tooling. It enforces the same rules as the SQL store: at
// most one queued or rendering job per project, and status transitions
// only from the states the SQL WHERE clauses accept.
type memoryRenderJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.RenderJob
	now  func() time.Time
}

// NewMemoryRenderJobRepo creates an empty in-memory RenderJobRepository.
func NewMemoryRenderJobRepo() RenderJobRepository {
	return &memoryRenderJobRepo{
		jobs: make(map[string]*model.RenderJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryRenderJobRepo) CreateIfNoActive(ctx context.Context, job *model.RenderJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirrors the guarded insert: the existence check and the write
	// happen under one lock, so concurrent callers serialize here.
	for _, existing := range r.jobs {
		if existing.ProjectID == job.ProjectID && !existing.Status.Terminal() {
			return fmt.Errorf("project %s: %w", job.ProjectID, model.ErrConflictingJob)
		}
	}

	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *memoryRenderJobRepo) GetRenderJobByID(ctx context.Context, jobID string) (*model.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("render job %s: %w", jobID, model.ErrNotFound)
	}
	out := *job
	return &out, nil
}

func (r *memoryRenderJobRepo) GetLatestByProjectID(ctx context.Context, projectID string) (*model.RenderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *model.RenderJob
	for _, job := range r.jobs {
		if job.ProjectID != projectID {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("render job for project %s: %w", projectID, model.ErrNotFound)
	}
	out := *latest
	return &out, nil
}

func (r *memoryRenderJobRepo) MarkRunning(ctx context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status != model.JobQueued {
		return fmt.Errorf("render job %s: %w", jobID, model.ErrInvalidTransition)
	}
	now := r.now()
	job.Status = model.JobRendering
	job.StartedAt = &now
	return nil
}

func (r *memoryRenderJobRepo) MarkCompleted(ctx context.Context, jobID, outputURL string, actualSec int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status != model.JobRendering {
		return fmt.Errorf("render job %s: %w", jobID, model.ErrInvalidTransition)
	}
	now := r.now()
	job.Status = model.JobCompleted
	job.OutputURL = outputURL
	job.ActualSec = actualSec
	job.CompletedAt = &now
	return nil
}

func (r *memoryRenderJobRepo) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return fmt.Errorf("render job %s: %w", jobID, model.ErrInvalidTransition)
	}
	now := r.now()
	job.Status = model.JobFailed
	job.ErrorMessage = errorMessage
	job.CompletedAt = &now
	return nil
}
