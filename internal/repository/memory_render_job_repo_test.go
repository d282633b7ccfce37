package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"app/internal/model"
)

func queuedJob(id, projectID string, createdAt time.Time) *model.RenderJob {
	return &model.RenderJob{
		ID:           id,
		ProjectID:    projectID,
		Provider:     "veo",
		Status:       model.JobQueued,
		Priority:     3,
		Quality:      "4k",
		EstimatedSec: 240,
		CreatedAt:    createdAt,
	}
}

func TestCreateIfNoActiveSingleWinnerUnderConcurrency(t *testing.T) {
	repo := NewMemoryRenderJobRepo()
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	const attempts = 2
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			job := queuedJob("job-"+string(rune('a'+i)), "proj-1", base)
			errs[i] = repo.CreateIfNoActive(context.Background(), job)
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, model.ErrConflictingJob)
			conflicts++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, attempts-1, conflicts)
}

func TestCreateIfNoActiveFreesSlotOnTerminalStatus(t *testing.T) {
	repo := NewMemoryRenderJobRepo()
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, repo.CreateIfNoActive(ctx, queuedJob("job-1", "proj-1", base)))
	require.ErrorIs(t, repo.CreateIfNoActive(ctx, queuedJob("job-2", "proj-1", base)), model.ErrConflictingJob)

	// A different project is unaffected by proj-1's active job.
	require.NoError(t, repo.CreateIfNoActive(ctx, queuedJob("job-3", "proj-2", base)))

	require.NoError(t, repo.MarkRunning(ctx, "job-1"))
	require.ErrorIs(t, repo.CreateIfNoActive(ctx, queuedJob("job-4", "proj-1", base)), model.ErrConflictingJob)

	require.NoError(t, repo.MarkFailed(ctx, "job-1", "provider timeout"))
	require.NoError(t, repo.CreateIfNoActive(ctx, queuedJob("job-5", "proj-1", base.Add(time.Minute))))
}

func TestMarkTransitionsFollowJobLifecycle(t *testing.T) {
	repo := NewMemoryRenderJobRepo()
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, repo.CreateIfNoActive(ctx, queuedJob("job-1", "proj-1", base)))

	// Completing a queued job skips the rendering state.
	require.ErrorIs(t, repo.MarkCompleted(ctx, "job-1", "https://cdn/out.mp4", 200), model.ErrInvalidTransition)

	require.NoError(t, repo.MarkRunning(ctx, "job-1"))
	require.ErrorIs(t, repo.MarkRunning(ctx, "job-1"), model.ErrInvalidTransition)

	require.NoError(t, repo.MarkCompleted(ctx, "job-1", "https://cdn/out.mp4", 200))
	require.ErrorIs(t, repo.MarkFailed(ctx, "job-1", "too late"), model.ErrInvalidTransition)

	job, err := repo.GetRenderJobByID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, model.JobCompleted, job.Status)
	require.Equal(t, "https://cdn/out.mp4", job.OutputURL)
	require.Equal(t, 200, job.ActualSec)
	require.NotNil(t, job.CompletedAt)
}

func TestGetLatestByProjectIDReturnsNewest(t *testing.T) {
	repo := NewMemoryRenderJobRepo()
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	_, err := repo.GetLatestByProjectID(ctx, "proj-1")
	require.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, repo.CreateIfNoActive(ctx, queuedJob("job-1", "proj-1", base)))
	require.NoError(t, repo.MarkFailed(ctx, "job-1", "provider timeout"))
	require.NoError(t, repo.CreateIfNoActive(ctx, queuedJob("job-2", "proj-1", base.Add(time.Hour))))

	latest, err := repo.GetLatestByProjectID(ctx, "proj-1")
	require.NoError(t, err)
	require.Equal(t, "job-2", latest.ID)
}
