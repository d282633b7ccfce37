package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/tier"
)

// AIClient is the slice of the inference gateway the pipeline consumes.
type AIClient interface {
	Analyze(ctx context.Context, content, contentType string) (string, error)
	GenerateScript(ctx context.Context, analysis string, durationSec int, style string) (*model.Script, error)
	GenerateVideo(ctx context.Context, prompt string, durationSec int) (string, error)
}

// StageTimeouts bounds each synchronous pipeline stage.
type StageTimeouts struct {
	Analyze time.Duration
	Script  time.Duration
	Render  time.Duration
}

// DefaultStageTimeouts returns the production stage bounds.
func DefaultStageTimeouts() StageTimeouts {
	return StageTimeouts{
		Analyze: 30 * time.Second,
		Script:  60 * time.Second,
		Render:  900 * time.Second,
	}
}

// ScriptOptions tunes the script stage.
type ScriptOptions struct {
	DurationSec int
	Style       string
}

// RenderOptions tunes the render stage.
type RenderOptions struct {
	Provider string
}

// PipelineService runs the analyze, script and render stages. Each stage
// is synchronous: the caller holds the request open while the gateway
// works, and state lands in a terminal processing status either way.
type PipelineService interface {
	Analyze(ctx context.Context, projectID, userID string) (*model.Project, error)
	GenerateScript(ctx context.Context, projectID, userID string, opts ScriptOptions) (*model.Project, error)
	Render(ctx context.Context, projectID, userID string, opts RenderOptions) (*model.Project, *model.RenderJob, error)
	GetRenderJob(ctx context.Context, jobID, userID string) (*model.RenderJob, error)
	LatestRenderJob(ctx context.Context, projectID, userID string) (*model.RenderJob, error)
}

type pipelineService struct {
	projects      repository.ProjectRepository
	jobs          repository.RenderJobRepository
	userRepo      repository.UserRepository
	usage         UsageService
	policy        *tier.Policy
	ai            AIClient
	publisher     pubsub.Publisher
	pipelineTopic string
	timeouts      StageTimeouts
	now           func() time.Time
	newID         func() string
	logger        zerolog.Logger
}

// NewPipelineService creates a new PipelineService with a scoped logger.
func NewPipelineService(
	projects repository.ProjectRepository,
	jobs repository.RenderJobRepository,
	userRepo repository.UserRepository,
	usage UsageService,
	policy *tier.Policy,
	aiClient AIClient,
	publisher pubsub.Publisher,
	pipelineTopic string,
	timeouts StageTimeouts,
	logger zerolog.Logger,
) PipelineService {
	if timeouts.Analyze <= 0 || timeouts.Script <= 0 || timeouts.Render <= 0 {
		timeouts = DefaultStageTimeouts()
	}
	return &pipelineService{
		projects:      projects,
		jobs:          jobs,
		userRepo:      userRepo,
		usage:         usage,
		policy:        policy,
		ai:            aiClient,
		publisher:     publisher,
		pipelineTopic: pipelineTopic,
		timeouts:      timeouts,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		logger:        logger.With().Str("service", "PipelineService").Logger(),
	}
}

// ownedProject loads a project and hides it from non-owners.
func (s *pipelineService) ownedProject(ctx context.Context, projectID, userID string) (*model.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
	}
	return project, nil
}

// enterStage validates and persists the move into a pipeline stage.
func (s *pipelineService) enterStage(ctx context.Context, project *model.Project, stage model.ProcessingStatus) error {
	if !model.CanStartStage(project.ProcessingStatus, stage) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, project.ProcessingStatus, stage)
	}
	project.ProcessingStatus = stage
	project.Status = model.CoarseFor(stage)
	project.UpdatedAt = s.now()
	return s.projects.UpdateProject(ctx, project)
}

// finishStage persists the stage outcome. A persistence failure after a
// successful AI call is logged but does not flip success to failure.
func (s *pipelineService) finishStage(ctx context.Context, project *model.Project, to model.ProcessingStatus) {
	project.ProcessingStatus = to
	project.Status = model.CoarseFor(to)
	project.UpdatedAt = s.now()
	if err := s.projects.UpdateProject(ctx, project); err != nil {
		s.logger.Error().Err(err).
			Str("project_id", project.ID).
			Str("processing_status", string(to)).
			Msg("Failed to persist stage outcome")
	}
}

// Analyze runs the AI analysis stage over the extracted content.
func (s *pipelineService) Analyze(ctx context.Context, projectID, userID string) (*model.Project, error) {
	project, err := s.ownedProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !project.Content.HasContent() {
		return nil, fmt.Errorf("project has no extracted content: %w", model.ErrValidation)
	}
	if err := s.enterStage(ctx, project, model.ProcessingAnalyzing); err != nil {
		return nil, err
	}

	contentType := "document"
	if t, ok := project.Content.Metadata["type"].(string); ok && t != "" {
		contentType = t
	}

	stageCtx, cancel := context.WithTimeout(ctx, s.timeouts.Analyze)
	defer cancel()
	analysis, err := s.ai.Analyze(stageCtx, project.Content.Content, contentType)
	if err != nil {
		s.logger.Error().Err(err).Str("project_id", projectID).Msg("Analyze stage failed")
		s.finishStage(ctx, project, model.ProcessingFailed)
		return nil, fmt.Errorf("analyze stage: %w", err)
	}

	project.Content.Analysis = analysis
	s.finishStage(ctx, project, model.ProcessingCompleted)

	s.usage.Record(ctx, &model.UsageEvent{
		UserID:       userID,
		Action:       model.ActionAIProcessing,
		ResourceType: "project",
		ResourceID:   projectID,
		Metadata:     map[string]any{"stage": "analyze"},
	})
	s.publish(ctx, pubsub.PipelineEvent{
		Type:      pubsub.EventAnalyzeDone,
		ProjectID: projectID,
		UserID:    userID,
	})
	return project, nil
}

// GenerateScript runs the script stage over a completed analysis.
func (s *pipelineService) GenerateScript(ctx context.Context, projectID, userID string, opts ScriptOptions) (*model.Project, error) {
	project, err := s.ownedProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if project.Content.Analysis == "" {
		return nil, fmt.Errorf("project has not been analyzed: %w", model.ErrConflict)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if opts.DurationSec <= 0 {
		opts.DurationSec = 60
	}
	if opts.Style == "" {
		opts.Style = "professional"
	}
	if !s.policy.CanCreateDuration(user.SubscriptionTier, opts.DurationSec) {
		return nil, fmt.Errorf("duration %ds on tier %s: %w",
			opts.DurationSec, user.SubscriptionTier, model.ErrDurationExceeded)
	}

	if err := s.enterStage(ctx, project, model.ProcessingGeneratingScript); err != nil {
		return nil, err
	}

	stageCtx, cancel := context.WithTimeout(ctx, s.timeouts.Script)
	defer cancel()
	script, err := s.ai.GenerateScript(stageCtx, project.Content.Analysis, opts.DurationSec, opts.Style)
	if err != nil {
		s.logger.Error().Err(err).Str("project_id", projectID).Msg("Script stage failed")
		s.finishStage(ctx, project, model.ProcessingFailed)
		return nil, fmt.Errorf("script stage: %w", err)
	}

	project.Script = script
	project.VideoDurationSec = script.DurationSec
	s.finishStage(ctx, project, model.ProcessingCompleted)

	s.usage.Record(ctx, &model.UsageEvent{
		UserID:       userID,
		Action:       model.ActionAIProcessing,
		ResourceType: "project",
		ResourceID:   projectID,
		Metadata:     map[string]any{"stage": "script"},
	})
	s.publish(ctx, pubsub.PipelineEvent{
		Type:      pubsub.EventScriptDone,
		ProjectID: projectID,
		UserID:    userID,
	})
	return project, nil
}

// Render runs the render stage. Admission (quota, duration, single
// active job) happens before any state is written; the video_generation
// usage event is recorded exactly once, on success only.
func (s *pipelineService) Render(ctx context.Context, projectID, userID string, opts RenderOptions) (*model.Project, *model.RenderJob, error) {
	project, err := s.ownedProject(ctx, projectID, userID)
	if err != nil {
		return nil, nil, err
	}
	if project.Script == nil {
		return nil, nil, fmt.Errorf("project has no script: %w", model.ErrConflict)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	count, err := s.usage.MonthlyVideoCount(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check video quota: %w", err)
	}
	if !s.policy.CanCreateVideo(user.SubscriptionTier, count) {
		return nil, nil, fmt.Errorf("tier %s at %d videos: %w",
			user.SubscriptionTier, count, model.ErrQuotaExceeded)
	}

	durationSec := project.Script.DurationSec
	if durationSec <= 0 {
		durationSec = 60
	}
	if !s.policy.CanCreateDuration(user.SubscriptionTier, durationSec) {
		return nil, nil, fmt.Errorf("duration %ds on tier %s: %w",
			durationSec, user.SubscriptionTier, model.ErrDurationExceeded)
	}

	provider := opts.Provider
	if provider == "" {
		provider = "veo"
	}

	// Priority and watermark are frozen here: a tier change mid-render
	// does not retroactively alter a job.
	job := &model.RenderJob{
		ID:           s.newID(),
		ProjectID:    projectID,
		Provider:     provider,
		Status:       model.JobQueued,
		Priority:     s.policy.ProcessingPriority(user.SubscriptionTier),
		Watermark:    s.policy.ShouldWatermark(user.SubscriptionTier),
		Quality:      s.policy.RenderQuality(user.SubscriptionTier),
		EstimatedSec: estimateRenderSeconds(durationSec),
		CreatedAt:    s.now(),
	}
	if err := s.jobs.CreateIfNoActive(ctx, job); err != nil {
		return nil, nil, err
	}
	s.publish(ctx, pubsub.PipelineEvent{
		Type:      pubsub.EventRenderQueued,
		ProjectID: projectID,
		UserID:    userID,
		JobID:     job.ID,
	})

	if err := s.enterStage(ctx, project, model.ProcessingRendering); err != nil {
		s.failJob(ctx, job, err.Error())
		return nil, nil, err
	}
	if err := s.jobs.MarkRunning(ctx, job.ID); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark render job running")
		s.finishStage(ctx, project, model.ProcessingFailed)
		return nil, nil, err
	}
	job.Status = model.JobRendering

	started := s.now()
	stageCtx, cancel := context.WithTimeout(ctx, s.timeouts.Render)
	defer cancel()
	outputURL, err := s.ai.GenerateVideo(stageCtx, renderPrompt(project), durationSec)
	if err != nil {
		s.logger.Error().Err(err).Str("project_id", projectID).Str("job_id", job.ID).Msg("Render stage failed")
		s.failJob(ctx, job, err.Error())
		s.finishStage(ctx, project, model.ProcessingFailed)
		s.publish(ctx, pubsub.PipelineEvent{
			Type:      pubsub.EventRenderFailed,
			ProjectID: projectID,
			UserID:    userID,
			JobID:     job.ID,
			Detail:    err.Error(),
		})
		return nil, nil, fmt.Errorf("render stage: %w", err)
	}

	actualSec := int(s.now().Sub(started).Seconds())
	if err := s.jobs.MarkCompleted(ctx, job.ID, outputURL, actualSec); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark render job completed")
	}
	job.Status = model.JobCompleted
	job.OutputURL = outputURL
	job.ActualSec = actualSec

	project.VideoURL = outputURL
	project.VideoFormat = "mp4"
	project.VideoDurationSec = durationSec
	s.finishStage(ctx, project, model.ProcessingCompleted)

	// The single metered event for this video. Nothing is recorded on
	// any failure path above.
	s.usage.Record(ctx, &model.UsageEvent{
		UserID:       userID,
		Action:       model.ActionVideoGeneration,
		ResourceType: "render_job",
		ResourceID:   job.ID,
		Metadata: map[string]any{
			"project_id":   projectID,
			"duration_sec": durationSec,
			"quality":      job.Quality,
		},
	})
	s.publish(ctx, pubsub.PipelineEvent{
		Type:      pubsub.EventRenderCompleted,
		ProjectID: projectID,
		UserID:    userID,
		JobID:     job.ID,
	})
	return project, job, nil
}

// GetRenderJob returns a job, hidden from users who do not own its project.
func (s *pipelineService) GetRenderJob(ctx context.Context, jobID, userID string) (*model.RenderJob, error) {
	job, err := s.jobs.GetRenderJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedProject(ctx, job.ProjectID, userID); err != nil {
		return nil, fmt.Errorf("render job %s: %w", jobID, model.ErrNotFound)
	}
	return job, nil
}

// LatestRenderJob returns the newest job for an owned project, or
// ErrNotFound when the project has never been rendered.
func (s *pipelineService) LatestRenderJob(ctx context.Context, projectID, userID string) (*model.RenderJob, error) {
	if _, err := s.ownedProject(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.jobs.GetLatestByProjectID(ctx, projectID)
}

func (s *pipelineService) failJob(ctx context.Context, job *model.RenderJob, reason string) {
	if err := s.jobs.MarkFailed(ctx, job.ID, reason); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to mark render job failed")
	}
	job.Status = model.JobFailed
	job.ErrorMessage = reason
}

func (s *pipelineService) publish(ctx context.Context, event pubsub.PipelineEvent) {
	if _, err := pubsub.PublishEvent(ctx, s.publisher, s.pipelineTopic, event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.Type).Msg("Failed to publish pipeline event")
	}
}

// renderPrompt flattens the script into a single prompt for the video model.
func renderPrompt(p *model.Project) string {
	script := p.Script
	if script.Raw != "" {
		return script.Raw
	}
	prompt := script.Title
	if script.Summary != "" {
		prompt += ". " + script.Summary
	}
	for _, seg := range script.Segments {
		prompt += fmt.Sprintf(" [%s] %s (%s)", seg.Timestamp, seg.Narration, seg.VisualCue)
	}
	if prompt == "" {
		prompt = p.Title
	}
	return prompt
}

// estimateRenderSeconds is the queue-time estimate shown to the client:
// roughly four seconds of render per second of output, floored at 30.
func estimateRenderSeconds(durationSec int) int {
	est := durationSec * 4
	if est < 30 {
		est = 30
	}
	return est
}
