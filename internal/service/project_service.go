package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"app/internal/extract"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/storage"
	"app/internal/tier"
)

// UploadInput is one file submitted for ingestion.
type UploadInput struct {
	FileName    string
	ContentType string
	Title       string
	Data        []byte
}

// ProjectService owns project lifecycle up to the pipeline: ingestion,
// listing and retrieval.
type ProjectService interface {
	Upload(ctx context.Context, userID string, in UploadInput) (*model.Project, error)
	GetProject(ctx context.Context, projectID, userID string) (*model.Project, error)
	GetProjects(ctx context.Context, userID string, limit, offset int) ([]model.Project, error)
	DeleteProject(ctx context.Context, projectID, userID string) error
}

type projectService struct {
	repo          repository.ProjectRepository
	userRepo      repository.UserRepository
	policy        *tier.Policy
	store         storage.ObjectStore
	usage         UsageService
	publisher     pubsub.Publisher
	pipelineTopic string
	now           func() time.Time
	newID         func() string
	logger        zerolog.Logger
}

// NewProjectService creates a new ProjectService with a scoped logger.
func NewProjectService(
	repo repository.ProjectRepository,
	userRepo repository.UserRepository,
	policy *tier.Policy,
	store storage.ObjectStore,
	usage UsageService,
	publisher pubsub.Publisher,
	pipelineTopic string,
	logger zerolog.Logger,
) ProjectService {
	return &projectService{
		repo:          repo,
		userRepo:      userRepo,
		policy:        policy,
		store:         store,
		usage:         usage,
		publisher:     publisher,
		pipelineTopic: pipelineTopic,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
		logger:        logger.With().Str("service", "ProjectService").Logger(),
	}
}

// Upload admits, extracts and persists one uploaded file as a project.
// Admission runs before anything is written: a rejected upload leaves
// no record behind.
func (s *projectService) Upload(ctx context.Context, userID string, in UploadInput) (*model.Project, error) {
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("empty file: %w", model.ErrValidation)
	}
	if in.FileName == "" {
		return nil, fmt.Errorf("missing file name: %w", model.ErrValidation)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sizeMB := float64(len(in.Data)) / (1024 * 1024)
	if !s.policy.CanUploadFile(user.SubscriptionTier, sizeMB) {
		return nil, fmt.Errorf("file of %.1fMB on tier %s: %w",
			sizeMB, user.SubscriptionTier, model.ErrFileSizeExceeded)
	}

	res := extract.Process(in.Data, in.FileName, in.ContentType)
	if !res.Success {
		if errors.Is(res.Err, extract.ErrUnsupportedFileType) {
			return nil, fmt.Errorf("%v: %w", res.Err, model.ErrValidation)
		}
		return nil, fmt.Errorf("content extraction failed: %v: %w", res.Err, model.ErrValidation)
	}

	title := in.Title
	if title == "" {
		title = strings.TrimSuffix(in.FileName, filepath.Ext(in.FileName))
	}

	now := s.now()
	project := &model.Project{
		ID:               s.newID(),
		UserID:           userID,
		Title:            title,
		OriginalFileName: in.FileName,
		OriginalFileType: in.ContentType,
		OriginalFileSize: int64(len(in.Data)),
		Content: model.ContentDocument{
			Version:  1,
			Content:  res.Content,
			Metadata: res.Metadata,
			Data:     res.Data,
		},
		Status:           model.ProjectDraft,
		ProcessingStatus: model.ProcessingIdle,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// The original payload is kept so later stages can re-derive content
	// without a re-upload. Storage failure is not fatal to ingestion.
	storagePath := fmt.Sprintf("projects/%s/original%s", project.ID, strings.ToLower(filepath.Ext(in.FileName)))
	if err := s.store.Put(ctx, storagePath, in.ContentType, in.Data); err != nil {
		s.logger.Error().Err(err).Str("project_id", project.ID).Msg("Failed to store original upload")
	} else {
		project.StoragePath = storagePath
	}

	if err := s.repo.CreateProject(ctx, project); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create project")
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.usage.Record(ctx, &model.UsageEvent{
		UserID:       userID,
		Action:       model.ActionFileUpload,
		ResourceType: "project",
		ResourceID:   project.ID,
		Metadata: map[string]any{
			"file_name": in.FileName,
			"file_size": len(in.Data),
		},
	})

	s.publish(ctx, pubsub.PipelineEvent{
		Type:      pubsub.EventUploadCompleted,
		ProjectID: project.ID,
		UserID:    userID,
	})

	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID, userID string) (*model.Project, error) {
	project, err := s.repo.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	// Ownership failures look identical to absence.
	if project.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", projectID, model.ErrNotFound)
	}
	return project, nil
}

func (s *projectService) GetProjects(ctx context.Context, userID string, limit, offset int) ([]model.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetProjectsByUserID(ctx, userID, limit, offset)
}

func (s *projectService) DeleteProject(ctx context.Context, projectID, userID string) error {
	project, err := s.GetProject(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if project.StoragePath != "" {
		if err := s.store.Delete(ctx, project.StoragePath); err != nil {
			s.logger.Warn().Err(err).Str("project_id", projectID).Msg("Failed to delete stored upload")
		}
	}
	return s.repo.DeleteProject(ctx, projectID)
}

func (s *projectService) publish(ctx context.Context, event pubsub.PipelineEvent) {
	if _, err := pubsub.PublishEvent(ctx, s.publisher, s.pipelineTopic, event); err != nil {
		s.logger.Warn().Err(err).Str("event", event.Type).Msg("Failed to publish pipeline event")
	}
}
