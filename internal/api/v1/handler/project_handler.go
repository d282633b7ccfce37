package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/service"
)

// maxUploadBytes bounds request parsing, not tier admission; the
// largest tier allows 10GB uploads which arrive via multipart stream.
const maxUploadBytes = 10 << 30

// ProjectHandler handles project CRUD and the pipeline stage endpoints.
type ProjectHandler struct {
	projectService  service.ProjectService
	pipelineService service.PipelineService
	validate        *validator.Validate
	logger          zerolog.Logger
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(
	projectService service.ProjectService,
	pipelineService service.PipelineService,
	validate *validator.Validate,
	logger zerolog.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projectService:  projectService,
		pipelineService: pipelineService,
		validate:        validate,
		logger:          logger.With().Str("handler", "ProjectHandler").Logger(),
	}
}

// RegisterRoutes mounts project routes under /projects
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/projects", authMw(http.HandlerFunc(h.listProjects)))
	mux.Handle("/projects/", authMw(http.HandlerFunc(h.handleProject)))
}

func (h *ProjectHandler) handleProject(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch r.Method {
	case http.MethodPost:
		switch {
		case path == "/projects/upload":
			h.uploadProject(w, r)
		case strings.HasSuffix(path, "/analyze"):
			h.analyzeProject(w, r)
		case strings.HasSuffix(path, "/script"):
			h.generateScript(w, r)
		case strings.HasSuffix(path, "/render"):
			h.renderProject(w, r)
		default:
			http.NotFound(w, r)
		}
	case http.MethodGet:
		h.getProject(w, r)
	case http.MethodDelete:
		h.deleteProject(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// projectID extracts the id segment from /projects/{id}[/suffix].
func projectID(path string) string {
	rest := strings.TrimPrefix(path, "/projects/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func userIDFrom(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	return userID, ok && userID != ""
}

// uploadProject godoc
// @Summary Upload a source file
// @Description Accepts a multipart upload, extracts its content and creates a project.
// @Tags projects
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Source file"
// @Param title formData string false "Project title"
// @Success 201 {object} dto.ProjectResponseDTO
// @Failure 400 {string} string "Unsupported or invalid file"
// @Failure 413 {string} string "File exceeds tier limit"
// @Router /projects/upload [post]
func (h *ProjectHandler) uploadProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Invalid multipart request: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	project, err := h.projectService.Upload(r.Context(), userID, service.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Title:       r.FormValue("title"),
		Data:        data,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Upload rejected")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewProjectResponse(project))
}

// listProjects godoc
// @Summary List projects
// @Description Returns the caller's projects, newest first.
// @Tags projects
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.ProjectListResponseDTO
// @Router /projects [get]
func (h *ProjectHandler) listProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	projects, err := h.projectService.GetProjects(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := dto.ProjectListResponseDTO{Projects: []dto.ProjectResponseDTO{}, Limit: limit, Offset: offset}
	for i := range projects {
		resp.Projects = append(resp.Projects, dto.NewProjectResponse(&projects[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getProject godoc
// @Summary Get a project
// @Tags projects
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} dto.ProjectResponseDTO
// @Failure 404 {string} string "Project not found"
// @Router /projects/{projectId} [get]
func (h *ProjectHandler) getProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	project, err := h.projectService.GetProject(r.Context(), projectID(r.URL.Path), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := dto.NewProjectResponse(project)
	switch job, err := h.pipelineService.LatestRenderJob(r.Context(), project.ID, userID); {
	case err == nil:
		jobDTO := dto.NewRenderJobResponse(job)
		resp.LatestJob = &jobDTO
	case errors.Is(err, model.ErrNotFound):
		// Never rendered.
	default:
		h.logger.Warn().Err(err).Str("project_id", project.ID).Msg("Failed to load latest render job")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProjectHandler) deleteProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	if err := h.projectService.DeleteProject(r.Context(), projectID(r.URL.Path), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// analyzeProject godoc
// @Summary Run the analysis stage
// @Description Runs AI content analysis over the project's extracted content.
// @Tags pipeline
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} dto.ProjectResponseDTO
// @Failure 409 {string} string "Stage cannot start from the current state"
// @Failure 502 {string} string "AI gateway failure"
// @Router /projects/{projectId}/analyze [post]
func (h *ProjectHandler) analyzeProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}
	project, err := h.pipelineService.Analyze(r.Context(), projectID(r.URL.Path), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProjectResponse(project))
}

// generateScript godoc
// @Summary Run the script stage
// @Description Generates a timed video script from the completed analysis.
// @Tags pipeline
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param request body dto.ScriptRequestDTO false "Script options"
// @Success 200 {object} dto.ProjectResponseDTO
// @Failure 409 {string} string "Project has not been analyzed"
// @Failure 413 {string} string "Duration exceeds tier limit"
// @Router /projects/{projectId}/script [post]
func (h *ProjectHandler) generateScript(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.ScriptRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	project, err := h.pipelineService.GenerateScript(r.Context(), projectID(r.URL.Path), userID, service.ScriptOptions{
		DurationSec: req.DurationSec,
		Style:       req.Style,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProjectResponse(project))
}

// renderProject godoc
// @Summary Run the render stage
// @Description Renders the scripted video. Enforces monthly quota and one active job per project.
// @Tags pipeline
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param request body dto.RenderRequestDTO false "Render options"
// @Success 200 {object} dto.RenderResponseDTO
// @Failure 409 {string} string "Another render is already in progress"
// @Failure 429 {string} string "Monthly video quota exceeded"
// @Router /projects/{projectId}/render [post]
func (h *ProjectHandler) renderProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	var req dto.RenderRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	project, job, err := h.pipelineService.Render(r.Context(), projectID(r.URL.Path), userID, service.RenderOptions{
		Provider: req.Provider,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RenderResponseDTO{
		Project: dto.NewProjectResponse(project),
		Job:     dto.NewRenderJobResponse(job),
	})
}
