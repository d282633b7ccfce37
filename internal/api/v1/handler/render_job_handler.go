package handler

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"app/internal/api/v1/dto"
	"app/internal/service"
)

// RenderJobHandler exposes render job status polling.
type RenderJobHandler struct {
	pipelineService service.PipelineService
	logger          zerolog.Logger
}

// NewRenderJobHandler creates a new RenderJobHandler
func NewRenderJobHandler(pipelineService service.PipelineService, logger zerolog.Logger) *RenderJobHandler {
	return &RenderJobHandler{
		pipelineService: pipelineService,
		logger:          logger.With().Str("handler", "RenderJobHandler").Logger(),
	}
}

// RegisterRoutes mounts render job routes under /render-jobs/{id}
func (h *RenderJobHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/render-jobs/", authMw(http.HandlerFunc(h.getRenderJob)))
}

// getRenderJob godoc
// @Summary Get a render job
// @Description Returns the status of one render attempt.
// @Tags pipeline
// @Produce json
// @Param jobId path string true "Render job ID"
// @Success 200 {object} dto.RenderJobResponseDTO
// @Failure 404 {string} string "Render job not found"
// @Router /render-jobs/{jobId} [get]
func (h *RenderJobHandler) getRenderJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: User ID not found in context", http.StatusUnauthorized)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/render-jobs/")
	job, err := h.pipelineService.GetRenderJob(r.Context(), jobID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewRenderJobResponse(job))
}
