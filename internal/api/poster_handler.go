package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/literacy-poster/internal/api/shared"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
	"github.com/phrazzld/literacy-poster/internal/platform/nanobanana"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/phrazzld/literacy-poster/internal/service"
)

// TemplateEditor manages the poster prompt template. prompt.Template implements it.
type TemplateEditor interface {
	Text() string
	SetTemplate(text string) error
	Reset()
}

var _ TemplateEditor = (*prompt.Template)(nil)

// PosterHandler handles prompt, poster and task requests
type PosterHandler struct {
	posters   service.PosterService
	templates TemplateEditor
	defaults  nanobanana.CreateOptions
	logger    *slog.Logger
}

// NewPosterHandler creates a new PosterHandler. defaults fill image options
// the request leaves empty.
func NewPosterHandler(
	posters service.PosterService,
	templates TemplateEditor,
	defaults nanobanana.CreateOptions,
	logger *slog.Logger,
) *PosterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PosterHandler{
		posters:   posters,
		templates: templates,
		defaults:  defaults,
		logger:    logger.With(slog.String("component", "poster_handler")),
	}
}

// BuildPrompt handles POST /prompts requests
func (h *PosterHandler) BuildPrompt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req PromptRequestBody
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	out, err := h.posters.BuildPrompt(r.Context(), req.toService())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build prompt")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// GetTemplate handles GET /prompts/template requests
func (h *PosterHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, templateResponse(h.templates.Text()))
}

// SetTemplate handles PUT /prompts/template requests
func (h *PosterHandler) SetTemplate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req TemplateRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}
	if err := h.templates.SetTemplate(req.Template); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("prompt template updated", slog.Int("length", len(req.Template)))
	shared.RespondWithJSON(w, r, http.StatusOK, templateResponse(h.templates.Text()))
}

// ResetTemplate handles DELETE /prompts/template requests
func (h *PosterHandler) ResetTemplate(w http.ResponseWriter, r *http.Request) {
	h.templates.Reset()
	shared.RespondWithJSON(w, r, http.StatusOK, templateResponse(h.templates.Text()))
}

func templateResponse(text string) TemplateResponse {
	missing, ok := prompt.ValidateTemplate(text)
	return TemplateResponse{Template: text, Complete: ok, Missing: missing}
}

// CreatePoster handles POST /posters requests
// The image task is polled in the background, so the response is 202 Accepted.
func (h *PosterHandler) CreatePoster(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req PosterRequestBody
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	view, err := h.posters.StartPoster(r.Context(), service.PosterRequest{
		PromptRequest: req.PromptRequestBody.toService(),
		Options:       req.ImageOptions.merge(h.defaults),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create poster")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, view)
}

// BatchGenerate handles POST /posters/batch requests
// It waits for every image and returns the outcomes in request order.
func (h *PosterHandler) BatchGenerate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req BatchRequestBody
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	items, err := h.posters.BatchGenerate(r.Context(), req.Prompts, service.BatchRequest{
		Concurrency: req.Concurrency,
		Options:     req.ImageOptions.merge(h.defaults),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to run batch")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, batchToResponse(items))
}

// ListTasks handles GET /tasks requests
func (h *PosterHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.posters.ListTasks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Tasks:   tasks,
		Running: h.posters.RunningTasks(),
	})
}

// ClearTasks handles DELETE /tasks requests
func (h *PosterHandler) ClearTasks(w http.ResponseWriter, r *http.Request) {
	if err := h.posters.ClearTasks(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to clear tasks")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTask handles GET /tasks/{id} requests
func (h *PosterHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	view, err := h.posters.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// CancelTask handles DELETE /tasks/{id} requests
func (h *PosterHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	cancelled := h.posters.CancelTask(id)
	logger.FromContextOrDefault(r.Context(), h.logger).Info("task cancel requested",
		slog.String("task_id", id),
		slog.Bool("cancelled", cancelled))
	shared.RespondWithJSON(w, r, http.StatusOK, CancelResponse{Cancelled: cancelled})
}
