package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/literacy-poster/internal/api/shared"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
)

// ProviderManager is the provider registry behind ProviderHandler.
// generation.Manager implements it.
type ProviderManager interface {
	Providers() []domain.ProviderInfo
	Models(id string) ([]domain.ModelInfo, error)
	SetCurrentProvider(ctx context.Context, id, apiKey, model string) error
	UseConfig(ctx context.Context, cfg domain.ProviderConfig) error
	Current() (generation.Provider, domain.ProviderConfig, error)
	TestConnection(ctx context.Context) (domain.ConnectionResult, error)
	RemoveProviderConfig(ctx context.Context, id string) error
	ProviderConfigs(ctx context.Context) ([]domain.ProviderConfig, error)
}

var _ ProviderManager = (*generation.Manager)(nil)

// ProviderHandler handles LLM provider configuration requests
type ProviderHandler struct {
	manager ProviderManager
	logger  *slog.Logger
}

// NewProviderHandler creates a new ProviderHandler
func NewProviderHandler(manager ProviderManager, logger *slog.Logger) *ProviderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderHandler{
		manager: manager,
		logger:  logger.With(slog.String("component", "provider_handler")),
	}
}

// ListProviders handles GET /providers requests
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.manager.Providers())
}

// ListModels handles GET /providers/{id}/models requests
func (h *ProviderHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	models, err := h.manager.Models(id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list models")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, models)
}

// SetCurrentProvider handles PUT /providers/current requests
func (h *ProviderHandler) SetCurrentProvider(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SetProviderRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	var err error
	if req.BaseURL != "" {
		err = h.manager.UseConfig(r.Context(), domain.ProviderConfig{
			ProviderID: req.ProviderID,
			APIKey:     req.APIKey,
			Model:      req.Model,
			BaseURL:    req.BaseURL,
		})
	} else {
		err = h.manager.SetCurrentProvider(r.Context(), req.ProviderID, req.APIKey, req.Model)
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to set provider")
		return
	}

	log.Info("current provider changed", slog.String("provider", req.ProviderID))
	h.respondCurrent(w, r)
}

// GetCurrentProvider handles GET /providers/current requests
func (h *ProviderHandler) GetCurrentProvider(w http.ResponseWriter, r *http.Request) {
	h.respondCurrent(w, r)
}

func (h *ProviderHandler) respondCurrent(w http.ResponseWriter, r *http.Request) {
	p, cfg, err := h.manager.Current()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, providerConfigToResponse(cfg, p.Name(), p.DefaultModel()))
}

// TestConnection handles POST /providers/current/test requests
func (h *ProviderHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.TestConnection(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ListConfigs handles GET /providers/configs requests
func (h *ProviderHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.manager.ProviderConfigs(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list provider configurations")
		return
	}

	out := make([]ProviderConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, providerConfigToResponse(cfg, "", cfg.Model))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// DeleteConfig handles DELETE /providers/{id}/config requests
func (h *ProviderHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.manager.RemoveProviderConfig(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to remove provider configuration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
