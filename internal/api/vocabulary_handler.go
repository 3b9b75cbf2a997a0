package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/literacy-poster/internal/api/shared"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
	"github.com/phrazzld/literacy-poster/internal/redact"
	"github.com/phrazzld/literacy-poster/internal/vocabulary"
)

// VocabularyEngine is the vocabulary source behind VocabularyHandler.
// vocabulary.Engine implements it.
type VocabularyEngine interface {
	Generate(ctx context.Context, topic, title string, opts vocabulary.Options) (*vocabulary.Result, error)
	ClearCache(ctx context.Context) error
	History(ctx context.Context) ([]domain.GenerationRecord, error)
	HistoryEntry(ctx context.Context, id uuid.UUID) (*domain.GenerationRecord, error)
}

var _ VocabularyEngine = (*vocabulary.Engine)(nil)

// VocabularyHandler handles vocabulary generation and history requests
type VocabularyHandler struct {
	engine VocabularyEngine
	logger *slog.Logger
}

// NewVocabularyHandler creates a new VocabularyHandler
func NewVocabularyHandler(engine VocabularyEngine, logger *slog.Logger) *VocabularyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VocabularyHandler{
		engine: engine,
		logger: logger.With(slog.String("component", "vocabulary_handler")),
	}
}

// Generate handles POST /vocabulary requests
func (h *VocabularyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req VocabularyRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	res, err := h.engine.Generate(r.Context(), req.Topic, req.Title, vocabulary.Options{
		UseCache: boolOr(req.UseCache, true),
		UseAI:    boolOr(req.UseAI, true),
		Count:    req.Count,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate vocabulary")
		return
	}

	resp := VocabularyResponse{
		Vocabulary: res.Vocabulary,
		Source:     res.Source,
		Stats:      res.Stats,
		HistoryID:  res.HistoryID,
	}
	if res.AIError != nil {
		resp.Warning = redact.Error(res.AIError)
		resp.Hint = domain.Hint(res.AIError)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ClearCache handles DELETE /vocabulary/cache requests
func (h *VocabularyHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearCache(r.Context()); err != nil {
		HandleAPIError(w, r, err, "Failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHistory handles GET /history requests
func (h *VocabularyHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.History(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, list)
}

// GetHistoryEntry handles GET /history/{id} requests
func (h *VocabularyHandler) GetHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entry, err := h.engine.HistoryEntry(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load history entry")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entry)
}
