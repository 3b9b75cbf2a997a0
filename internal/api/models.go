package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/platform/nanobanana"
	"github.com/phrazzld/literacy-poster/internal/service"
	"github.com/phrazzld/literacy-poster/internal/vocabulary"
)

// SetProviderRequest selects the current LLM provider.
type SetProviderRequest struct {
	ProviderID string `json:"provider_id" validate:"required"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	BaseURL    string `json:"base_url" validate:"omitempty,url"`
}

// ProviderConfigResponse is a saved provider configuration with the API key masked.
type ProviderConfigResponse struct {
	ProviderID string    `json:"provider_id"`
	Name       string    `json:"name,omitempty"`
	Model      string    `json:"model"`
	BaseURL    string    `json:"base_url,omitempty"`
	APIKey     string    `json:"api_key,omitempty"`
	HasAPIKey  bool      `json:"has_api_key"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func providerConfigToResponse(cfg domain.ProviderConfig, name, defaultModel string) ProviderConfigResponse {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	masked := cfg.Masked()
	return ProviderConfigResponse{
		ProviderID: cfg.ProviderID,
		Name:       name,
		Model:      model,
		BaseURL:    cfg.BaseURL,
		APIKey:     masked.APIKey,
		HasAPIKey:  cfg.APIKey != "",
		UpdatedAt:  cfg.UpdatedAt,
	}
}

// VocabularyRequest asks for a vocabulary.
type VocabularyRequest struct {
	Topic string `json:"topic" validate:"required,max=100"`
	Title string `json:"title" validate:"max=100"`
	// UseCache defaults to true.
	UseCache *bool `json:"use_cache"`
	// UseAI defaults to true.
	UseAI *bool `json:"use_ai"`
	Count int   `json:"count" validate:"omitempty,gte=1,lte=40"`
}

// VocabularyResponse is a generated vocabulary and where it came from.
type VocabularyResponse struct {
	Vocabulary *domain.Vocabulary     `json:"vocabulary"`
	Source     vocabulary.Source      `json:"source"`
	Stats      domain.VocabularyStats `json:"stats"`
	HistoryID  uuid.UUID              `json:"history_id"`
	// Warning explains why the AI source was skipped.
	Warning string `json:"warning,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// PromptRequestBody asks for a rendered poster prompt.
type PromptRequestBody struct {
	Topic      string             `json:"topic" validate:"required,max=100"`
	Title      string             `json:"title" validate:"max=100"`
	Vocabulary *domain.Vocabulary `json:"vocabulary"`
	Simple     bool               `json:"simple"`
	UseCache   *bool              `json:"use_cache"`
}

func (b PromptRequestBody) toService() service.PromptRequest {
	return service.PromptRequest{
		Topic:      b.Topic,
		Title:      b.Title,
		Vocabulary: b.Vocabulary,
		Simple:     b.Simple,
		UseCache:   boolOr(b.UseCache, true),
	}
}

// TemplateRequest replaces the poster prompt template.
type TemplateRequest struct {
	Template string `json:"template" validate:"required"`
}

// TemplateResponse is the current template and any placeholders it lacks.
type TemplateResponse struct {
	Template string `json:"template"`
	Complete bool   `json:"complete"`
	Missing  string `json:"missing,omitempty"`
}

// ImageOptions are the per-task image parameters.
type ImageOptions struct {
	AspectRatio  string   `json:"aspect_ratio" validate:"omitempty,oneof=1:1 2:3 3:2 3:4 4:3 4:5 5:4 9:16 16:9 21:9"`
	Resolution   string   `json:"resolution" validate:"omitempty,oneof=1K 2K 4K"`
	OutputFormat string   `json:"output_format" validate:"omitempty,oneof=png jpg webp"`
	ImageInput   []string `json:"image_input" validate:"omitempty,max=8,dive,url"`
}

// merge fills empty fields from defaults.
func (o ImageOptions) merge(defaults nanobanana.CreateOptions) nanobanana.CreateOptions {
	out := defaults
	if o.AspectRatio != "" {
		out.AspectRatio = o.AspectRatio
	}
	if o.Resolution != "" {
		out.Resolution = o.Resolution
	}
	if o.OutputFormat != "" {
		out.OutputFormat = o.OutputFormat
	}
	if len(o.ImageInput) > 0 {
		out.ImageInput = o.ImageInput
	}
	return out
}

// PosterRequestBody asks for one poster.
type PosterRequestBody struct {
	PromptRequestBody
	ImageOptions
}

// BatchRequestBody asks for one image per prompt.
type BatchRequestBody struct {
	Prompts     []string `json:"prompts" validate:"required,min=1,max=20,dive,required"`
	Concurrency int      `json:"concurrency" validate:"omitempty,gte=1,lte=10"`
	ImageOptions
}

// BatchItemResponse is the outcome of one prompt.
type BatchItemResponse struct {
	Index  int      `json:"index"`
	Prompt string   `json:"prompt"`
	TaskID string   `json:"task_id,omitempty"`
	URLs   []string `json:"urls,omitempty"`
	Error  string   `json:"error,omitempty"`
	Hint   string   `json:"hint,omitempty"`
}

// BatchResponse lists batch outcomes in input order.
type BatchResponse struct {
	Items     []BatchItemResponse `json:"items"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

func batchToResponse(items []domain.BatchItem) BatchResponse {
	resp := BatchResponse{Items: make([]BatchItemResponse, 0, len(items))}
	for _, item := range items {
		out := BatchItemResponse{
			Index:  item.Index,
			Prompt: item.Prompt,
			TaskID: item.TaskID,
			URLs:   item.URLs,
		}
		if item.Err != nil {
			out.Error = GetSafeErrorMessage(item.Err)
			out.Hint = domain.Hint(item.Err)
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Items = append(resp.Items, out)
	}
	return resp
}

// TaskListResponse is the task history plus the ids still being polled.
type TaskListResponse struct {
	Tasks   []domain.TaskRecord `json:"tasks"`
	Running []string            `json:"running"`
}

// CancelResponse reports whether a cancel took effect.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
