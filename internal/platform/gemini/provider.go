package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/redact"
	"google.golang.org/genai"
)

// ProviderID is the registry id of the Gemini provider.
const ProviderID = "gemini"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

var models = []domain.ModelInfo{
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash"},
	{ID: "gemini-2.0-flash-lite", Name: "Gemini 2.0 Flash-Lite"},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash"},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro"},
}

// Options tune providers built by Factory.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Strict     bool
	Logger     *slog.Logger
}

// Provider is the Gemini generation.Provider.
type Provider struct {
	client *genai.Client
	model  string
	parser generation.Parser
	logger *slog.Logger
}

var _ generation.Provider = (*Provider)(nil)

// New creates a provider from saved settings. The SDK client is only built
// when an API key is present, so an unconfigured provider can still be listed.
func New(cfg domain.ProviderConfig, opts Options) (*Provider, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "gemini_provider")

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	p := &Provider{
		model:  model,
		parser: generation.Parser{Strict: opts.Strict, Logger: log},
		logger: log,
	}
	if cfg.APIKey == "" {
		return p, nil
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/"}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client
	return p, nil
}

// Factory returns a generation.Factory for Gemini providers.
func Factory(opts Options) generation.Factory {
	return func(cfg domain.ProviderConfig) (generation.Provider, error) {
		return New(cfg, opts)
	}
}

// ID implements generation.Provider.
func (p *Provider) ID() string { return ProviderID }

// Name implements generation.Provider.
func (p *Provider) Name() string { return "Google Gemini" }

// DefaultModel implements generation.Provider.
func (p *Provider) DefaultModel() string { return DefaultModel }

// Models implements generation.Provider.
func (p *Provider) Models() []domain.ModelInfo {
	return append([]domain.ModelInfo(nil), models...)
}

// GenerateVocabulary implements generation.Provider.
func (p *Provider) GenerateVocabulary(ctx context.Context, topic, title string) (*domain.Vocabulary, error) {
	content, err := p.generate(ctx, generation.VocabularyPrompt(topic), generation.MaxTokens)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.NewError(domain.KindParse, "Gemini returned empty content")
	}

	p.logger.DebugContext(ctx, "received completion",
		"topic", topic,
		"title", title,
		"model", p.model,
		"content_len", len(content))
	return p.parser.Parse(content)
}

// TestConnection implements generation.Provider. The ping is capped at one
// output token.
func (p *Provider) TestConnection(ctx context.Context) domain.ConnectionResult {
	_, err := p.generate(ctx, generation.PingPrompt, 1)
	if err != nil {
		p.logger.WarnContext(ctx, "connection test failed", "error", redact.Error(err))
	}
	return domain.ConnectionFromError(err)
}

// generate sends one request and concatenates the text parts of the first candidate.
func (p *Provider) generate(ctx context.Context, prompt string, maxTokens int32) (string, error) {
	if p.client == nil {
		return "", domain.NewError(domain.KindAuth, "Gemini API key is not configured")
	}

	temperature := float32(generation.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: generation.SystemPrompt}},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), config)
	if err != nil {
		return "", mapError(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", domain.NewError(domain.KindParse, "Gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// mapError converts SDK errors into typed domain errors.
func mapError(err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr):
		apiErr = *apiErrPtr
	default:
		return domain.Errorf(domain.KindNetwork, "Gemini request failed: %w", err)
	}

	msg := apiErr.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", apiErr.Code)
	}

	kind := domain.KindAPI
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = domain.KindAuth
	case http.StatusPaymentRequired:
		kind = domain.KindPayment
	case http.StatusBadRequest:
		// Gemini reports bad keys as 400 INVALID_ARGUMENT.
		if strings.Contains(strings.ToLower(msg), "api key") {
			kind = domain.KindAuth
		}
	}
	return domain.HTTPError(kind, apiErr.Code, msg)
}
