package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/redact"
)

// maxReplyBytes caps how much of a reply body is read.
const maxReplyBytes = 4 << 20

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// Options tune every adapter built by a Factory.
type Options struct {
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	// Strict turns unusable vocabulary replies into parse errors.
	Strict bool
	Logger *slog.Logger
}

// Adapter is a generation.Provider for one chat-completion vendor.
type Adapter struct {
	profile Profile
	apiKey  string
	model   string
	baseURL string

	client *http.Client
	parser generation.Parser
	logger *slog.Logger
}

var _ generation.Provider = (*Adapter)(nil)

// New creates an adapter for profile p using the saved settings cfg.
// Empty cfg fields fall back to the profile defaults.
func New(p Profile, cfg domain.ProviderConfig, opts Options) *Adapter {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "chat_provider", "provider", p.ID)

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = p.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = p.DefaultModel
	}

	return &Adapter{
		profile: p,
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		parser:  generation.Parser{Strict: opts.Strict, Logger: log},
		logger:  log,
	}
}

// Factory returns a generation.Factory that builds adapters for p.
func Factory(p Profile, opts Options) generation.Factory {
	return func(cfg domain.ProviderConfig) (generation.Provider, error) {
		return New(p, cfg, opts), nil
	}
}

// ID implements generation.Provider.
func (a *Adapter) ID() string { return a.profile.ID }

// Name implements generation.Provider.
func (a *Adapter) Name() string { return a.profile.Name }

// DefaultModel implements generation.Provider.
func (a *Adapter) DefaultModel() string { return a.profile.DefaultModel }

// Model returns the model requests are sent with.
func (a *Adapter) Model() string { return a.model }

// Endpoint returns the full request URL.
func (a *Adapter) Endpoint() string { return a.baseURL + a.profile.Path }

// Models implements generation.Provider.
func (a *Adapter) Models() []domain.ModelInfo {
	return append([]domain.ModelInfo(nil), a.profile.Models...)
}

// GenerateVocabulary implements generation.Provider.
func (a *Adapter) GenerateVocabulary(ctx context.Context, topic, title string) (*domain.Vocabulary, error) {
	body, err := a.send(ctx, generation.VocabularyPrompt(topic), generation.MaxTokens)
	if err != nil {
		return nil, err
	}

	content, err := a.profile.ExtractContent(body)
	if err != nil || strings.TrimSpace(content) == "" {
		return nil, domain.NewError(domain.KindParse, a.profile.Name+" returned empty content")
	}

	a.logger.DebugContext(ctx, "received completion",
		"topic", topic,
		"title", title,
		"content_len", len(content))
	return a.parser.Parse(content)
}

// TestConnection implements generation.Provider. Any 2xx reply counts as success.
func (a *Adapter) TestConnection(ctx context.Context) domain.ConnectionResult {
	_, err := a.send(ctx, generation.PingPrompt, 1)
	if err != nil {
		a.logger.WarnContext(ctx, "connection test failed", "error", redact.Error(err))
	}
	return domain.ConnectionFromError(err)
}

// send performs one completion request and returns the 2xx body.
func (a *Adapter) send(ctx context.Context, prompt string, maxTokens int) ([]byte, error) {
	if a.apiKey == "" {
		return nil, domain.NewError(domain.KindAuth, a.profile.Name+" API key is not configured")
	}

	payload, err := json.Marshal(a.profile.BuildBody(Request{
		Model:       a.model,
		System:      generation.SystemPrompt,
		Prompt:      prompt,
		Temperature: generation.Temperature,
		MaxTokens:   maxTokens,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, domain.Errorf(domain.KindNetwork, "invalid endpoint %s: %w", a.Endpoint(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	a.profile.Authorize(req.Header, a.apiKey)

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, domain.Errorf(domain.KindNetwork, "%s request failed: %w", a.profile.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, domain.Errorf(domain.KindNetwork, "failed to read %s reply: %w", a.profile.Name, err)
	}

	a.logger.DebugContext(ctx, "completion request finished",
		"status", resp.StatusCode,
		"model", a.model,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	if msg, ok := envelopeError(body); ok {
		if msg == "" {
			msg = a.profile.Name + " API returned an error"
		}
		return nil, domain.HTTPError(domain.KindAPI, resp.StatusCode, msg)
	}
	return body, nil
}

// statusError maps a non-2xx reply to a typed error.
func statusError(status int, body []byte) error {
	msg, _ := envelopeError(body)
	if msg == "" {
		msg = topLevelMessage(body)
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}

	kind := domain.KindAPI
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = domain.KindAuth
	case http.StatusPaymentRequired:
		kind = domain.KindPayment
	}
	return domain.HTTPError(kind, status, msg)
}

// envelopeError reports whether body carries a non-null "error" member and
// returns its message. Both {"error":{"message":...}} and {"error":"..."} are accepted.
func envelopeError(body []byte) (string, bool) {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", false
	}
	raw := bytes.TrimSpace(env.Error)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, true
	}
	var obj struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &obj)
	return obj.Message, true
}

func topLevelMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &env)
	return env.Message
}
