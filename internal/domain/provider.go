package domain

import (
	"strings"
	"time"
)

// ProviderConfig holds the user's settings for one LLM provider.
type ProviderConfig struct {
	ProviderID string    `json:"provider_id"`
	BaseURL    string    `json:"base_url,omitempty"`
	APIKey     string    `json:"api_key,omitempty"`
	Model      string    `json:"model,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Masked returns a copy with the API key obscured for display.
func (c ProviderConfig) Masked() ProviderConfig {
	c.APIKey = MaskKey(c.APIKey)
	return c
}

// MaskKey keeps the first and last four characters of long keys.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}

// ModelInfo describes a model a provider offers.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	DefaultModel string      `json:"default_model"`
	Models       []ModelInfo `json:"models"`
}

// ConnectionResult is the outcome of a provider connectivity check.
type ConnectionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Status  int    `json:"status,omitempty"`
}

// ConnectionFromError builds a ConnectionResult from a request outcome.
func ConnectionFromError(err error) ConnectionResult {
	if err == nil {
		return ConnectionResult{Success: true}
	}
	return ConnectionResult{Success: false, Error: err.Error(), Status: StatusOf(err)}
}
