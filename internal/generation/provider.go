package generation

import (
	"context"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// Provider generates vocabularies through one LLM vendor.
//
// All implementations send the same instruction prompt and parse replies with
// Parser, so they differ only in transport details.
type Provider interface {
	// ID returns the registry id, e.g. "siliconflow".
	ID() string

	// Name returns a human-readable vendor name.
	Name() string

	// DefaultModel returns the model used when none is configured.
	DefaultModel() string

	// Models lists the models offered for selection.
	Models() []domain.ModelInfo

	// GenerateVocabulary asks the vendor for a vocabulary for topic.
	//
	// Returns a *domain.Error of kind auth, network, api or parse on failure.
	// Malformed vocabulary JSON yields DefaultVocabulary unless the provider
	// was built in strict mode.
	GenerateVocabulary(ctx context.Context, topic, title string) (*domain.Vocabulary, error)

	// TestConnection sends a minimal request to verify credentials and reachability.
	// It never returns an error; failures are described in the result.
	TestConnection(ctx context.Context) domain.ConnectionResult
}

// Factory builds a provider from saved settings. Factories must accept an
// empty API key so the registry can describe providers before they are configured.
type Factory func(cfg domain.ProviderConfig) (Provider, error)
