package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/store"
)

// ConfigStore persists provider settings, one record per provider id.
type ConfigStore interface {
	SaveProviderConfig(ctx context.Context, cfg domain.ProviderConfig) error
	// ProviderConfig returns store.ErrNotFound when nothing is saved for id.
	ProviderConfig(ctx context.Context, id string) (*domain.ProviderConfig, error)
	DeleteProviderConfig(ctx context.Context, id string) error
	ProviderConfigs(ctx context.Context) ([]domain.ProviderConfig, error)
	SetCurrentProviderID(ctx context.Context, id string) error
	// CurrentProviderID returns store.ErrNotFound when no provider was selected.
	CurrentProviderID(ctx context.Context) (string, error)
}

// Manager keeps the provider registry and the active provider.
// It is safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	current    Provider
	currentCfg domain.ProviderConfig

	configs ConfigStore
	logger  *slog.Logger
}

// NewManager creates an empty registry. configs may be nil, in which case
// settings are kept only in memory.
func NewManager(configs ConfigStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		factories: make(map[string]Factory),
		configs:   configs,
		logger:    logger.With("component", "provider_manager"),
	}
}

// RegisterProvider adds or silently replaces the factory for id.
func (m *Manager) RegisterProvider(id string, f Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[id] = f
}

// SetCurrentProvider builds the provider for id with the given credentials and
// makes it current. An empty model selects the provider default. A base URL
// saved earlier for id is kept.
func (m *Manager) SetCurrentProvider(ctx context.Context, id, apiKey, model string) error {
	cfg := domain.ProviderConfig{ProviderID: id, APIKey: apiKey, Model: model}
	if saved, err := m.ProviderConfig(ctx, id); err == nil {
		cfg.BaseURL = saved.BaseURL
	}
	return m.UseConfig(ctx, cfg)
}

// UseConfig builds the provider described by cfg, persists cfg under its
// provider id, and makes it current.
func (m *Manager) UseConfig(ctx context.Context, cfg domain.ProviderConfig) error {
	p, err := m.build(cfg)
	if err != nil {
		return err
	}

	cfg.UpdatedAt = time.Now().UTC()
	if m.configs != nil {
		if err := m.configs.SaveProviderConfig(ctx, cfg); err != nil {
			return fmt.Errorf("failed to save config for %s: %w", cfg.ProviderID, err)
		}
		if err := m.configs.SetCurrentProviderID(ctx, cfg.ProviderID); err != nil {
			return fmt.Errorf("failed to save current provider: %w", err)
		}
	}

	m.setCurrent(p, cfg)
	m.logger.InfoContext(ctx, "provider selected",
		"provider", cfg.ProviderID,
		"model", p.DefaultModel(),
		"has_api_key", cfg.APIKey != "")
	return nil
}

// Restore re-activates the provider selected in a previous run. Missing or
// stale state is ignored.
func (m *Manager) Restore(ctx context.Context) error {
	if m.configs == nil {
		return nil
	}

	id, err := m.configs.CurrentProviderID(ctx)
	if store.IsNotFoundError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load current provider: %w", err)
	}

	cfg, err := m.configs.ProviderConfig(ctx, id)
	if store.IsNotFoundError(err) {
		cfg = &domain.ProviderConfig{ProviderID: id}
	} else if err != nil {
		return fmt.Errorf("failed to load config for %s: %w", id, err)
	}

	p, err := m.build(*cfg)
	if err != nil {
		m.logger.WarnContext(ctx, "ignoring saved provider", "provider", id, "error", err)
		return nil
	}

	m.setCurrent(p, *cfg)
	m.logger.InfoContext(ctx, "restored provider", "provider", id)
	return nil
}

func (m *Manager) build(cfg domain.ProviderConfig) (Provider, error) {
	m.mu.RLock()
	f, ok := m.factories[cfg.ProviderID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.ProviderID)
	}

	p, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, cfg.ProviderID, err)
	}
	return p, nil
}

func (m *Manager) setCurrent(p Provider, cfg domain.ProviderConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = p
	m.currentCfg = cfg
}

// Current returns the active provider and its settings.
func (m *Manager) Current() (Provider, domain.ProviderConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, domain.ProviderConfig{}, ErrNotConfigured
	}
	return m.current, m.currentCfg, nil
}

// GenerateVocabulary delegates to the current provider.
func (m *Manager) GenerateVocabulary(ctx context.Context, topic, title string) (*domain.Vocabulary, error) {
	p, _, err := m.Current()
	if err != nil {
		return nil, err
	}

	m.logger.DebugContext(ctx, "generating vocabulary", "provider", p.ID(), "topic", topic)
	return p.GenerateVocabulary(ctx, topic, title)
}

// TestConnection checks the current provider.
func (m *Manager) TestConnection(ctx context.Context) (domain.ConnectionResult, error) {
	p, _, err := m.Current()
	if err != nil {
		return domain.ConnectionResult{}, err
	}
	return p.TestConnection(ctx), nil
}

// Providers describes every registered provider, sorted by id.
func (m *Manager) Providers() []domain.ProviderInfo {
	m.mu.RLock()
	ids := make([]string, 0, len(m.factories))
	for id := range m.factories {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)

	infos := make([]domain.ProviderInfo, 0, len(ids))
	for _, id := range ids {
		p, err := m.build(domain.ProviderConfig{ProviderID: id})
		if err != nil {
			m.logger.Warn("cannot describe provider", "provider", id, "error", err)
			continue
		}
		infos = append(infos, domain.ProviderInfo{
			ID:           id,
			Name:         p.Name(),
			DefaultModel: p.DefaultModel(),
			Models:       p.Models(),
		})
	}
	return infos
}

// Models lists the models of a registered provider.
func (m *Manager) Models(id string) ([]domain.ModelInfo, error) {
	p, err := m.build(domain.ProviderConfig{ProviderID: id})
	if err != nil {
		return nil, err
	}
	return p.Models(), nil
}

// SaveProviderConfig persists settings for one provider without selecting it.
func (m *Manager) SaveProviderConfig(ctx context.Context, cfg domain.ProviderConfig) error {
	if m.configs == nil {
		return nil
	}
	cfg.UpdatedAt = time.Now().UTC()
	return m.configs.SaveProviderConfig(ctx, cfg)
}

// ProviderConfig returns the saved settings for id.
func (m *Manager) ProviderConfig(ctx context.Context, id string) (*domain.ProviderConfig, error) {
	if m.configs == nil {
		return nil, store.ErrNotFound
	}
	return m.configs.ProviderConfig(ctx, id)
}

// RemoveProviderConfig deletes the saved settings for id. The current
// provider stays active until another is selected.
func (m *Manager) RemoveProviderConfig(ctx context.Context, id string) error {
	if m.configs == nil {
		return nil
	}
	return m.configs.DeleteProviderConfig(ctx, id)
}

// ProviderConfigs returns every saved provider configuration.
func (m *Manager) ProviderConfigs(ctx context.Context) ([]domain.ProviderConfig, error) {
	if m.configs == nil {
		return nil, nil
	}
	return m.configs.ProviderConfigs(ctx)
}
