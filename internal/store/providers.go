package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// ProviderConfigRepository keeps one record per provider under
// llm_config_<id> so switching providers never overwrites another's settings.
type ProviderConfigRepository struct {
	kv     KeyValueStore
	sealer *Sealer
}

// NewProviderConfigRepository creates a repository. sealer may be nil.
func NewProviderConfigRepository(kv KeyValueStore, sealer *Sealer) *ProviderConfigRepository {
	return &ProviderConfigRepository{kv: kv, sealer: sealer}
}

func providerKey(id string) string {
	return KeyProviderConfigPrefix + id
}

// SaveProviderConfig stores cfg, sealing the API key when a sealer is configured.
func (r *ProviderConfigRepository) SaveProviderConfig(ctx context.Context, cfg domain.ProviderConfig) error {
	if cfg.ProviderID == "" {
		return fmt.Errorf("%w: provider id is required", ErrInvalidEntity)
	}
	sealed, err := r.sealer.Seal(cfg.APIKey)
	if err != nil {
		return NewStoreError("provider_config", "save", "cannot seal api key", err)
	}
	cfg.APIKey = sealed
	return setJSON(ctx, r.kv, providerKey(cfg.ProviderID), cfg)
}

// ProviderConfig loads the settings for id.
func (r *ProviderConfigRepository) ProviderConfig(ctx context.Context, id string) (*domain.ProviderConfig, error) {
	var cfg domain.ProviderConfig
	if err := getJSON(ctx, r.kv, providerKey(id), &cfg); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrProviderConfigNotFound
		}
		return nil, err
	}
	key, err := r.sealer.Open(cfg.APIKey)
	if err != nil {
		return nil, NewStoreError("provider_config", "get", "cannot open api key", err)
	}
	cfg.APIKey = key
	return &cfg, nil
}

// DeleteProviderConfig removes the settings for id.
func (r *ProviderConfigRepository) DeleteProviderConfig(ctx context.Context, id string) error {
	return r.kv.Delete(ctx, providerKey(id))
}

// ProviderConfigs loads every saved provider config, ordered by id.
func (r *ProviderConfigRepository) ProviderConfigs(ctx context.Context) ([]domain.ProviderConfig, error) {
	keys, err := r.kv.Keys(ctx, KeyProviderConfigPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProviderConfig, 0, len(keys))
	for _, k := range keys {
		cfg, err := r.ProviderConfig(ctx, strings.TrimPrefix(k, KeyProviderConfigPrefix))
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, nil
}

// SetCurrentProviderID records the selected provider.
func (r *ProviderConfigRepository) SetCurrentProviderID(ctx context.Context, id string) error {
	return setJSON(ctx, r.kv, KeyCurrentProvider, id)
}

// CurrentProviderID returns the selected provider or ErrNotFound.
func (r *ProviderConfigRepository) CurrentProviderID(ctx context.Context) (string, error) {
	var id string
	if err := getJSON(ctx, r.kv, KeyCurrentProvider, &id); err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNotFound
	}
	return id, nil
}
