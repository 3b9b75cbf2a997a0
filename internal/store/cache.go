package store

import (
	"context"
	"errors"
	"strings"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// VocabularyCache maps lowercased topics to previously generated vocabularies.
// The whole cache is one document under vocabulary_cache.
type VocabularyCache struct {
	kv KeyValueStore
}

// NewVocabularyCache creates a cache over kv.
func NewVocabularyCache(kv KeyValueStore) *VocabularyCache {
	return &VocabularyCache{kv: kv}
}

// CacheKey normalizes a topic for lookup.
func CacheKey(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

// Get returns the cached vocabulary for topic or ErrNotFound.
func (c *VocabularyCache) Get(ctx context.Context, topic string) (*domain.Vocabulary, error) {
	entries := map[string]*domain.Vocabulary{}
	if err := getJSON(ctx, c.kv, KeyVocabularyCache, &entries); err != nil {
		return nil, err
	}
	v, ok := entries[CacheKey(topic)]
	if !ok || v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

// Put stores v for topic.
func (c *VocabularyCache) Put(ctx context.Context, topic string, v *domain.Vocabulary) error {
	return updateJSON(ctx, c.kv, KeyVocabularyCache, func(entries *map[string]*domain.Vocabulary) error {
		if *entries == nil {
			*entries = map[string]*domain.Vocabulary{}
		}
		(*entries)[CacheKey(topic)] = v
		return nil
	})
}

// Clear drops every cached entry.
func (c *VocabularyCache) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx, KeyVocabularyCache)
}

// Len reports the number of cached topics.
func (c *VocabularyCache) Len(ctx context.Context) (int, error) {
	entries := map[string]*domain.Vocabulary{}
	err := getJSON(ctx, c.kv, KeyVocabularyCache, &entries)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
