package store

import (
	"context"
	"encoding/json"
	"errors"
)

// KeyValueStore is durable storage for JSON documents addressed by string keys.
//
// Implementations: MemoryKV here and postgres.KVStore.
type KeyValueStore interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Update atomically replaces the value of key with fn(current).
	// current is nil when key is absent. An error from fn aborts the update.
	Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error
}

// Storage keys shared with other front ends of the same data.
const (
	KeyProviderConfigPrefix = "llm_config_"
	KeyCurrentProvider      = "llm_current_provider"
	KeyVocabularyCache      = "vocabulary_cache"
	KeyGenerationHistory    = "generation_history"
	KeyTaskList             = "task_list"
)

func getJSON(ctx context.Context, kv KeyValueStore, key string, v any) error {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return NewStoreError(key, "decode", "stored value is not valid JSON", errors.Join(ErrInvalidEntity, err))
	}
	return nil
}

func setJSON(ctx context.Context, kv KeyValueStore, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return NewStoreError(key, "encode", "value cannot be encoded", errors.Join(ErrInvalidEntity, err))
	}
	return kv.Set(ctx, key, raw)
}

// updateJSON decodes the current value into a fresh T, applies fn and stores the result.
func updateJSON[T any](ctx context.Context, kv KeyValueStore, key string, fn func(*T) error) error {
	return kv.Update(ctx, key, func(current []byte) ([]byte, error) {
		var v T
		if len(current) > 0 {
			if err := json.Unmarshal(current, &v); err != nil {
				return nil, NewStoreError(key, "decode", "stored value is not valid JSON", errors.Join(ErrInvalidEntity, err))
			}
		}
		if err := fn(&v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
}
