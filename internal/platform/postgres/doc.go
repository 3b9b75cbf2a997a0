// Package postgres provides the PostgreSQL implementation of
// store.KeyValueStore, backed by a single kv_entries table of JSONB
// documents, together with the embedded goose migrations that create it.
package postgres
