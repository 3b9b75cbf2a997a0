// Package store persists the client's local state: per-provider settings,
// the vocabulary cache, and the bounded generation and task histories.
//
// Everything sits on a KeyValueStore of JSON documents. MemoryKV serves
// single-process runs and tests; internal/platform/postgres provides the
// durable implementation.
package store
