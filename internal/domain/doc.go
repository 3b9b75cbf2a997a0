// Package domain contains the core entities of the poster generator:
// vocabularies, provider settings, remote task snapshots and the typed
// error used at every vendor boundary. It has no knowledge of transport
// or storage.
package domain
