// Package vocabulary assembles the word list for a poster topic from, in
// order of preference, the cache, built-in scene presets, the configured
// LLM provider and keyword templates, then pads it to the target size.
package vocabulary
