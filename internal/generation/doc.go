// Package generation defines the boundary to the LLM vendors that produce
// poster vocabularies. It holds the Provider interface every vendor adapter
// implements, the shared instruction prompt, response parsing with the
// default-vocabulary fallback, and the Manager that tracks registered
// providers, the active one, and each provider's saved settings.
//
// Concrete adapters live under internal/platform (chat for the
// OpenAI-compatible and Anthropic vendors, gemini for the genai SDK).
package generation
