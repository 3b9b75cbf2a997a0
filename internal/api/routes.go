package api

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts every handler on r. The caller decides the prefix.
func RegisterRoutes(r chi.Router, providers *ProviderHandler, vocab *VocabularyHandler, posters *PosterHandler) {
	r.Route("/providers", func(r chi.Router) {
		r.Get("/", providers.ListProviders)
		r.Get("/configs", providers.ListConfigs)
		r.Get("/current", providers.GetCurrentProvider)
		r.Put("/current", providers.SetCurrentProvider)
		r.Post("/current/test", providers.TestConnection)
		r.Get("/{id}/models", providers.ListModels)
		r.Delete("/{id}/config", providers.DeleteConfig)
	})

	r.Post("/vocabulary", vocab.Generate)
	r.Delete("/vocabulary/cache", vocab.ClearCache)
	r.Get("/history", vocab.ListHistory)
	r.Get("/history/{id}", vocab.GetHistoryEntry)

	r.Post("/prompts", posters.BuildPrompt)
	r.Get("/prompts/template", posters.GetTemplate)
	r.Put("/prompts/template", posters.SetTemplate)
	r.Delete("/prompts/template", posters.ResetTemplate)

	r.Post("/posters", posters.CreatePoster)
	r.Post("/posters/batch", posters.BatchGenerate)

	r.Get("/tasks", posters.ListTasks)
	r.Delete("/tasks", posters.ClearTasks)
	r.Get("/tasks/{id}", posters.GetTask)
	r.Delete("/tasks/{id}", posters.CancelTask)
}
