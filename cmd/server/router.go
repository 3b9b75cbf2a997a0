package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/literacy-poster/internal/api"
	apiMiddleware "github.com/phrazzld/literacy-poster/internal/api/middleware"
)

// setupRouter creates the router with middleware, the API routes under /api
// and the health check.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	providerHandler := api.NewProviderHandler(app.providers, app.logger)
	vocabularyHandler := api.NewVocabularyHandler(app.vocab, app.logger)
	posterHandler := api.NewPosterHandler(app.posters, app.templates, app.imageDefaults(), app.logger)

	r.Route("/api", func(r chi.Router) {
		api.RegisterRoutes(r, providerHandler, vocabularyHandler, posterHandler)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
