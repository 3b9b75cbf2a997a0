package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/literacy-poster/internal/config"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/platform/chat"
	"github.com/phrazzld/literacy-poster/internal/platform/gemini"
	"github.com/phrazzld/literacy-poster/internal/platform/nanobanana"
	"github.com/phrazzld/literacy-poster/internal/platform/postgres"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/phrazzld/literacy-poster/internal/service"
	"github.com/phrazzld/literacy-poster/internal/store"
	"github.com/phrazzld/literacy-poster/internal/task"
	"github.com/phrazzld/literacy-poster/internal/vocabulary"
)

// application holds the shared dependencies and releases them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when state is kept in memory.
	db *sql.DB

	providers *generation.Manager
	images    *nanobanana.Client
	poller    *task.Poller
	vocab     *vocabulary.Engine
	templates *prompt.Template
	posters   service.PosterService
}

// newApplication wires every component from cfg. A database is only opened
// when database.url is set.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var kv store.KeyValueStore = store.NewMemoryKV()
	if cfg.Database.URL != "" {
		db, err := setupDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		app.db = db
		kv = postgres.NewKVStore(db)
	} else {
		logger.Warn("no database configured, state is kept in memory")
	}

	sealer, err := newSealer(cfg.Storage, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	app.providers = generation.NewManager(store.NewProviderConfigRepository(kv, sealer), logger)
	registerProviders(app.providers, cfg.LLM, logger)
	if err := app.selectProvider(ctx); err != nil {
		app.cleanup()
		return nil, err
	}

	app.images = nanobanana.NewClient(nanobanana.Config{
		BaseURL:     cfg.Image.BaseURL,
		APIVersion:  cfg.Image.APIVersion,
		APIKey:      cfg.Image.APIKey,
		Model:       cfg.Image.Model,
		CallbackURL: cfg.Image.CallbackURL,
		Timeout:     cfg.Image.RequestTimeout,
		Logger:      logger,
	})
	if !app.images.Configured() {
		logger.Warn("image API key not configured, poster generation will fail until image.api_key is set")
	}

	app.poller = task.NewPoller(app.images, task.PollConfig{
		Interval:    cfg.Polling.Interval,
		MaxAttempts: cfg.Polling.MaxAttempts,
		Timeout:     cfg.Polling.Timeout,
	}, logger)

	app.vocab = vocabulary.NewEngine(
		app.providers,
		store.NewVocabularyCache(kv),
		store.NewGenerationHistory(kv),
		logger,
	)
	app.templates = prompt.New()

	app.posters, err = service.NewPosterService(
		app.images,
		app.poller,
		store.NewTaskHistory(kv),
		app.vocab,
		app.templates,
		cfg.Batch.Concurrency,
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create poster service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

func newSealer(cfg config.StorageConfig, logger *slog.Logger) (*store.Sealer, error) {
	if cfg.SecretKey == "" {
		logger.Warn("storage.secret_key not set, provider API keys are stored unencrypted")
		return nil, nil
	}
	sealer, err := store.NewSealer(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}
	return sealer, nil
}

// registerProviders adds Gemini and every chat-completion vendor to m.
func registerProviders(m *generation.Manager, cfg config.LLMConfig, logger *slog.Logger) {
	for _, p := range chat.Profiles() {
		m.RegisterProvider(p.ID, chat.Factory(p, chat.Options{
			Timeout: cfg.RequestTimeout,
			Strict:  cfg.StrictParse,
			Logger:  logger,
		}))
	}
	m.RegisterProvider(gemini.ProviderID, gemini.Factory(gemini.Options{
		Timeout: cfg.RequestTimeout,
		Strict:  cfg.StrictParse,
		Logger:  logger,
	}))
}

// selectProvider restores the saved provider selection. When nothing was
// saved and an API key is configured, the configured default is selected.
func (app *application) selectProvider(ctx context.Context) error {
	if err := app.providers.Restore(ctx); err != nil {
		app.logger.Warn("failed to restore provider selection", "error", err)
	}
	_, _, err := app.providers.Current()
	if err == nil {
		return nil
	}
	if !errors.Is(err, generation.ErrNotConfigured) {
		return err
	}

	llm := app.config.LLM
	if llm.APIKey == "" {
		app.logger.Info("no vocabulary provider configured, preset and basic vocabulary only")
		return nil
	}

	err = app.providers.UseConfig(ctx, domain.ProviderConfig{
		ProviderID: llm.DefaultProvider,
		APIKey:     llm.APIKey,
		Model:      llm.Model,
		BaseURL:    llm.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to select provider %q: %w", llm.DefaultProvider, err)
	}
	return nil
}

// imageDefaults are the poster options used when a request leaves them empty.
func (app *application) imageDefaults() nanobanana.CreateOptions {
	return nanobanana.CreateOptions{
		AspectRatio:  app.config.Image.AspectRatio,
		Resolution:   app.config.Image.Resolution,
		OutputFormat: app.config.Image.OutputFormat,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops running polls and closes the database.
func (app *application) cleanup() {
	if app.posters != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.posters.Shutdown(ctx); err != nil {
			app.logger.Error("error stopping poster service", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
