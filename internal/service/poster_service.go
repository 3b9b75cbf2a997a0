package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
	"github.com/phrazzld/literacy-poster/internal/platform/nanobanana"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/phrazzld/literacy-poster/internal/redact"
	"github.com/phrazzld/literacy-poster/internal/store"
	"github.com/phrazzld/literacy-poster/internal/task"
	"github.com/phrazzld/literacy-poster/internal/vocabulary"
)

// historyWriteTimeout bounds the history write after a task settles.
const historyWriteTimeout = 5 * time.Second

// JobCreator submits image generation jobs. nanobanana.Client implements it.
type JobCreator interface {
	CreateTask(ctx context.Context, prompt string, opts nanobanana.CreateOptions) (string, error)
}

// VocabularySource supplies a vocabulary when the caller sends none.
// vocabulary.Engine implements it.
type VocabularySource interface {
	Generate(ctx context.Context, topic, title string, opts vocabulary.Options) (*vocabulary.Result, error)
}

// PromptRenderer fills the poster template. prompt.Template implements it.
type PromptRenderer interface {
	Render(topic, title string, v *domain.Vocabulary) string
}

// PromptRequest describes a prompt to render.
type PromptRequest struct {
	Topic string
	Title string
	// Vocabulary is generated when nil or empty.
	Vocabulary *domain.Vocabulary
	// Simple selects the short preview prompt instead of the full template.
	Simple   bool
	UseCache bool
}

// RenderedPrompt is a prompt and the vocabulary it was built from.
type RenderedPrompt struct {
	Prompt     string             `json:"prompt"`
	Topic      string             `json:"topic"`
	Title      string             `json:"title"`
	Vocabulary *domain.Vocabulary `json:"vocabulary"`
	// Source is empty when the caller supplied the vocabulary.
	Source vocabulary.Source `json:"source,omitempty"`
}

// PosterRequest describes one poster to generate.
type PosterRequest struct {
	PromptRequest
	Options nanobanana.CreateOptions
}

// BatchRequest configures a batch run.
type BatchRequest struct {
	// Concurrency is the chunk size. Values <= 0 use the service default.
	Concurrency int
	Options     nanobanana.CreateOptions
}

// PosterService generates posters and tracks their image tasks.
type PosterService interface {
	// BuildPrompt renders the image prompt for a topic, generating the
	// vocabulary if needed.
	BuildPrompt(ctx context.Context, req PromptRequest) (*RenderedPrompt, error)

	// StartPoster renders the prompt, creates the image job and polls it in
	// the background. It returns once the job exists.
	StartPoster(ctx context.Context, req PosterRequest) (*TaskView, error)

	// GetTask returns the live state of a running task, or its history record.
	GetTask(ctx context.Context, taskID string) (*TaskView, error)

	// CancelTask stops polling a running task.
	CancelTask(taskID string) bool

	// RunningTasks lists the ids of tasks being tracked.
	RunningTasks() []string

	// ListTasks returns the task history, newest first.
	ListTasks(ctx context.Context) ([]domain.TaskRecord, error)

	// ClearTasks empties the task history.
	ClearTasks(ctx context.Context) error

	// BatchGenerate creates and polls one job per prompt and waits for all of
	// them. Results are in input order.
	BatchGenerate(ctx context.Context, prompts []string, req BatchRequest) ([]domain.BatchItem, error)

	// Shutdown stops background polling and waits for it to drain.
	Shutdown(ctx context.Context) error
}

// posterServiceImpl implements the PosterService interface
type posterServiceImpl struct {
	jobs        JobCreator
	poller      *task.Poller
	history     *store.TaskHistory
	vocab       VocabularySource
	templates   PromptRenderer
	concurrency int
	logger      *slog.Logger
	tracker     *tracker

	// ctx scopes background polls; cancel stops them on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPosterService creates a PosterService.
// It returns an error if any of the required dependencies are nil.
func NewPosterService(
	jobs JobCreator,
	poller *task.Poller,
	history *store.TaskHistory,
	vocab VocabularySource,
	templates PromptRenderer,
	concurrency int,
	logger *slog.Logger,
) (PosterService, error) {
	switch {
	case jobs == nil:
		return nil, NewPosterServiceError("init", "job client cannot be nil", domain.ErrValidation)
	case poller == nil:
		return nil, NewPosterServiceError("init", "poller cannot be nil", domain.ErrValidation)
	case history == nil:
		return nil, NewPosterServiceError("init", "task history cannot be nil", domain.ErrValidation)
	case vocab == nil:
		return nil, NewPosterServiceError("init", "vocabulary source cannot be nil", domain.ErrValidation)
	case templates == nil:
		return nil, NewPosterServiceError("init", "prompt renderer cannot be nil", domain.ErrValidation)
	}

	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = task.DefaultConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &posterServiceImpl{
		jobs:        jobs,
		poller:      poller,
		history:     history,
		vocab:       vocab,
		templates:   templates,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "poster_service")),
		tracker:     newTracker(),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// BuildPrompt implements PosterService.BuildPrompt
func (s *posterServiceImpl) BuildPrompt(ctx context.Context, req PromptRequest) (*RenderedPrompt, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, ErrTopicRequired
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = topic
	}

	out := &RenderedPrompt{Topic: topic, Title: title, Vocabulary: req.Vocabulary}
	if out.Vocabulary == nil || out.Vocabulary.Total() == 0 {
		res, err := s.vocab.Generate(ctx, topic, title, vocabulary.Options{
			UseCache: req.UseCache,
			UseAI:    true,
			Count:    vocabulary.DefaultCount,
		})
		if err != nil {
			return nil, NewPosterServiceError("build_prompt", "failed to generate vocabulary", err)
		}
		out.Vocabulary, out.Source = res.Vocabulary, res.Source
	}

	if req.Simple {
		out.Prompt = prompt.Simple(topic, title, out.Vocabulary)
	} else {
		out.Prompt = s.templates.Render(topic, title, out.Vocabulary)
	}
	return out, nil
}

// StartPoster implements PosterService.StartPoster
func (s *posterServiceImpl) StartPoster(ctx context.Context, req PosterRequest) (*TaskView, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rendered, err := s.BuildPrompt(ctx, req.PromptRequest)
	if err != nil {
		return nil, err
	}

	taskID, err := s.jobs.CreateTask(ctx, rendered.Prompt, req.Options)
	if err != nil {
		log.Error("failed to create image task",
			slog.String("topic", rendered.Topic),
			slog.String("error", redact.Error(err)))
		return nil, err
	}

	view := s.tracker.add(taskID, rendered.Prompt)
	h := s.poller.Start(s.ctx, taskID)

	s.wg.Add(1)
	go s.watch(h, view)

	log.Info("poster task started",
		slog.String("task_id", taskID),
		slog.String("topic", rendered.Topic))
	return view, nil
}

// watch mirrors a background poll into the tracker and records its outcome.
func (s *posterServiceImpl) watch(h *task.Handle, view *TaskView) {
	defer s.wg.Done()
	for p := range h.Progress() {
		s.tracker.update(p)
	}
	status, err := h.Wait(context.Background())
	s.settle(view.TaskID, view.Prompt, view.CreatedAt, status, err)
}

// settle stores the terminal record and drops the task from the tracker.
func (s *posterServiceImpl) settle(taskID, promptText string, createdAt time.Time, status *domain.TaskStatus, err error) {
	rec := domain.TaskRecord{
		TaskID:      taskID,
		Prompt:      promptText,
		State:       outcomeState(err),
		URLs:        status.URLs(),
		CreatedAt:   createdAt,
		CompletedAt: time.Now().UTC(),
	}
	if err != nil {
		rec.FailReason = err.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if saveErr := s.history.Save(ctx, rec); saveErr != nil {
		s.logger.Error("failed to save task record",
			slog.String("task_id", taskID),
			slog.String("error", saveErr.Error()))
	}
	s.tracker.remove(taskID)

	s.logger.Info("task settled",
		slog.String("task_id", taskID),
		slog.String("state", rec.State),
		slog.Int("urls", len(rec.URLs)))
}

// outcomeState names the terminal state of a poll result.
func outcomeState(err error) string {
	switch {
	case err == nil:
		return string(domain.TaskStateSuccess)
	case errors.Is(err, domain.ErrTaskFailed):
		return string(domain.TaskStateFail)
	case errors.Is(err, domain.ErrTimeout):
		return StateTimeout
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		return StateCancelled
	default:
		return StateError
	}
}

// GetTask implements PosterService.GetTask
func (s *posterServiceImpl) GetTask(ctx context.Context, taskID string) (*TaskView, error) {
	if v, ok := s.tracker.get(taskID); ok {
		return v, nil
	}
	rec, err := s.history.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return viewFromRecord(rec), nil
}

// CancelTask implements PosterService.CancelTask
func (s *posterServiceImpl) CancelTask(taskID string) bool {
	return s.poller.Cancel(taskID)
}

// RunningTasks implements PosterService.RunningTasks
func (s *posterServiceImpl) RunningTasks() []string {
	return s.tracker.ids()
}

// ListTasks implements PosterService.ListTasks
func (s *posterServiceImpl) ListTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	return s.history.List(ctx)
}

// ClearTasks implements PosterService.ClearTasks
func (s *posterServiceImpl) ClearTasks(ctx context.Context) error {
	return s.history.Clear(ctx)
}

// BatchGenerate implements PosterService.BatchGenerate
func (s *posterServiceImpl) BatchGenerate(ctx context.Context, prompts []string, req BatchRequest) ([]domain.BatchItem, error) {
	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}
	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = s.concurrency
	}

	pipeline := task.PipelineFunc(func(ctx context.Context, text string, onProgress func(task.Progress)) (string, *domain.TaskStatus, error) {
		return s.runOne(ctx, text, req.Options, onProgress)
	})
	log := logger.FromContextOrDefault(ctx, s.logger)
	items := task.NewBatch(pipeline, log).Generate(ctx, prompts, task.BatchOptions{
		Concurrency: concurrency,
		OnItemProgress: func(_ int, p task.Progress) {
			s.tracker.update(p)
		},
	})

	if err := task.BatchErrors(items); err != nil {
		log.Warn("batch finished with failures", slog.String("error", redact.Error(err)))
	}
	return items, nil
}

// runOne is the batch pipeline: create the job, then poll it to completion.
func (s *posterServiceImpl) runOne(ctx context.Context, text string, opts nanobanana.CreateOptions, onProgress func(task.Progress)) (string, *domain.TaskStatus, error) {
	taskID, err := s.jobs.CreateTask(ctx, text, opts)
	if err != nil {
		return "", nil, err
	}
	view := s.tracker.add(taskID, text)
	status, err := s.poller.Poll(ctx, taskID, onProgress)
	s.settle(taskID, text, view.CreatedAt, status, err)
	return taskID, status, err
}

// Shutdown implements PosterService.Shutdown
func (s *posterServiceImpl) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
