package task

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// StatusQuerier reads the state of one job. nanobanana.Client implements it.
type StatusQuerier interface {
	QueryTask(ctx context.Context, taskID string) (*domain.TaskStatus, error)
}

// PollConfig holds the polling schedule.
type PollConfig struct {
	// Interval is the wait between the end of one query and the next.
	Interval time.Duration

	// MaxAttempts caps the number of queries per task.
	MaxAttempts int

	// Timeout caps the wall-clock time since polling started. Zero disables it.
	Timeout time.Duration
}

// DefaultPollConfig returns the schedule used when none is configured.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    2 * time.Second,
		MaxAttempts: 150,
		Timeout:     5 * time.Minute,
	}
}

// maxRunningFraction keeps non-terminal progress below completion.
const maxRunningFraction = 0.95

// progressBuffer is the capacity of a Handle's progress channel.
const progressBuffer = 16

// Progress is reported after every successful query.
type Progress struct {
	TaskID   string           `json:"task_id"`
	State    domain.TaskState `json:"state"`
	Attempt  int              `json:"attempt"`
	Fraction float64          `json:"fraction"`
}

// Poller polls job status. One Poller serves any number of tasks; each
// task's queries run strictly one after another.
type Poller struct {
	// querier performs the status requests
	querier StatusQuerier

	// config is the schedule applied to every task
	config PollConfig

	// logger for structured logging
	logger *slog.Logger

	// mu guards active
	mu sync.Mutex

	// active maps task ids being polled to their cancel signal
	active map[string]*pollEntry
}

type pollEntry struct {
	cancel chan struct{}
	once   sync.Once
	refs   int
}

func (e *pollEntry) stop() {
	e.once.Do(func() { close(e.cancel) })
}

// NewPoller creates a poller. Invalid schedule values are replaced by defaults.
func NewPoller(querier StatusQuerier, config PollConfig, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "poller")

	defaults := DefaultPollConfig()
	if config.Interval <= 0 {
		logger.Warn("invalid poll interval, using default",
			"specified", config.Interval,
			"default", defaults.Interval)
		config.Interval = defaults.Interval
	}
	if config.MaxAttempts <= 0 {
		logger.Warn("invalid max attempts, using default",
			"specified", config.MaxAttempts,
			"default", defaults.MaxAttempts)
		config.MaxAttempts = defaults.MaxAttempts
	}

	return &Poller{
		querier: querier,
		config:  config,
		logger:  logger,
		active:  make(map[string]*pollEntry),
	}
}

// Config returns the schedule in use.
func (p *Poller) Config() PollConfig {
	return p.config
}

// Poll queries taskID until it succeeds, fails, times out or is cancelled.
//
// The first query is issued immediately. On success the final status is
// returned. A vendor failure yields a task_failed error whose message is the
// vendor's failMsg. Query errors are retried on the same schedule; once the
// attempt ceiling is hit the last query error is returned, otherwise a
// timeout error. onProgress may be nil.
func (p *Poller) Poll(ctx context.Context, taskID string, onProgress func(Progress)) (*domain.TaskStatus, error) {
	e := p.register(taskID)
	defer p.unregister(taskID, e)
	return p.run(ctx, taskID, e.cancel, onProgress)
}

// Start polls taskID in a new goroutine. The task is registered before Start
// returns, so Cancel and Active see it immediately.
func (p *Poller) Start(ctx context.Context, taskID string) *Handle {
	h := &Handle{
		TaskID:   taskID,
		done:     make(chan struct{}),
		progress: make(chan Progress, progressBuffer),
	}
	e := p.register(taskID)

	go func() {
		defer p.unregister(taskID, e)
		status, err := p.run(ctx, taskID, e.cancel, h.publish)
		h.finish(status, err)
	}()
	return h
}

// Cancel stops polling taskID. A query already in flight completes but its
// result is discarded. Returns false if taskID is not being polled.
func (p *Poller) Cancel(taskID string) bool {
	p.mu.Lock()
	e, ok := p.active[taskID]
	if ok {
		delete(p.active, taskID)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	e.stop()
	p.logger.Info("polling cancelled", "task_id", taskID)
	return true
}

// Active lists the tasks currently being polled, sorted.
func (p *Poller) Active() []string {
	p.mu.Lock()
	ids := make([]string, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (p *Poller) register(taskID string) *pollEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.active[taskID]
	if !ok {
		e = &pollEntry{cancel: make(chan struct{})}
		p.active[taskID] = e
	}
	e.refs++
	return e
}

func (p *Poller) unregister(taskID string, e *pollEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e.refs--
	if e.refs <= 0 && p.active[taskID] == e {
		delete(p.active, taskID)
	}
}

func (p *Poller) run(ctx context.Context, taskID string, cancel <-chan struct{}, onProgress func(Progress)) (*domain.TaskStatus, error) {
	log := p.logger.With("task_id", taskID)
	maxAttempts := p.config.MaxAttempts
	start := time.Now()

	var lastErr error
	for attempt := 1; ; attempt++ {
		if p.config.Timeout > 0 && time.Since(start) > p.config.Timeout {
			return nil, timeoutError(taskID, attempt-1, time.Since(start))
		}
		if attempt > maxAttempts {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, timeoutError(taskID, attempt-1, time.Since(start))
		}
		if isClosed(cancel) {
			return nil, cancelledError(taskID)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("polling task %s: %w", taskID, err)
		}

		status, err := p.querier.QueryTask(ctx, taskID)
		if isClosed(cancel) {
			log.Debug("discarding result of cancelled poll", "attempt", attempt)
			return nil, cancelledError(taskID)
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("polling task %s: %w", taskID, ctx.Err())
			}
			lastErr = err
			log.Warn("status query failed, will retry",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err)
			if attempt >= maxAttempts {
				return nil, lastErr
			}
		} else {
			lastErr = nil
			switch status.State {
			case domain.TaskStateSuccess:
				report(onProgress, Progress{TaskID: taskID, State: status.State, Attempt: attempt, Fraction: 1})
				log.Info("task succeeded", "attempt", attempt, "urls", len(status.URLs()))
				return status, nil

			case domain.TaskStateFail:
				msg := status.FailMsg
				if msg == "" {
					msg = "image generation failed"
				}
				log.Warn("task failed", "attempt", attempt, "fail_code", status.FailCode, "fail_msg", status.FailMsg)
				return nil, domain.NewError(domain.KindTaskFailed, msg)

			default:
				fraction := min(float64(attempt)/float64(maxAttempts), maxRunningFraction)
				report(onProgress, Progress{TaskID: taskID, State: status.State, Attempt: attempt, Fraction: fraction})
				if attempt >= maxAttempts {
					return nil, timeoutError(taskID, attempt, time.Since(start))
				}
			}
		}

		timer := time.NewTimer(p.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("polling task %s: %w", taskID, ctx.Err())
		case <-cancel:
			timer.Stop()
			return nil, cancelledError(taskID)
		case <-timer.C:
		}
	}
}

func report(onProgress func(Progress), pr Progress) {
	if onProgress != nil {
		onProgress(pr)
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func timeoutError(taskID string, attempts int, elapsed time.Duration) error {
	return domain.Errorf(domain.KindTimeout, "task %s did not finish after %d attempts (%s)",
		taskID, attempts, elapsed.Round(time.Millisecond))
}

func cancelledError(taskID string) error {
	return domain.Errorf(domain.KindCancelled, "polling of task %s was cancelled", taskID)
}
