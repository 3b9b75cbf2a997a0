package task

import (
	"context"
	"sync"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// Outcome is the final result of a background poll.
type Outcome struct {
	Status *domain.TaskStatus
	Err    error
}

// Handle tracks a poll started with Poller.Start.
type Handle struct {
	TaskID string

	done     chan struct{}
	progress chan Progress

	mu      sync.Mutex
	outcome Outcome
}

// Done is closed once the poll has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Progress delivers progress updates and is closed when the poll finishes.
// When the reader falls behind the oldest pending update is dropped.
func (h *Handle) Progress() <-chan Progress {
	return h.progress
}

// Wait blocks until the poll finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*domain.TaskStatus, error) {
	select {
	case <-h.done:
		o, _ := h.Outcome()
		return o.Status, o.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outcome returns the result without blocking. ok is false while the poll is running.
func (h *Handle) Outcome() (o Outcome, ok bool) {
	select {
	case <-h.done:
	default:
		return Outcome{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome, true
}

// publish is only called from the polling goroutine.
func (h *Handle) publish(pr Progress) {
	for {
		select {
		case h.progress <- pr:
			return
		default:
		}
		select {
		case <-h.progress:
		default:
		}
	}
}

func (h *Handle) finish(status *domain.TaskStatus, err error) {
	h.mu.Lock()
	h.outcome = Outcome{Status: status, Err: err}
	h.mu.Unlock()
	close(h.progress)
	close(h.done)
}
