package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the batch chunk size used when none is given.
const DefaultConcurrency = 3

// Pipeline produces one image for one prompt: it creates a job and polls it.
type Pipeline interface {
	Run(ctx context.Context, prompt string, onProgress func(Progress)) (taskID string, status *domain.TaskStatus, err error)
}

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, prompt string, onProgress func(Progress)) (string, *domain.TaskStatus, error)

// Run implements Pipeline.
func (f PipelineFunc) Run(ctx context.Context, prompt string, onProgress func(Progress)) (string, *domain.TaskStatus, error) {
	return f(ctx, prompt, onProgress)
}

// BatchOptions configure one Generate call.
type BatchOptions struct {
	// Concurrency is the chunk size. Values <= 0 use DefaultConcurrency.
	Concurrency int

	// OnItemProgress receives progress of the item at index.
	OnItemProgress func(index int, p Progress)

	// OnItemDone is called once per item after it settles.
	OnItemDone func(completed, total int, item domain.BatchItem)
}

// Batch runs pipelines for many prompts.
type Batch struct {
	pipeline Pipeline
	logger   *slog.Logger
}

// NewBatch creates a batch coordinator.
func NewBatch(pipeline Pipeline, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{pipeline: pipeline, logger: logger.With("component", "batch")}
}

// Generate runs one pipeline per prompt and returns the outcomes in input order.
//
// Prompts are processed in chunks of opts.Concurrency: the items of a chunk
// run concurrently and the next chunk starts once all of them have settled.
// A failing item never stops its siblings or later chunks. Callbacks are
// serialized. If ctx is done, prompts not yet started fail with ctx's error.
func (b *Batch) Generate(ctx context.Context, prompts []string, opts BatchOptions) []domain.BatchItem {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	total := len(prompts)
	results := make([]domain.BatchItem, total)
	var (
		mu        sync.Mutex
		completed int
	)

	settle := func(item domain.BatchItem) {
		mu.Lock()
		defer mu.Unlock()
		results[item.Index] = item
		completed++
		if opts.OnItemDone != nil {
			opts.OnItemDone(completed, total, item)
		}
	}

	chunks := lo.Chunk(prompts, concurrency)
	offset := 0
	for ci, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			for j, prompt := range chunk {
				settle(domain.BatchItem{Index: offset + j, Prompt: prompt, Err: err})
			}
			offset += len(chunk)
			continue
		}

		b.logger.DebugContext(ctx, "starting chunk",
			"chunk", ci+1,
			"chunks", len(chunks),
			"size", len(chunk))

		var g errgroup.Group
		for j, prompt := range chunk {
			index := offset + j
			g.Go(func() error {
				onProgress := func(p Progress) {
					if opts.OnItemProgress == nil {
						return
					}
					mu.Lock()
					defer mu.Unlock()
					opts.OnItemProgress(index, p)
				}

				taskID, status, err := b.pipeline.Run(ctx, prompt, onProgress)
				if err != nil {
					b.logger.WarnContext(ctx, "batch item failed",
						"index", index,
						"task_id", taskID,
						"error", err)
				}
				settle(domain.BatchItem{
					Index:  index,
					Prompt: prompt,
					TaskID: taskID,
					URLs:   status.URLs(),
					Err:    err,
				})
				return nil
			})
		}
		_ = g.Wait()
		offset += len(chunk)
	}

	failed := lo.CountBy(results, func(item domain.BatchItem) bool { return !item.Succeeded() })
	b.logger.InfoContext(ctx, "batch finished",
		"total", total,
		"succeeded", total-failed,
		"failed", failed)
	return results
}

// BatchErrors aggregates item failures, or returns nil when every item succeeded.
func BatchErrors(items []domain.BatchItem) error {
	var result *multierror.Error
	for _, item := range items {
		if item.Err != nil {
			result = multierror.Append(result, fmt.Errorf("prompt %d: %w", item.Index, item.Err))
		}
	}
	return result.ErrorOrNil()
}
