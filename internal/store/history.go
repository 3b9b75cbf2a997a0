package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/literacy-poster/internal/domain"
)

// History limits.
const (
	GenerationHistoryLimit = 50
	TaskHistoryLimit       = 100
)

// GenerationHistory is the bounded log of generated vocabularies, oldest first.
type GenerationHistory struct {
	kv    KeyValueStore
	limit int
}

// NewGenerationHistory creates a history capped at GenerationHistoryLimit.
func NewGenerationHistory(kv KeyValueStore) *GenerationHistory {
	return &GenerationHistory{kv: kv, limit: GenerationHistoryLimit}
}

// Append adds rec, dropping the oldest entries beyond the limit.
func (h *GenerationHistory) Append(ctx context.Context, rec *domain.GenerationRecord) error {
	return updateJSON(ctx, h.kv, KeyGenerationHistory, func(list *[]domain.GenerationRecord) error {
		*list = append(*list, *rec)
		if over := len(*list) - h.limit; over > 0 {
			*list = (*list)[over:]
		}
		return nil
	})
}

// List returns all entries, oldest first.
func (h *GenerationHistory) List(ctx context.Context) ([]domain.GenerationRecord, error) {
	var list []domain.GenerationRecord
	err := getJSON(ctx, h.kv, KeyGenerationHistory, &list)
	if errors.Is(err, ErrNotFound) {
		return []domain.GenerationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns the entry with id or ErrHistoryEntryNotFound.
func (h *GenerationHistory) Get(ctx context.Context, id uuid.UUID) (*domain.GenerationRecord, error) {
	list, err := h.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, ErrHistoryEntryNotFound
}

// TaskHistory is the bounded list of finished image tasks, newest first.
type TaskHistory struct {
	kv    KeyValueStore
	limit int
}

// NewTaskHistory creates a history capped at TaskHistoryLimit.
func NewTaskHistory(kv KeyValueStore) *TaskHistory {
	return &TaskHistory{kv: kv, limit: TaskHistoryLimit}
}

// Save replaces the record with the same task id in place, or inserts rec at
// the front. Entries beyond the limit are dropped from the tail.
func (h *TaskHistory) Save(ctx context.Context, rec domain.TaskRecord) error {
	return updateJSON(ctx, h.kv, KeyTaskList, func(list *[]domain.TaskRecord) error {
		for i := range *list {
			if (*list)[i].TaskID == rec.TaskID {
				(*list)[i] = rec
				return nil
			}
		}
		*list = append([]domain.TaskRecord{rec}, *list...)
		if len(*list) > h.limit {
			*list = (*list)[:h.limit]
		}
		return nil
	})
}

// List returns all records, newest first.
func (h *TaskHistory) List(ctx context.Context) ([]domain.TaskRecord, error) {
	var list []domain.TaskRecord
	err := getJSON(ctx, h.kv, KeyTaskList, &list)
	if errors.Is(err, ErrNotFound) {
		return []domain.TaskRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns the record for taskID or ErrTaskNotFound.
func (h *TaskHistory) Get(ctx context.Context, taskID string) (*domain.TaskRecord, error) {
	list, err := h.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].TaskID == taskID {
			return &list[i], nil
		}
	}
	return nil, ErrTaskNotFound
}

// Clear removes every record.
func (h *TaskHistory) Clear(ctx context.Context) error {
	return h.kv.Delete(ctx, KeyTaskList)
}
