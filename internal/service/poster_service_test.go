package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/platform/nanobanana"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/phrazzld/literacy-poster/internal/service"
	"github.com/phrazzld/literacy-poster/internal/store"
	"github.com/phrazzld/literacy-poster/internal/task"
	"github.com/phrazzld/literacy-poster/internal/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJobs hands out sequential task ids. Prompts listed in fail are rejected.
type fakeJobs struct {
	mu      sync.Mutex
	n       int
	prompts map[string]string
	opts    []nanobanana.CreateOptions
	fail    map[string]error
	err     error
}

func (f *fakeJobs) CreateTask(_ context.Context, p string, opts nanobanana.CreateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if err, ok := f.fail[p]; ok {
		return "", err
	}
	f.n++
	id := fmt.Sprintf("task-%d", f.n)
	if f.prompts == nil {
		f.prompts = map[string]string{}
	}
	f.prompts[id] = p
	f.opts = append(f.opts, opts)
	return id, nil
}

func (f *fakeJobs) prompt(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[id]
}

// fakeQuerier answers every query with script(taskID, call).
type fakeQuerier struct {
	mu     sync.Mutex
	calls  map[string]int
	script func(taskID string, call int) (*domain.TaskStatus, error)
}

func (q *fakeQuerier) QueryTask(_ context.Context, taskID string) (*domain.TaskStatus, error) {
	q.mu.Lock()
	if q.calls == nil {
		q.calls = map[string]int{}
	}
	q.calls[taskID]++
	call := q.calls[taskID]
	q.mu.Unlock()
	return q.script(taskID, call)
}

func successAfter(n int) func(string, int) (*domain.TaskStatus, error) {
	return func(taskID string, call int) (*domain.TaskStatus, error) {
		if call < n {
			return &domain.TaskStatus{TaskID: taskID, State: domain.TaskStateGenerating}, nil
		}
		return &domain.TaskStatus{
			TaskID: taskID,
			State:  domain.TaskStateSuccess,
			Result: &domain.TaskResult{URLs: []string{"https://cdn.example.com/" + taskID + ".png"}},
		}, nil
	}
}

func alwaysRunning(taskID string, _ int) (*domain.TaskStatus, error) {
	return &domain.TaskStatus{TaskID: taskID, State: domain.TaskStateQueuing}, nil
}

type fixture struct {
	svc     service.PosterService
	jobs    *fakeJobs
	history *store.TaskHistory
}

func newFixture(t *testing.T, jobs *fakeJobs, q *fakeQuerier) fixture {
	t.Helper()
	kv := store.NewMemoryKV()
	history := store.NewTaskHistory(kv)
	engine := vocabulary.NewEngine(nil, store.NewVocabularyCache(kv), store.NewGenerationHistory(kv), nil)
	poller := task.NewPoller(q, task.PollConfig{Interval: 5 * time.Millisecond, MaxAttempts: 50}, nil)

	svc, err := service.NewPosterService(jobs, poller, history, engine, prompt.New(), 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return fixture{svc: svc, jobs: jobs, history: history}
}

func waitForState(t *testing.T, svc service.PosterService, taskID, state string) *service.TaskView {
	t.Helper()
	var view *service.TaskView
	require.Eventually(t, func() bool {
		v, err := svc.GetTask(context.Background(), taskID)
		if err != nil || v.Live {
			return false
		}
		view = v
		return v.State == state
	}, 2*time.Second, 5*time.Millisecond)
	return view
}

func TestNewPosterServiceValidatesDependencies(t *testing.T) {
	t.Parallel()

	_, err := service.NewPosterService(nil, nil, nil, nil, nil, 0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var svcErr *service.PosterServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "init", svcErr.Operation)
}

func TestBuildPromptGeneratesVocabulary(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: successAfter(1)})

	out, err := f.svc.BuildPrompt(context.Background(), service.PromptRequest{Topic: "超市", Title: "开心超市"})

	require.NoError(t, err)
	assert.Equal(t, vocabulary.SourcePreset, out.Source)
	assert.Contains(t, out.Prompt, "shōu yín yuán 收银员")
	assert.Contains(t, out.Prompt, "开心超市")
	assert.Equal(t, 15, out.Vocabulary.Total())
}

func TestBuildPromptUsesGivenVocabulary(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: successAfter(1)})
	v := &domain.Vocabulary{
		Core: []domain.VocabularyItem{{Hanzi: "老虎", Pinyin: "lǎo hǔ"}},
	}

	out, err := f.svc.BuildPrompt(context.Background(), service.PromptRequest{
		Topic:      "动物园",
		Vocabulary: v,
		Simple:     true,
	})

	require.NoError(t, err)
	assert.Empty(t, out.Source)
	assert.Equal(t, "动物园", out.Title)
	assert.Equal(t, prompt.Simple("动物园", "动物园", v), out.Prompt)
}

func TestBuildPromptRequiresTopic(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: successAfter(1)})

	_, err := f.svc.BuildPrompt(context.Background(), service.PromptRequest{Topic: " "})
	assert.ErrorIs(t, err, service.ErrTopicRequired)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStartPosterRecordsSuccess(t *testing.T) {
	t.Parallel()
	jobs := &fakeJobs{}
	f := newFixture(t, jobs, &fakeQuerier{script: successAfter(3)})
	opts := nanobanana.CreateOptions{AspectRatio: "1:1", Resolution: "4K"}

	view, err := f.svc.StartPoster(context.Background(), service.PosterRequest{
		PromptRequest: service.PromptRequest{Topic: "公园", Title: "快乐公园"},
		Options:       opts,
	})
	require.NoError(t, err)
	assert.Equal(t, "task-1", view.TaskID)
	assert.True(t, view.Live)
	assert.Contains(t, jobs.prompt("task-1"), "快乐公园")
	assert.Equal(t, []nanobanana.CreateOptions{opts}, jobs.opts)

	done := waitForState(t, f.svc, "task-1", "success")
	assert.Equal(t, []string{"https://cdn.example.com/task-1.png"}, done.URLs)
	assert.Equal(t, 1.0, done.Progress)

	list, err := f.svc.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "task-1", list[0].TaskID)
	assert.Equal(t, view.Prompt, list[0].Prompt)
	assert.Empty(t, f.svc.RunningTasks())
}

func TestStartPosterCreateFailure(t *testing.T) {
	t.Parallel()
	jobs := &fakeJobs{err: domain.HTTPError(domain.KindPayment, 402, "insufficient credits")}
	f := newFixture(t, jobs, &fakeQuerier{script: successAfter(1)})

	_, err := f.svc.StartPoster(context.Background(), service.PosterRequest{
		PromptRequest: service.PromptRequest{Topic: "医院"},
	})

	assert.ErrorIs(t, err, domain.ErrPayment)
	assert.Equal(t, "insufficient credits", err.Error())
	assert.Empty(t, f.svc.RunningTasks())
}

func TestStartPosterRecordsVendorFailure(t *testing.T) {
	t.Parallel()
	q := &fakeQuerier{script: func(taskID string, _ int) (*domain.TaskStatus, error) {
		return &domain.TaskStatus{TaskID: taskID, State: domain.TaskStateFail, FailMsg: "quota exceeded"}, nil
	}}
	f := newFixture(t, &fakeJobs{}, q)

	_, err := f.svc.StartPoster(context.Background(), service.PosterRequest{
		PromptRequest: service.PromptRequest{Topic: "超市"},
	})
	require.NoError(t, err)

	view := waitForState(t, f.svc, "task-1", "fail")
	assert.Equal(t, "quota exceeded", view.Error)
	assert.Empty(t, view.URLs)
}

func TestCancelTask(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: alwaysRunning})

	_, err := f.svc.StartPoster(context.Background(), service.PosterRequest{
		PromptRequest: service.PromptRequest{Topic: "超市"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1"}, f.svc.RunningTasks())

	assert.True(t, f.svc.CancelTask("task-1"))
	view := waitForState(t, f.svc, "task-1", service.StateCancelled)
	assert.NotEmpty(t, view.Error)

	assert.False(t, f.svc.CancelTask("task-1"))
	assert.False(t, f.svc.CancelTask("unknown"))
}

func TestShutdownCancelsBackgroundPolls(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: alwaysRunning})

	_, err := f.svc.StartPoster(context.Background(), service.PosterRequest{
		PromptRequest: service.PromptRequest{Topic: "超市"},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	rec, err := f.history.Get(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, service.StateCancelled, rec.State)
}

func TestGetTaskUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: successAfter(1)})

	_, err := f.svc.GetTask(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBatchGenerate(t *testing.T) {
	t.Parallel()
	jobs := &fakeJobs{fail: map[string]error{"b": domain.HTTPError(domain.KindAPI, 500, "boom")}}
	f := newFixture(t, jobs, &fakeQuerier{script: successAfter(2)})

	items, err := f.svc.BatchGenerate(context.Background(), []string{"a", "b", "c"}, service.BatchRequest{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, i, items[i].Index)
		assert.Equal(t, want, items[i].Prompt)
	}
	assert.NoError(t, items[0].Err)
	assert.Len(t, items[0].URLs, 1)
	assert.ErrorIs(t, items[1].Err, domain.ErrAPI)
	assert.Empty(t, items[1].TaskID)
	assert.NoError(t, items[2].Err)
	assert.Error(t, task.BatchErrors(items))

	list, err := f.svc.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Empty(t, f.svc.RunningTasks())
}

func TestBatchGenerateRequiresPrompts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: successAfter(1)})

	_, err := f.svc.BatchGenerate(context.Background(), nil, service.BatchRequest{})
	assert.True(t, errors.Is(err, service.ErrNoPrompts))
}

func TestClearTasks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &fakeJobs{}, &fakeQuerier{script: successAfter(1)})
	ctx := context.Background()

	_, err := f.svc.BatchGenerate(ctx, []string{"only"}, service.BatchRequest{Concurrency: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearTasks(ctx))
	list, err := f.svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
