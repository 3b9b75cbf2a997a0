package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/literacy-poster/internal/api"
	"github.com/phrazzld/literacy-poster/internal/api/middleware"
	"github.com/phrazzld/literacy-poster/internal/api/shared"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
	"github.com/phrazzld/literacy-poster/internal/platform/nanobanana"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/phrazzld/literacy-poster/internal/service"
	"github.com/phrazzld/literacy-poster/internal/store"
	"github.com/phrazzld/literacy-poster/internal/task"
	"github.com/phrazzld/literacy-poster/internal/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	cfg domain.ProviderConfig
	err error
}

func (p *fakeProvider) ID() string           { return "fake" }
func (p *fakeProvider) Name() string         { return "Fake LLM" }
func (p *fakeProvider) DefaultModel() string { return "fake-1" }
func (p *fakeProvider) Models() []domain.ModelInfo {
	return []domain.ModelInfo{{ID: "fake-1", Name: "Fake 1"}, {ID: "fake-2", Name: "Fake 2"}}
}

func (p *fakeProvider) GenerateVocabulary(context.Context, string, string) (*domain.Vocabulary, error) {
	if p.err != nil {
		return nil, p.err
	}
	return generation.DefaultVocabulary(), nil
}

func (p *fakeProvider) TestConnection(context.Context) domain.ConnectionResult {
	return domain.ConnectionFromError(p.err)
}

// fakeJobs hands out sequential task ids.
type fakeJobs struct {
	mu  sync.Mutex
	n   int
	err error
}

func (f *fakeJobs) CreateTask(context.Context, string, nanobanana.CreateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.n++
	return fmt.Sprintf("task-%d", f.n), nil
}

// doneQuerier reports success on the second query.
type doneQuerier struct {
	mu    sync.Mutex
	calls map[string]int
}

func (q *doneQuerier) QueryTask(_ context.Context, taskID string) (*domain.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.calls == nil {
		q.calls = map[string]int{}
	}
	q.calls[taskID]++
	if q.calls[taskID] < 2 {
		return &domain.TaskStatus{TaskID: taskID, State: domain.TaskStateGenerating}, nil
	}
	return &domain.TaskStatus{
		TaskID: taskID,
		State:  domain.TaskStateSuccess,
		Result: &domain.TaskResult{URLs: []string{"https://cdn.example.com/" + taskID + ".png"}},
	}, nil
}

type testEnv struct {
	handler  http.Handler
	provider *fakeProvider
	jobs     *fakeJobs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	_, log := logger.NewCapture()
	kv := store.NewMemoryKV()

	env := &testEnv{provider: &fakeProvider{}, jobs: &fakeJobs{}}
	manager := generation.NewManager(store.NewProviderConfigRepository(kv, nil), log)
	manager.RegisterProvider("fake", func(cfg domain.ProviderConfig) (generation.Provider, error) {
		env.provider.cfg = cfg
		return env.provider, nil
	})

	engine := vocabulary.NewEngine(manager, store.NewVocabularyCache(kv), store.NewGenerationHistory(kv), log)
	poller := task.NewPoller(&doneQuerier{}, task.PollConfig{Interval: 5 * time.Millisecond, MaxAttempts: 20}, log)
	templates := prompt.New()
	posters, err := service.NewPosterService(env.jobs, poller, store.NewTaskHistory(kv), engine, templates, 2, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = posters.Shutdown(ctx)
	})

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware(log))
	r.Route("/api", func(r chi.Router) {
		api.RegisterRoutes(r,
			api.NewProviderHandler(manager, log),
			api.NewVocabularyHandler(engine, log),
			api.NewPosterHandler(posters, templates, nanobanana.CreateOptions{AspectRatio: "3:4"}, log))
	})
	env.handler = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestProviderRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/providers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	infos := decode[[]domain.ProviderInfo](t, rec)
	require.Len(t, infos, 1)
	assert.Equal(t, "fake", infos[0].ID)
	assert.Len(t, infos[0].Models, 2)

	rec = env.do(t, http.MethodGet, "/api/providers/current", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[shared.ErrorResponse](t, rec)
	assert.Equal(t, "no provider configured", errResp.Error)
	assert.NotEmpty(t, errResp.TraceID)

	rec = env.do(t, http.MethodPut, "/api/providers/current", map[string]string{
		"provider_id": "fake",
		"api_key":     "sk-abcdefgh12345678",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	current := decode[api.ProviderConfigResponse](t, rec)
	assert.Equal(t, "fake", current.ProviderID)
	assert.Equal(t, "Fake LLM", current.Name)
	assert.Equal(t, "fake-1", current.Model)
	assert.Equal(t, "sk-a****5678", current.APIKey)
	assert.True(t, current.HasAPIKey)
	assert.NotContains(t, rec.Body.String(), "sk-abcdefgh12345678")
	assert.Equal(t, "sk-abcdefgh12345678", env.provider.cfg.APIKey)

	rec = env.do(t, http.MethodPost, "/api/providers/current/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.ConnectionResult](t, rec).Success)

	rec = env.do(t, http.MethodGet, "/api/providers/fake/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.ModelInfo](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/providers/configs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	configs := decode[[]api.ProviderConfigResponse](t, rec)
	require.Len(t, configs, 1)
	assert.Equal(t, "sk-a****5678", configs[0].APIKey)

	rec = env.do(t, http.MethodDelete, "/api/providers/fake/config", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetProviderErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/providers/current", map[string]string{"provider_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[shared.ErrorResponse](t, rec).Error, "unknown provider")

	rec = env.do(t, http.MethodPut, "/api/providers/current", map[string]string{"api_key": "k"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid ProviderID: required field", decode[shared.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodGet, "/api/providers/nope/models", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/providers/current", bytes.NewBufferString("{"))
	out := httptest.NewRecorder()
	env.handler.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
	assert.Equal(t, "Invalid request format", decode[shared.ErrorResponse](t, out).Error)
}

func TestVocabularyRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/vocabulary", map[string]string{"topic": "超市", "title": "开心超市"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.VocabularyResponse](t, rec)
	assert.Equal(t, vocabulary.SourcePreset, resp.Source)
	assert.Equal(t, 15, resp.Stats.Total)
	assert.Empty(t, resp.Warning)
	assert.NotEqual(t, uuid.Nil, resp.HistoryID)

	rec = env.do(t, http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]domain.GenerationRecord](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, "开心超市", history[0].Title)

	rec = env.do(t, http.MethodGet, "/api/history/"+resp.HistoryID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/history/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "History entry not found", decode[shared.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodGet, "/api/history/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id has invalid format", decode[shared.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/vocabulary", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/vocabulary/cache", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestVocabularyReportsAIFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.provider.err = domain.HTTPError(domain.KindAuth, 401, "Invalid API key")

	rec := env.do(t, http.MethodPut, "/api/providers/current", map[string]string{"provider_id": "fake", "api_key": "k"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/vocabulary", map[string]string{"topic": "海洋"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.VocabularyResponse](t, rec)
	assert.Equal(t, vocabulary.SourceBasic, resp.Source)
	assert.Equal(t, "Invalid API key", resp.Warning)
	assert.Equal(t, domain.Hint(env.provider.err), resp.Hint)
}

func TestPromptRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/prompts", map[string]string{"topic": "超市", "title": "开心超市"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rendered := decode[service.RenderedPrompt](t, rec)
	assert.Contains(t, rendered.Prompt, "shōu yín yuán 收银员")

	rec = env.do(t, http.MethodPut, "/api/prompts/template", map[string]string{"template": "no placeholders"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/prompts/template", map[string]string{"template": "{{title}} about {{topic}}"})
	require.Equal(t, http.StatusOK, rec.Code)
	tpl := decode[api.TemplateResponse](t, rec)
	assert.False(t, tpl.Complete)
	assert.Equal(t, prompt.VarCoreVocabulary, tpl.Missing)

	rec = env.do(t, http.MethodPost, "/api/prompts", map[string]string{"topic": "公园", "title": "快乐公园"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "快乐公园 about 公园", decode[service.RenderedPrompt](t, rec).Prompt)

	rec = env.do(t, http.MethodDelete, "/api/prompts/template", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tpl = decode[api.TemplateResponse](t, rec)
	assert.True(t, tpl.Complete)
	assert.Equal(t, prompt.DefaultTemplate, tpl.Template)
}

func TestPosterRoutes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/posters", map[string]string{"topic": "公园", "resolution": "4K"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	view := decode[service.TaskView](t, rec)
	assert.Equal(t, "task-1", view.TaskID)

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/api/tasks/task-1", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		v := decode[service.TaskView](t, rec)
		return !v.Live && v.State == string(domain.TaskStateSuccess)
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[api.TaskListResponse](t, rec)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, []string{"https://cdn.example.com/task-1.png"}, list.Tasks[0].URLs)
	assert.Empty(t, list.Running)

	rec = env.do(t, http.MethodPost, "/api/posters", map[string]string{"topic": "公园", "resolution": "8K"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Resolution: invalid value", decode[shared.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodGet, "/api/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decode[shared.ErrorResponse](t, rec).Error)

	rec = env.do(t, http.MethodDelete, "/api/tasks/missing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[api.CancelResponse](t, rec).Cancelled)

	rec = env.do(t, http.MethodDelete, "/api/tasks", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPosterCreateFailureHasHint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.jobs.err = domain.HTTPError(domain.KindPayment, 402, "insufficient credits")

	rec := env.do(t, http.MethodPost, "/api/posters", map[string]string{"topic": "超市"})

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	resp := decode[shared.ErrorResponse](t, rec)
	assert.Equal(t, "insufficient credits", resp.Error)
	assert.NotEmpty(t, resp.Hint)
}

func TestBatchRoute(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/posters/batch", map[string]any{
		"prompts":     []string{"first", "second", "third"},
		"concurrency": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.BatchResponse](t, rec)
	assert.Equal(t, 3, resp.Succeeded)
	assert.Zero(t, resp.Failed)
	require.Len(t, resp.Items, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, i, resp.Items[i].Index)
		assert.Equal(t, want, resp.Items[i].Prompt)
		assert.Len(t, resp.Items[i].URLs, 1)
	}

	rec = env.do(t, http.MethodPost, "/api/posters/batch", map[string]any{"prompts": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
