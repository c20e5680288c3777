package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/poewatch/cache"
	"github.com/briangreenhill/poewatch/internal/jobs"
	"github.com/briangreenhill/poewatch/poewatch"
)

var upstream = map[string]string{
	"/itemdata": `[
		{"id": 1, "name": "Mirror of Kalandra", "category": "currency", "stackSize": 10},
		{"id": 3, "name": "Tabula Rasa", "category": "armour", "linkCount": 6}
	]`,
	"/categories": `[{"id": 1, "name": "armour", "groups": []}]`,
	"/leagues": `[
		{"id": 1, "name": "Standard", "hardcore": false},
		{"id": 2, "name": "Hardcore", "hardcore": true},
		{"id": 3, "name": "Metamorph", "hardcore": false}
	]`,
	"/item": `{"id": 1, "leagues": [
		{"id": 1, "name": "Standard", "mean": 120.5},
		{"id": 3, "name": "Metamorph", "mean": 210}
	]}`,
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueRefresh, Type: task.Type()}, nil
}

type testEnv struct {
	srv     *Server
	ctrl    *poewatch.Controller
	queue   *fakeQueue
	failing func(path string)
}

func newTestEnv(t *testing.T, token string) *testEnv {
	t.Helper()

	var mu sync.Mutex
	failing := map[string]bool{}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fail := failing[r.URL.Path]
		mu.Unlock()
		if fail {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		body, ok := upstream[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(api.Close)

	ctrl, err := poewatch.NewController(cache.NewMemoryStore(0), poewatch.New(poewatch.WithBaseURL(api.URL)))
	require.NoError(t, err)

	queue := &fakeQueue{}
	return &testEnv{
		srv:   New(ServerOptions{Svc: poewatch.NewService(ctrl), Queue: queue, AdminToken: token}),
		ctrl:  ctrl,
		queue: queue,
		failing: func(path string) {
			mu.Lock()
			failing[path] = true
			mu.Unlock()
		},
	}
}

func (e *testEnv) do(t *testing.T, method, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodPost, "/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"refreshed": true}, decode[map[string]bool](t, rec))

	rec = env.do(t, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKindEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/leagues?hardcore=false")
	require.Equal(t, http.StatusOK, rec.Code)
	leagues := decode[[]map[string]any](t, rec)
	require.Len(t, leagues, 2)
	assert.Equal(t, "Standard", leagues[0]["name"])

	rec = env.do(t, http.MethodGet, "/leagues/find?name="+url.QueryEscape("~(?i)^meta"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Metamorph", decode[map[string]any](t, rec)["name"])

	rec = env.do(t, http.MethodGet, "/leagues/find?name=Nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/items/count")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"count": 2}, decode[map[string]int](t, rec))

	rec = env.do(t, http.MethodGet, "/items?stack_size=10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/leagues?name="+url.QueryEscape("~(bad"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/currencies")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestItemPricesEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/items/1/prices")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/items/1/prices?league=metamorph")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 210.0, decode[map[string]any](t, rec)["mean"], 0.001)

	rec = env.do(t, http.MethodGet, "/items/1/prices?league=Hardcore")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/items/99/prices")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/items/abc/prices")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoteFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t, "")
	env.failing("/leagues")

	rec := env.do(t, http.MethodGet, "/items")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "503")
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/refresh?ttl=5m")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/cache/footprint")
	require.Equal(t, http.StatusOK, rec.Code)
	footprint := decode[map[string]float64](t, rec)
	assert.Len(t, footprint, 3)
	assert.Greater(t, footprint["leagues"], 0.0)

	rec = env.do(t, http.MethodDelete, "/cache")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ready, err := env.ctrl.Ready(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)

	rec = env.do(t, http.MethodPost, "/refresh?ttl=soon")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsyncRefresh(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/refresh?async=true&ttl=30m")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, env.queue.tasks, 1)
	assert.Equal(t, jobs.TaskRefreshDatasets, env.queue.tasks[0].Type())
	assert.JSONEq(t, `{"ttl_seconds": 1800}`, string(env.queue.tasks[0].Payload()))

	env.queue.err = asynq.ErrDuplicateTask
	rec = env.do(t, http.MethodPost, "/refresh?async=true")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "already queued"))
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	rec := env.do(t, http.MethodPost, "/refresh")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodDelete, "/cache")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/refresh", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)

	// reads stay open
	rec = env.do(t, http.MethodGet, "/leagues/count")
	assert.Equal(t, http.StatusOK, rec.Code)
}
