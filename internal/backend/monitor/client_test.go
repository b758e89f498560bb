package monitor_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmon/internal/backend/monitor"
	"taskmon/internal/config"
	"taskmon/internal/service"
	"taskmon/internal/session"
	"taskmon/internal/testutil"
	"taskmon/internal/ui"
)

type fixture struct {
	backend *testutil.FakeBackend
	tokens  *session.MemoryStore
	console *ui.Console
	stderr  *bytes.Buffer
	client  *monitor.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	return newFixtureFor(t, backend, backend.URL)
}

func newFixtureFor(t *testing.T, backend *testutil.FakeBackend, serverURL string) *fixture {
	t.Helper()
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	cfg.ServerURL = serverURL

	var stderr bytes.Buffer
	console := ui.NewConsole(&stderr)
	tokens := session.NewMemoryStore()

	client, err := monitor.New(cfg, tokens, monitor.Hooks{Notifier: console, Navigator: console})
	require.NoError(t, err)

	return &fixture{backend: backend, tokens: tokens, console: console, stderr: &stderr, client: client}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.tokens.Set(session.NewToken(f.backend.Token(t))))
}

func TestNew_InvalidServerURL(t *testing.T) {
	cfg, err := config.New(t.TempDir())
	require.NoError(t, err)
	cfg.ServerURL = "::nope"

	_, err = monitor.New(cfg, nil, monitor.Hooks{})
	assert.Error(t, err)
}

func TestDo_InjectsBearerToken(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.client.ListTasks(context.Background())
	require.NoError(t, err)

	h := f.backend.LastHeader(http.MethodGet, "/api/tasks")
	tok, _ := f.tokens.Get()
	assert.Equal(t, "Bearer "+tok.AccessToken, h.Get("Authorization"))
	assert.NotEmpty(t, h.Get(monitor.RequestIDHeader))
}

func TestDo_NoTokenSendsNoHeader(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.ListTasks(context.Background())
	require.Error(t, err)

	h := f.backend.LastHeader(http.MethodGet, "/api/tasks")
	assert.Empty(t, h.Get("Authorization"))
	assert.True(t, errors.Is(err, service.ErrUnauthorized))
}

func TestDo_UnwrapsEnvelope(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.AddTask(service.Task{TaskName: "Sony A7", Keyword: "a7m3", MaxPages: 3})

	tasks, err := f.client.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Sony A7", tasks[0].TaskName)
	assert.Equal(t, 1, tasks[0].TaskID)
	assert.Zero(t, f.console.Notices())
}

func TestDo_EmptyListIsNotNil(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	tasks, err := f.client.ListTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestDo_UnauthorizedClearsTokenAndRedirects(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tokens.Set(session.NewToken(f.backend.ExpiredToken(t))))

	err := f.client.DeleteTask(context.Background(), 7)

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrUnauthorized))
	_, ok := f.tokens.Get()
	assert.False(t, ok, "token should be cleared")
	assert.True(t, f.console.Redirected())
	assert.Equal(t, 1, f.console.Notices())
	assert.Contains(t, f.stderr.String(), "error: Could not validate credentials\n")
}

func TestDo_UnauthorizedFromAnyEndpoint(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.backend.Fail(http.MethodPost, "/api/results/3", http.StatusUnauthorized, "session revoked")

	_, err := f.client.Results(context.Background(), 3, service.ResultQuery{})

	assert.True(t, errors.Is(err, service.ErrUnauthorized))
	_, ok := f.tokens.Get()
	assert.False(t, ok)
	assert.True(t, f.console.Redirected())
}

func TestDo_RequestFailedWithDetail(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	_, err := f.client.UpdateTask(context.Background(), service.TaskUpdate{TaskID: 99})

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRequestFailed))
	var reqErr *service.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.Equal(t, "task not found", reqErr.Detail)
	assert.Equal(t, "error: task not found\n", f.stderr.String())
	assert.False(t, f.console.Redirected())
	_, ok := f.tokens.Get()
	assert.True(t, ok, "token must survive non-401 failures")
}

func TestDo_RequestFailedGenericMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()
	f := newFixtureFor(t, nil, srv.URL)

	err := f.client.RunTask(context.Background(), 1)

	assert.True(t, errors.Is(err, service.ErrRequestFailed))
	assert.Equal(t, "error: "+monitor.GenericFailure+"\n", f.stderr.String())
}

func TestDo_SuccessWithDetailIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"task is already running"}`))
	}))
	defer srv.Close()
	f := newFixtureFor(t, nil, srv.URL)

	err := f.client.RunTask(context.Background(), 1)

	assert.True(t, errors.Is(err, service.ErrRequestFailed))
	assert.Equal(t, 1, f.console.Notices())
	assert.Contains(t, f.stderr.String(), "task is already running")
}

func TestDo_ValidationDetailList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`))
	}))
	defer srv.Close()
	f := newFixtureFor(t, nil, srv.URL)

	_, err := f.client.CreateTask(context.Background(), service.NewTask{})

	var reqErr *service.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "field required; value is not a valid integer", reqErr.Detail)
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	f := newFixtureFor(t, nil, url)

	_, err := f.client.ListTasks(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrNetwork))
	assert.Equal(t, 1, f.console.Notices())
	assert.Contains(t, f.stderr.String(), "cannot reach server")
}

func TestLogin_FormEncoded(t *testing.T) {
	f := newFixture(t)

	res, err := f.client.Login(context.Background(), testutil.FakeUsername, testutil.FakePassword)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)

	h := f.backend.LastHeader(http.MethodPost, "/api/login")
	assert.Equal(t, "application/x-www-form-urlencoded", h.Get("Content-Type"))

	_, err = f.client.Login(context.Background(), "admin", "wrong")
	assert.True(t, errors.Is(err, service.ErrRequestFailed))
	assert.Contains(t, f.stderr.String(), "Incorrect username or password")
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	created, err := f.client.CreateTask(ctx, service.NewTask{TaskName: "A", Keyword: "lens", MaxPages: 2})
	require.NoError(t, err)
	assert.NotZero(t, created.TaskID)

	name := "B"
	updated, err := f.client.UpdateTask(ctx, service.TaskUpdate{TaskID: created.TaskID, TaskName: &name})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.TaskName)
	assert.Equal(t, "lens", updated.Keyword)

	require.NoError(t, f.client.RunTask(ctx, created.TaskID))
	st, err := f.client.TaskStatus(ctx, created.TaskID)
	require.NoError(t, err)
	assert.True(t, st.Running)

	running, err := f.client.RunningTasks(ctx)
	require.NoError(t, err)
	require.Len(t, running, 1)

	require.NoError(t, f.client.StopTask(ctx, created.TaskID))
	assert.Equal(t, 1, f.backend.Hits(http.MethodPost, "/api/tasks/stop/1"))
	assert.Zero(t, f.backend.Hits(http.MethodGet, "/api/tasks/stop/1"))

	require.NoError(t, f.client.DeleteTask(ctx, created.TaskID))
	assert.Empty(t, f.backend.Tasks())
}

func TestResults(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		f.backend.AddResult(4, service.TaskResult{Listing: service.Listing{ID: id, Title: "item " + id}})
	}

	page, err := f.client.Results(ctx, 4, service.ResultQuery{Page: 2, Limit: 2, SortBy: service.SortByPrice})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].Listing.ID)

	require.NoError(t, f.client.DeleteResult(ctx, "b"))
	page, err = f.client.Results(ctx, 4, service.ResultQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestMarketState(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	ok, err := f.client.MarketLoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.client.SaveMarketState(ctx, `{"cookies":[]}`))
	ok, err = f.client.MarketLoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.client.ClearMarketState(ctx))
	ok, err = f.client.MarketLoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunningTasks_ConcurrentCallersShareRequest(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		<-release
		_, _ = w.Write([]byte(`{"data":[{"task_id":1,"running":true}]}`))
	}))
	defer srv.Close()
	f := newFixtureFor(t, nil, srv.URL)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]service.TaskStatus, callers)
	started := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			sts, err := f.client.RunningTasks(context.Background())
			assert.NoError(t, err)
			results[i] = sts
		}(i)
	}
	for i := 0; i < callers; i++ {
		<-started
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return hits == 1
	}, testutil.WaitTimeout, testutil.PollInterval)
	// Let the remaining callers join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1, hits)
	mu.Unlock()
	for _, sts := range results {
		require.Len(t, sts, 1)
		assert.Equal(t, 1, sts[0].TaskID)
	}
}
