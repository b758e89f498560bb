package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"taskmon/internal/service"
)

// Default credentials accepted by FakeBackend.
const (
	FakeUsername = "admin"
	FakePassword = "admin123"
)

// Failure is an injected error response.
type Failure struct {
	Status int
	Detail string
}

// FakeBackend is an httptest server speaking the monitoring backend's HTTP
// API. Bearer tokens are HS256 JWTs signed by the fake itself.
type FakeBackend struct {
	*httptest.Server

	// ListGate, when set, holds GET /api/tasks until it is closed.
	ListGate chan struct{}

	secret []byte

	mu       sync.Mutex
	tasks    []service.Task
	nextID   int
	results  map[int][]service.TaskResult
	market   string
	hits     map[string]int
	headers  map[string]http.Header
	failures map[string]Failure
}

// NewFakeBackend starts a FakeBackend that is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		secret:   []byte("fake-backend-signing-secret"),
		nextID:   1,
		results:  make(map[int][]service.TaskResult),
		hits:     make(map[string]int),
		headers:  make(map[string]http.Header),
		failures: make(map[string]Failure),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

func (b *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Use(b.inject)

	r.Post("/api/login", b.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)

		r.Get("/api/tasks", b.handleListTasks)
		r.Post("/api/tasks/create", b.handleCreateTask)
		r.Post("/api/tasks/update", b.handleUpdateTask)
		r.Delete("/api/tasks/delete/{id}", b.handleDeleteTask)
		r.Post("/api/tasks/run/{id}", b.handleSetRunning(true))
		r.Post("/api/tasks/stop/{id}", b.handleSetRunning(false))
		r.Get("/api/tasks/status", b.handleRunning)
		r.Get("/api/tasks/status/{id}", b.handleStatus)
		r.Post("/api/results/{id}", b.handleResults)
		r.Delete("/api/results/{id}", b.handleDeleteResult)
		r.Get("/api/status/goofish", b.handleMarketStatus)
		r.Post("/api/goofish/state/save", b.handleMarketSave)
		r.Delete("/api/goofish/state/delete", b.handleMarketDelete)
	})
	return r
}

// Token returns a valid bearer token.
func (b *FakeBackend) Token(t testing.TB) string {
	t.Helper()
	tok, err := b.sign(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

// ExpiredToken returns a token the backend rejects with 401.
func (b *FakeBackend) ExpiredToken(t testing.TB) string {
	t.Helper()
	tok, err := b.sign(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func (b *FakeBackend) sign(exp time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   FakeUsername,
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// AddTask stores a task, assigning an id when TaskID is zero.
func (b *FakeBackend) AddTask(task service.Task) service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if task.TaskID == 0 {
		task.TaskID = b.nextID
	}
	if task.TaskID >= b.nextID {
		b.nextID = task.TaskID + 1
	}
	b.tasks = append(b.tasks, task)
	return task
}

// Tasks returns a copy of the stored tasks.
func (b *FakeBackend) Tasks() []service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]service.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// AddResult stores a result for a task.
func (b *FakeBackend) AddResult(taskID int, r service.TaskResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results[taskID] = append(b.results[taskID], r)
}

// Fail makes every method+path request answer with the given failure.
// A zero status removes the injection.
func (b *FakeBackend) Fail(method, path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(b.failures, key)
		return
	}
	b.failures[key] = Failure{Status: status, Detail: detail}
}

// Hits returns how many method+path requests were received.
func (b *FakeBackend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// LastHeader returns the headers of the most recent method+path request.
func (b *FakeBackend) LastHeader(method, path string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[method+" "+path]
}

func (b *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.hits[key]++
		b.headers[key] = r.Header.Clone()
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		f, ok := b.failures[r.Method+" "+r.URL.Path]
		b.mu.Unlock()
		if ok {
			writeDetail(w, f.Status, f.Detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return b.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	if r.PostForm.Get("username") != FakeUsername || r.PostForm.Get("password") != FakePassword {
		writeDetail(w, http.StatusBadRequest, "Incorrect username or password")
		return
	}
	tok, err := b.sign(time.Now().Add(time.Hour))
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeData(w, service.LoginResult{AccessToken: tok, TokenType: "bearer"})
}

func (b *FakeBackend) handleListTasks(w http.ResponseWriter, r *http.Request) {
	if b.ListGate != nil {
		select {
		case <-b.ListGate:
		case <-r.Context().Done():
			return
		}
	}
	writeData(w, b.Tasks())
}

func (b *FakeBackend) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in service.NewTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid task")
		return
	}
	writeData(w, b.AddTask(in.Task(0)))
}

func (b *FakeBackend) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in service.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid task")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.tasks {
		if t.TaskID == in.TaskID {
			b.tasks[i] = in.Apply(t)
			writeData(w, b.tasks[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "task not found")
}

func (b *FakeBackend) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.tasks {
		if t.TaskID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			writeData(w, map[string]string{"message": "task deleted"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "task not found")
}

func (b *FakeBackend) handleSetRunning(running bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, t := range b.tasks {
			if t.TaskID == id {
				b.tasks[i].Running = running
				writeData(w, map[string]bool{"running": running})
				return
			}
		}
		writeDetail(w, http.StatusNotFound, "task not found")
	}
}

func (b *FakeBackend) handleRunning(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sts := []service.TaskStatus{}
	for _, t := range b.tasks {
		if t.Running {
			sts = append(sts, service.TaskStatus{TaskID: t.TaskID, Running: true, NextRunTime: t.NextRunTime})
		}
	}
	writeData(w, sts)
}

func (b *FakeBackend) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.tasks {
		if t.TaskID == id {
			writeData(w, service.TaskStatus{TaskID: id, Running: t.Running, NextRunTime: t.NextRunTime})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "task not found")
}

func (b *FakeBackend) handleResults(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var q service.ResultQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid query")
		return
	}

	b.mu.Lock()
	var items []service.TaskResult
	for _, res := range b.results[id] {
		if q.RecommendedOnly && (res.Analysis == nil || res.Analysis.Score < 50) {
			continue
		}
		items = append(items, res)
	}
	b.mu.Unlock()

	writeData(w, paginate(items, q))
}

func (b *FakeBackend) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for taskID, items := range b.results {
		for i, res := range items {
			if res.Listing.ID == resultID {
				b.results[taskID] = append(items[:i], items[i+1:]...)
				writeData(w, map[string]string{"message": "result deleted"})
				return
			}
		}
	}
	writeDetail(w, http.StatusNotFound, "result not found")
}

func (b *FakeBackend) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, b.market != "")
}

func (b *FakeBackend) handleMarketSave(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || !json.Valid([]byte(in.Content)) {
		writeDetail(w, http.StatusBadRequest, "content must be valid JSON")
		return
	}
	b.mu.Lock()
	b.market = in.Content
	b.mu.Unlock()
	writeData(w, map[string]string{"message": "saved"})
}

func (b *FakeBackend) handleMarketDelete(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.market = ""
	b.mu.Unlock()
	writeData(w, map[string]string{"message": "deleted"})
}

func paginate(items []service.TaskResult, q service.ResultQuery) service.ResultPage {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	out := service.ResultPage{Total: len(items), Page: page, Limit: limit, Items: []service.TaskResult{}}
	start := (page - 1) * limit
	if start >= len(items) {
		return out
	}
	end := min(start+limit, len(items))
	out.Items = items[start:end]
	return out
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid task id")
		return 0, false
	}
	return id, true
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
