// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"net/http"
	"sync"

	"taskmon/internal/service"
)

// NotFound is the error FakeService returns for unknown ids.
func NotFound(what string) error {
	return service.NewRequestError(service.ErrRequestFailed, http.StatusNotFound, what+" not found", nil)
}

// Unauthorized is an error matching service.ErrUnauthorized.
func Unauthorized() error {
	return service.NewRequestError(service.ErrUnauthorized, http.StatusUnauthorized, "Could not validate credentials", nil)
}

// Unreachable is an error matching service.ErrNetwork.
func Unreachable() error {
	return service.NewRequestError(service.ErrNetwork, 0, "cannot reach server: connection refused", nil)
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu      sync.RWMutex
	tasks   []service.Task
	nextID  int
	results map[int][]service.TaskResult
	market  string
	calls   map[string]int

	// ListTasksGate, when set, blocks ListTasks until it is closed.
	ListTasksGate chan struct{}

	// Error injection for testing
	LoginErr        error
	ListTasksErr    error
	CreateTaskErr   error
	UpdateTaskErr   error
	DeleteTaskErr   error
	RunTaskErr      error
	StopTaskErr     error
	StatusErr       error
	ResultsErr      error
	DeleteResultErr error
	MarketErr       error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID:  1,
		results: make(map[int][]service.TaskResult),
		calls:   make(map[string]int),
	}
}

// AddTask stores a task, assigning an id when TaskID is zero.
func (f *FakeService) AddTask(task service.Task) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.TaskID == 0 {
		task.TaskID = f.nextID
	}
	if task.TaskID >= f.nextID {
		f.nextID = task.TaskID + 1
	}
	f.tasks = append(f.tasks, task)
	return task
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// AddResult stores a result for a task.
func (f *FakeService) AddResult(taskID int, r service.TaskResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[taskID] = append(f.results[taskID], r)
}

// Calls returns how many times the named method was called.
func (f *FakeService) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

func (f *FakeService) count(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

// Login implements service.Service. Any non-empty password is accepted.
func (f *FakeService) Login(ctx context.Context, username, password string) (service.LoginResult, error) {
	f.count("Login")
	if f.LoginErr != nil {
		return service.LoginResult{}, f.LoginErr
	}
	return service.LoginResult{AccessToken: "token-" + username, TokenType: "bearer"}, nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.count("ListTasks")
	if f.ListTasksGate != nil {
		select {
		case <-f.ListTasksGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	f.count("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	return f.AddTask(task.Task(0)), nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, update service.TaskUpdate) (service.Task, error) {
	f.count("UpdateTask")
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.TaskID == update.TaskID {
			f.tasks[i] = update.Apply(t)
			return f.tasks[i], nil
		}
	}
	return service.Task{}, NotFound("task")
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, taskID int) error {
	f.count("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.TaskID == taskID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return NotFound("task")
}

// RunTask implements service.Service.
func (f *FakeService) RunTask(ctx context.Context, taskID int) error {
	f.count("RunTask")
	if f.RunTaskErr != nil {
		return f.RunTaskErr
	}
	return f.setRunning(taskID, true)
}

// StopTask implements service.Service.
func (f *FakeService) StopTask(ctx context.Context, taskID int) error {
	f.count("StopTask")
	if f.StopTaskErr != nil {
		return f.StopTaskErr
	}
	return f.setRunning(taskID, false)
}

func (f *FakeService) setRunning(taskID int, running bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.TaskID == taskID {
			f.tasks[i].Running = running
			return nil
		}
	}
	return NotFound("task")
}

// TaskStatus implements service.Service.
func (f *FakeService) TaskStatus(ctx context.Context, taskID int) (service.TaskStatus, error) {
	f.count("TaskStatus")
	if f.StatusErr != nil {
		return service.TaskStatus{}, f.StatusErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.tasks {
		if t.TaskID == taskID {
			return service.TaskStatus{TaskID: taskID, Running: t.Running, NextRunTime: t.NextRunTime}, nil
		}
	}
	return service.TaskStatus{}, NotFound("task")
}

// RunningTasks implements service.Service.
func (f *FakeService) RunningTasks(ctx context.Context) ([]service.TaskStatus, error) {
	f.count("RunningTasks")
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []service.TaskStatus
	for _, t := range f.tasks {
		if t.Running {
			out = append(out, service.TaskStatus{TaskID: t.TaskID, Running: true, NextRunTime: t.NextRunTime})
		}
	}
	return out, nil
}

// Results implements service.Service.
func (f *FakeService) Results(ctx context.Context, taskID int, query service.ResultQuery) (service.ResultPage, error) {
	f.count("Results")
	if f.ResultsErr != nil {
		return service.ResultPage{}, f.ResultsErr
	}
	f.mu.RLock()
	items := append([]service.TaskResult(nil), f.results[taskID]...)
	f.mu.RUnlock()
	return paginate(items, query), nil
}

// DeleteResult implements service.Service.
func (f *FakeService) DeleteResult(ctx context.Context, resultID string) error {
	f.count("DeleteResult")
	if f.DeleteResultErr != nil {
		return f.DeleteResultErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for taskID, items := range f.results {
		for i, r := range items {
			if r.Listing.ID == resultID {
				f.results[taskID] = append(items[:i], items[i+1:]...)
				return nil
			}
		}
	}
	return NotFound("result")
}

// MarketLoggedIn implements service.Service.
func (f *FakeService) MarketLoggedIn(ctx context.Context) (bool, error) {
	f.count("MarketLoggedIn")
	if f.MarketErr != nil {
		return false, f.MarketErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.market != "", nil
}

// SaveMarketState implements service.Service.
func (f *FakeService) SaveMarketState(ctx context.Context, content string) error {
	f.count("SaveMarketState")
	if f.MarketErr != nil {
		return f.MarketErr
	}
	f.mu.Lock()
	f.market = content
	f.mu.Unlock()
	return nil
}

// ClearMarketState implements service.Service.
func (f *FakeService) ClearMarketState(ctx context.Context) error {
	f.count("ClearMarketState")
	if f.MarketErr != nil {
		return f.MarketErr
	}
	f.mu.Lock()
	f.market = ""
	f.mu.Unlock()
	return nil
}

var _ service.Service = (*FakeService)(nil)
