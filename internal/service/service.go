package service

import "context"

// Service defines the interface for task backend operations.
// All backend calls go through this interface; commands and the task cache
// never issue HTTP requests themselves.
//
// Failures are reported as errors matching ErrUnauthorized, ErrRequestFailed
// or ErrNetwork.
type Service interface {
	// Login exchanges credentials for a bearer token.
	Login(ctx context.Context, username, password string) (LoginResult, error)

	// ListTasks returns all tasks in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns it with its assigned id.
	CreateTask(ctx context.Context, task NewTask) (Task, error)

	// UpdateTask applies a partial update and returns the updated task.
	UpdateTask(ctx context.Context, update TaskUpdate) (Task, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, taskID int) error

	// RunTask starts a task.
	RunTask(ctx context.Context, taskID int) error

	// StopTask stops a running task.
	StopTask(ctx context.Context, taskID int) error

	// TaskStatus returns the runtime status of one task.
	TaskStatus(ctx context.Context, taskID int) (TaskStatus, error)

	// RunningTasks returns the status of every running task.
	RunningTasks(ctx context.Context) ([]TaskStatus, error)

	// Results returns one page of results for a task.
	Results(ctx context.Context, taskID int, query ResultQuery) (ResultPage, error)

	// DeleteResult removes one result record.
	DeleteResult(ctx context.Context, resultID string) error

	// MarketLoggedIn reports whether the backend holds a marketplace session.
	MarketLoggedIn(ctx context.Context) (bool, error)

	// SaveMarketState uploads a marketplace session state (JSON text).
	SaveMarketState(ctx context.Context, content string) error

	// ClearMarketState deletes the stored marketplace session state.
	ClearMarketState(ctx context.Context) error
}
