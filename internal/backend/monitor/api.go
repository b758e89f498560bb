package monitor

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"taskmon/internal/service"
)

// Backend paths.
const (
	pathLogin        = "/api/login"
	pathTasks        = "/api/tasks"
	pathCreateTask   = "/api/tasks/create"
	pathUpdateTask   = "/api/tasks/update"
	pathDeleteTask   = "/api/tasks/delete/"
	pathRunTask      = "/api/tasks/run/"
	pathStopTask     = "/api/tasks/stop/"
	pathTaskStatus   = "/api/tasks/status"
	pathResults      = "/api/results/"
	pathMarketStatus = "/api/status/goofish"
	pathMarketSave   = "/api/goofish/state/save"
	pathMarketDelete = "/api/goofish/state/delete"
)

var _ service.Service = (*Client)(nil)

// Login exchanges credentials for a bearer token. The token is not stored
// here; see app.Session.Login.
func (c *Client) Login(ctx context.Context, username, password string) (service.LoginResult, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var res service.LoginResult
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathLogin, Form: form}, &res)
	return res, err
}

// ListTasks returns all tasks in server order.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.Do(ctx, Request{Path: pathTasks}, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	var created service.Task
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathCreateTask, Body: task}, &created)
	return created, err
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, update service.TaskUpdate) (service.Task, error) {
	var updated service.Task
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathUpdateTask, Body: update}, &updated)
	return updated, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID int) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: pathDeleteTask + strconv.Itoa(taskID)}, nil)
}

// RunTask starts a task.
func (c *Client) RunTask(ctx context.Context, taskID int) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: pathRunTask + strconv.Itoa(taskID)}, nil)
}

// StopTask stops a task. POST, like RunTask.
func (c *Client) StopTask(ctx context.Context, taskID int) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: pathStopTask + strconv.Itoa(taskID)}, nil)
}

// TaskStatus returns the runtime status of one task. Concurrent calls for
// the same task share one request.
func (c *Client) TaskStatus(ctx context.Context, taskID int) (service.TaskStatus, error) {
	path := pathTaskStatus + "/" + strconv.Itoa(taskID)
	v, err := c.shared(ctx, path, func(ctx context.Context) (any, error) {
		var st service.TaskStatus
		if err := c.Do(ctx, Request{Path: path}, &st); err != nil {
			return nil, err
		}
		if st.TaskID == 0 {
			st.TaskID = taskID
		}
		return st, nil
	})
	if err != nil {
		return service.TaskStatus{}, err
	}
	return v.(service.TaskStatus), nil
}

// RunningTasks returns the status of every running task. Concurrent calls
// share one request.
func (c *Client) RunningTasks(ctx context.Context) ([]service.TaskStatus, error) {
	v, err := c.shared(ctx, pathTaskStatus, func(ctx context.Context) (any, error) {
		var sts []service.TaskStatus
		if err := c.Do(ctx, Request{Path: pathTaskStatus}, &sts); err != nil {
			return nil, err
		}
		return sts, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]service.TaskStatus)
	out := make([]service.TaskStatus, len(shared))
	copy(out, shared)
	return out, nil
}

// Results returns one page of results for a task.
func (c *Client) Results(ctx context.Context, taskID int, query service.ResultQuery) (service.ResultPage, error) {
	var page service.ResultPage
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: pathResults + strconv.Itoa(taskID), Body: query}, &page)
	return page, err
}

// DeleteResult removes one result record.
func (c *Client) DeleteResult(ctx context.Context, resultID string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: pathResults + url.PathEscape(resultID)}, nil)
}

// MarketLoggedIn reports whether the backend holds a marketplace session.
func (c *Client) MarketLoggedIn(ctx context.Context) (bool, error) {
	var ok bool
	err := c.Do(ctx, Request{Path: pathMarketStatus}, &ok)
	return ok, err
}

// SaveMarketState uploads a marketplace session state.
func (c *Client) SaveMarketState(ctx context.Context, content string) error {
	body := struct {
		Content string `json:"content"`
	}{Content: content}
	return c.Do(ctx, Request{Method: http.MethodPost, Path: pathMarketSave, Body: body}, nil)
}

// ClearMarketState deletes the stored marketplace session state.
func (c *Client) ClearMarketState(ctx context.Context) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: pathMarketDelete}, nil)
}

// shared runs fn once for all concurrent callers with the same key. The call
// itself is detached from any single caller's cancellation; each caller
// still stops waiting when its own ctx ends.
func (c *Client) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := c.status.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, service.NewRequestError(service.ErrNetwork, 0, "request cancelled", ctx.Err())
	}
}
