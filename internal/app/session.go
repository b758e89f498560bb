// Package app holds the per-session context object shared by every command:
// configuration, token store, backend service and task cache, constructed
// once and passed by reference.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskmon/internal/config"
	"taskmon/internal/logger"
	"taskmon/internal/service"
	"taskmon/internal/session"
	"taskmon/internal/taskcache"
)

// ErrNoToken means the login response did not carry an access token.
var ErrNoToken = errors.New("login response did not include an access token")

// Session is one page session: a CLI invocation or an interactive shell.
type Session struct {
	Config  *config.Config
	Tokens  session.Store
	Service service.Service
	Tasks   *taskcache.Cache
	Logger  *slog.Logger
}

// New creates a Session. The task cache is created empty and loads lazily.
func New(cfg *config.Config, tokens session.Store, svc service.Service, log *slog.Logger) *Session {
	if log == nil {
		log = logger.Discard()
	}
	return &Session{
		Config:  cfg,
		Tokens:  tokens,
		Service: svc,
		Tasks:   taskcache.New(svc, log),
		Logger:  log,
	}
}

// LoggedIn reports whether a token is stored.
func (s *Session) LoggedIn() bool {
	_, ok := s.Tokens.Get()
	return ok
}

// Login exchanges credentials and stores the returned token.
func (s *Session) Login(ctx context.Context, username, password string) error {
	res, err := s.Service.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if res.AccessToken == "" {
		return ErrNoToken
	}
	if err := s.Tokens.Set(session.NewToken(res.AccessToken)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	s.Logger.Debug("logged in", "user", username)
	return nil
}

// Logout clears the stored token and reports whether there was one.
func (s *Session) Logout() (bool, error) {
	had := s.LoggedIn()
	if err := s.Tokens.Clear(); err != nil {
		return had, err
	}
	return had, nil
}

// CreateTask creates a task on the backend and adds it to the cache.
func (s *Session) CreateTask(ctx context.Context, in service.NewTask) (service.Task, error) {
	if err := check(in); err != nil {
		return service.Task{}, err
	}
	created, err := s.Service.CreateTask(ctx, in)
	if err != nil {
		return service.Task{}, err
	}
	// The backend owns ids; never cache the same one twice.
	if !s.Tasks.Update(created) {
		s.Tasks.Add(created)
	}
	return created, nil
}

// UpdateTask applies a partial update and patches the cached entry.
func (s *Session) UpdateTask(ctx context.Context, update service.TaskUpdate) (service.Task, error) {
	if err := check(update); err != nil {
		return service.Task{}, err
	}
	updated, err := s.Service.UpdateTask(ctx, update)
	if err != nil {
		return service.Task{}, err
	}
	if updated.TaskID == 0 {
		updated.TaskID = update.TaskID
	}
	s.Tasks.Update(updated)
	return updated, nil
}

// DeleteTask deletes a task and drops it from the cache.
func (s *Session) DeleteTask(ctx context.Context, taskID int) error {
	if err := s.Service.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.Tasks.Remove(taskID)
	return nil
}

// RunTask starts a task and marks the cached entry running.
func (s *Session) RunTask(ctx context.Context, taskID int) error {
	if err := s.Service.RunTask(ctx, taskID); err != nil {
		return err
	}
	s.setRunning(taskID, true)
	return nil
}

// StopTask stops a task and marks the cached entry stopped.
func (s *Session) StopTask(ctx context.Context, taskID int) error {
	if err := s.Service.StopTask(ctx, taskID); err != nil {
		return err
	}
	s.setRunning(taskID, false)
	return nil
}

func (s *Session) setRunning(taskID int, running bool) {
	if t, ok := s.Tasks.Get(taskID); ok {
		t.Running = running
		s.Tasks.Update(t)
	}
}

// RefreshStatus pulls live scheduler state for one task into the cache.
func (s *Session) RefreshStatus(ctx context.Context, taskID int) (service.TaskStatus, error) {
	st, err := s.Service.TaskStatus(ctx, taskID)
	if err != nil {
		return service.TaskStatus{}, err
	}
	if t, ok := s.Tasks.Get(taskID); ok {
		t.Running = st.Running
		if st.NextRunTime != "" {
			t.NextRunTime = st.NextRunTime
		}
		s.Tasks.Update(t)
	}
	return st, nil
}

// Results validates the query and fetches one page of results. Results are
// never cached.
func (s *Session) Results(ctx context.Context, taskID int, query service.ResultQuery) (service.ResultPage, error) {
	if err := check(query); err != nil {
		return service.ResultPage{}, err
	}
	return s.Service.Results(ctx, taskID, query)
}
