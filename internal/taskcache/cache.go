// Package taskcache keeps the session's in-memory view of the task list.
//
// The list is loaded lazily from the backend the first time anyone looks at
// it, and only once: concurrent first readers share a single in-flight load
// and a single ready signal. After that the cache is patched by Add, Update
// and Remove as the session writes to the backend; it is never re-fetched
// unless Reload is called. A failed first load still makes the cache ready
// (empty, not initialized) and is not retried automatically; anything added
// before it is dropped.
//
// The cache can drift from the server if tasks change out of band. There is
// no reconciliation.
package taskcache

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"taskmon/internal/logger"
	"taskmon/internal/service"
)

// State is the load state of a Cache.
type State int

const (
	// Empty means no load has been attempted.
	Empty State = iota
	// Loading means one load is in flight.
	Loading
	// Ready means the last load finished, successfully or not.
	Ready
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Loader fetches the full task list.
type Loader interface {
	ListTasks(ctx context.Context) ([]service.Task, error)
}

// flight is one load. Its fields are written once, before done is closed.
type flight struct {
	done  chan struct{}
	tasks []service.Task
	err   error
}

// Cache is safe for concurrent use.
type Cache struct {
	loader Loader
	log    *slog.Logger

	mu          sync.Mutex
	state       State
	entries     []service.Task
	initialized bool
	first       *flight
	current     *flight
	err         error
}

// New creates an empty cache that loads through loader.
func New(loader Loader, log *slog.Logger) *Cache {
	if log == nil {
		log = logger.Discard()
	}
	f := &flight{done: make(chan struct{})}
	return &Cache{
		loader:  loader,
		log:     log,
		first:   f,
		current: f,
	}
}

// Entries returns a copy of the cached tasks in server order. The first call
// starts the load and returns immediately; use Wait to block for it.
func (c *Cache) Entries(ctx context.Context) []service.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLocked(ctx)
	return slices.Clone(c.entries)
}

// OnReady returns a channel that is closed once the first load completes.
// It starts the load if nobody has yet. Every caller gets the same channel,
// and a later Reload never reopens it.
func (c *Cache) OnReady(ctx context.Context) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLocked(ctx)
	return c.first.done
}

// Wait blocks until the load completes or ctx is done, then returns the
// tasks as they were when the load completed and the load error, if any.
// All waiters of the same load see the same snapshot.
func (c *Cache) Wait(ctx context.Context) ([]service.Task, error) {
	c.mu.Lock()
	f := c.ensureLocked(ctx)
	c.mu.Unlock()

	select {
	case <-f.done:
		return slices.Clone(f.tasks), f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reload fetches the list again and waits for it. If a load is already in
// flight, Reload joins it instead of starting another. A failed reload keeps
// the previous entries.
func (c *Cache) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Loading {
		if c.state == Ready {
			c.current = &flight{done: make(chan struct{})}
		}
		c.startLocked(ctx)
	}
	f := c.current
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ensureLocked moves Empty to Loading. c.mu must be held.
func (c *Cache) ensureLocked(ctx context.Context) *flight {
	if c.state == Empty {
		c.startLocked(ctx)
	}
	return c.current
}

// startLocked launches a load for c.current. c.mu must be held.
// The load outlives the caller that triggered it.
func (c *Cache) startLocked(ctx context.Context) {
	c.state = Loading
	go c.load(context.WithoutCancel(ctx), c.current)
}

func (c *Cache) load(ctx context.Context, f *flight) {
	tasks, err := c.loader.ListTasks(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.Debug("task list load failed", "error", err)
		if !c.initialized {
			// Writes made before any successful load are not kept.
			c.entries = nil
		}
	} else {
		c.entries = slices.Clone(tasks)
		c.initialized = true
		c.log.Debug("task list loaded", "count", len(tasks))
	}
	c.err = err
	c.state = Ready

	f.tasks = slices.Clone(c.entries)
	f.err = err
	close(f.done)
}

// Get returns the task with the given id.
func (c *Cache) Get(id int) (service.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.entries[i], true
	}
	return service.Task{}, false
}

// Add appends task. Callers must not add an id that is already cached.
func (c *Cache) Add(task service.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, task)
}

// Remove deletes the entry with the given id. Absent ids are ignored.
func (c *Cache) Remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		c.entries = slices.Delete(c.entries, i, i+1)
	}
}

// Update replaces the entry with task's id in place and reports whether one
// was found. Absent ids are ignored; it does not insert.
func (c *Cache) Update(task service.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(task.TaskID); i >= 0 {
		c.entries[i] = task
		return true
	}
	return false
}

func (c *Cache) indexLocked(id int) int {
	return slices.IndexFunc(c.entries, func(t service.Task) bool { return t.TaskID == id })
}

// Len returns the number of cached tasks.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// State returns the current load state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Initialized reports whether a load has ever succeeded.
func (c *Cache) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Err returns the error of the last completed load.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
