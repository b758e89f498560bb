// Package ui is the boundary between the backend client and whatever is
// presenting results: a global notification channel and navigation to the
// login entry point.
package ui

import (
	"fmt"
	"io"
	"sync"
)

// Notifier receives one human-readable message per failed backend call.
type Notifier interface {
	Notify(msg string)
}

// Navigator moves the user to the login entry point.
type Navigator interface {
	RedirectToLogin()
}

// LoginHint is printed when the session is invalidated.
const LoginHint = "session expired or invalid (run: taskmon login)"

// Console reports notifications on a writer (stderr in the CLI) and treats a
// login redirect as a hint plus a flag the dispatcher turns into an exit code.
type Console struct {
	mu         sync.Mutex
	w          io.Writer
	notices    int
	redirected bool
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Notify implements Notifier.
func (c *Console) Notify(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices++
	fmt.Fprintf(c.w, "error: %s\n", msg)
}

// RedirectToLogin implements Navigator. The hint is printed once until Reset.
func (c *Console) RedirectToLogin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.redirected {
		fmt.Fprintln(c.w, LoginHint)
	}
	c.redirected = true
}

// Notices returns how many notifications were shown.
func (c *Console) Notices() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notices
}

// Redirected reports whether a login redirect was requested.
func (c *Console) Redirected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redirected
}

// Reset forgets the redirect. The dispatcher calls it before each command so
// a redirect is attributed to the command that caused it.
func (c *Console) Reset() {
	c.mu.Lock()
	c.redirected = false
	c.mu.Unlock()
}
