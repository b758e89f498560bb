package testutil

import "time"

// Timing used with assert.Eventually in concurrency tests.
const (
	WaitTimeout  = 2 * time.Second
	PollInterval = 5 * time.Millisecond
)
