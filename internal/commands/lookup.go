package commands

import (
	"context"
	"fmt"
	"io"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/service"
	"taskmon/internal/taskcache"
)

// StaleListHint is printed when the task list failed to load earlier in the
// session. That failure was already reported and is not retried on its own.
const StaleListHint = "error: task list unavailable (run: list --reload)"

// waitTasks waits for the session's task list.
func waitTasks(ctx context.Context, sess *app.Session, errOut io.Writer) int {
	stale := sess.Tasks.State() == taskcache.Ready && sess.Tasks.Err() != nil
	if _, err := sess.Tasks.Wait(ctx); err != nil {
		if stale && sess.Tasks.Initialized() {
			// A failed reload keeps the entries of the last good load.
			return exitcode.Success
		}
		if stale {
			fmt.Fprintln(errOut, StaleListHint)
		}
		return failure(err, errOut)
	}
	return exitcode.Success
}

// lookupTask finds a task in the session cache, loading it if needed.
func lookupTask(ctx context.Context, sess *app.Session, id int, errOut io.Writer) (service.Task, int) {
	if code := waitTasks(ctx, sess, errOut); code != exitcode.Success {
		return service.Task{}, code
	}
	task, found := sess.Tasks.Get(id)
	if !found {
		fmt.Fprintf(errOut, "error: task not found: %d\n", id)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}
