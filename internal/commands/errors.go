package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/service"
)

// ErrTaskIDRequired indicates no task id was provided.
var ErrTaskIDRequired = errors.New("task id required")

// ParseTaskID parses the first positional argument as a task id.
func ParseTaskID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskIDRequired
	}
	if !isAllDigits(args[0]) {
		return 0, fmt.Errorf("invalid task id: %s", args[0])
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id: %s", args[0])
	}
	return id, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// taskIDArg parses the task id or reports the usage error.
func taskIDArg(args []string, errOut io.Writer) (int, bool) {
	id, err := ParseTaskID(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return 0, false
	}
	return id, true
}

// failure maps an operation error to an exit code. Backend failures were
// already shown by the notifier, so only other errors are printed here.
func failure(err error, errOut io.Writer) int {
	switch {
	case errors.Is(err, app.ErrInvalid):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, service.ErrUnauthorized):
		return exitcode.AuthError
	case errors.Is(err, service.ErrRequestFailed), errors.Is(err, service.ErrNetwork):
		return exitcode.BackendError
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
}

// ok prints the acknowledgement unless quiet.
func ok(sess *app.Session, out io.Writer) int {
	if !sess.Config.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
