package commands

import (
	"context"
	"flag"
	"io"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
)

func init() {
	Register(&RunCmd{})
	Register(&StopCmd{})
}

// RunCmd implements the run command.
type RunCmd struct{}

func (c *RunCmd) Name() string      { return "run" }
func (c *RunCmd) Aliases() []string { return []string{"start"} }
func (c *RunCmd) Synopsis() string  { return "Start a task now" }
func (c *RunCmd) Usage() string     { return "taskmon run <task-id>" }
func (c *RunCmd) NeedsAuth() bool   { return true }

func (c *RunCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RunCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	return runOrStop(ctx, sess, args, out, errOut, sess.RunTask)
}

// StopCmd implements the stop command.
type StopCmd struct{}

func (c *StopCmd) Name() string      { return "stop" }
func (c *StopCmd) Aliases() []string { return nil }
func (c *StopCmd) Synopsis() string  { return "Stop a running task" }
func (c *StopCmd) Usage() string     { return "taskmon stop <task-id>" }
func (c *StopCmd) NeedsAuth() bool   { return true }

func (c *StopCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StopCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	return runOrStop(ctx, sess, args, out, errOut, sess.StopTask)
}

// runOrStop is the shared implementation for run and stop.
func runOrStop(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer, op func(context.Context, int) error) int {
	id, valid := taskIDArg(args, errOut)
	if !valid {
		return exitcode.UserError
	}
	if err := op(ctx, id); err != nil {
		return failure(err, errOut)
	}
	return ok(sess, out)
}
