package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/output"
)

func init() {
	Register(&ListCmd{})
	Register(&ShowCmd{})
}

// ListCmd implements the list command (also the default command).
type ListCmd struct {
	reload bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "taskmon list [--reload]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.reload, "reload", false, "")
}

func (c *ListCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	if c.reload {
		if err := sess.Tasks.Reload(ctx); err != nil {
			return failure(err, errOut)
		}
	} else if code := waitTasks(ctx, sess, errOut); code != exitcode.Success {
		return code
	}

	// Entries, not the Wait snapshot: writes made earlier in this session
	// must show up.
	tasks := sess.Tasks.Entries(ctx)
	if len(tasks) == 0 {
		if !sess.Config.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}
	for _, t := range tasks {
		output.FormatTask(out, t)
	}
	return exitcode.Success
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show one task" }
func (c *ShowCmd) Usage() string     { return "taskmon show <task-id>" }
func (c *ShowCmd) NeedsAuth() bool   { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	id, valid := taskIDArg(args, errOut)
	if !valid {
		return exitcode.UserError
	}
	task, code := lookupTask(ctx, sess, id, errOut)
	if code != exitcode.Success {
		return code
	}
	output.FormatTaskDetail(out, task)
	return exitcode.Success
}
