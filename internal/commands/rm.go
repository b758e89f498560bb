package commands

import (
	"context"
	"flag"
	"io"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "taskmon rm <task-id>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	id, valid := taskIDArg(args, errOut)
	if !valid {
		return exitcode.UserError
	}
	if err := sess.DeleteTask(ctx, id); err != nil {
		return failure(err, errOut)
	}
	return ok(sess, out)
}
