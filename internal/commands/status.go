package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/output"
	"taskmon/internal/service"
)

// maxStatusFetches bounds concurrent status requests.
const maxStatusFetches = 4

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return []string{"ps"} }
func (c *StatusCmd) Synopsis() string  { return "Show running state of tasks" }
func (c *StatusCmd) Usage() string     { return "taskmon status [task-id...]" }
func (c *StatusCmd) NeedsAuth() bool   { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		running, err := sess.Service.RunningTasks(ctx)
		if err != nil {
			return failure(err, errOut)
		}
		if len(running) == 0 {
			if !sess.Config.Quiet {
				fmt.Fprintln(out, "no running tasks")
			}
			return exitcode.Success
		}
		for _, st := range running {
			output.FormatStatus(out, st)
		}
		return exitcode.Success
	}

	ids := make([]int, len(args))
	for i, arg := range args {
		id, valid := taskIDArg([]string{arg}, errOut)
		if !valid {
			return exitcode.UserError
		}
		ids[i] = id
	}

	statuses := make([]service.TaskStatus, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxStatusFetches)
	for i, id := range ids {
		g.Go(func() error {
			st, err := sess.RefreshStatus(gctx, id)
			if err != nil {
				return err
			}
			statuses[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return failure(err, errOut)
	}

	for _, st := range statuses {
		output.FormatStatus(out, st)
	}
	return exitcode.Success
}
