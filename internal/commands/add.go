package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	task     service.NewTask
	disabled bool
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "taskmon add --keyword <kw> [--pages <n>] [--min <p>] [--max <p>] [--cron <expr>] [--desc <text>] [--personal] [--disabled] <name...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	c.task = service.NewTask{}
	fs.StringVar(&c.task.Keyword, "keyword", "", "")
	fs.StringVar(&c.task.Keyword, "k", "", "")
	fs.IntVar(&c.task.MaxPages, "pages", 3, "")
	fs.StringVar(&c.task.MinPrice, "min", "", "")
	fs.StringVar(&c.task.MaxPrice, "max", "", "")
	fs.StringVar(&c.task.Cron, "cron", "", "")
	fs.StringVar(&c.task.Description, "desc", "", "")
	fs.BoolVar(&c.task.PersonalOnly, "personal", false, "")
	fs.BoolVar(&c.disabled, "disabled", false, "")
}

func (c *AddCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintln(errOut, "error: task name required")
		return exitcode.UserError
	}

	in := c.task
	in.TaskName = name
	in.Enabled = !c.disabled

	created, err := sess.CreateTask(ctx, in)
	if err != nil {
		return failure(err, errOut)
	}

	if !sess.Config.Quiet {
		fmt.Fprintf(out, "created task %d\n", created.TaskID)
	}
	return exitcode.Success
}
