package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/output"
	"taskmon/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only flags that are given are sent.
type EditCmd struct {
	update service.TaskUpdate
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return []string{"update"} }
func (c *EditCmd) Synopsis() string  { return "Change fields of a task" }
func (c *EditCmd) Usage() string {
	return "taskmon edit [--name <s>] [--keyword <kw>] [--pages <n>] [--min <p>] [--max <p>] [--cron <expr>] [--desc <text>] [--enabled=<bool>] [--personal=<bool>] <task-id>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.update = service.TaskUpdate{}
	u := &c.update
	fs.Func("name", "", stringFlag(&u.TaskName))
	fs.Func("keyword", "", stringFlag(&u.Keyword))
	fs.Func("desc", "", stringFlag(&u.Description))
	fs.Func("min", "", stringFlag(&u.MinPrice))
	fs.Func("max", "", stringFlag(&u.MaxPrice))
	fs.Func("cron", "", stringFlag(&u.Cron))
	fs.Func("pages", "", func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		u.MaxPages = &n
		return nil
	})
	fs.BoolFunc("enabled", "", boolFlag(&u.Enabled))
	fs.BoolFunc("personal", "", boolFlag(&u.PersonalOnly))
}

func stringFlag(dst **string) func(string) error {
	return func(s string) error {
		*dst = &s
		return nil
	}
}

func boolFlag(dst **bool) func(string) error {
	return func(s string) error {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*dst = &b
		return nil
	}
}

func (c *EditCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	id, valid := taskIDArg(args, errOut)
	if !valid {
		return exitcode.UserError
	}

	update := c.update
	update.TaskID = id
	if update == (service.TaskUpdate{TaskID: id}) {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	updated, err := sess.UpdateTask(ctx, update)
	if err != nil {
		return failure(err, errOut)
	}

	if !sess.Config.Quiet {
		output.FormatTask(out, updated)
	}
	return exitcode.Success
}
