package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/taskcache"
)

// PasswordEnv is read when --password is not given.
const PasswordEnv = "TASKMON_PASSWORD"

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	password string
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Exchange credentials for a session token" }
func (c *LoginCmd) Usage() string     { return "taskmon login [--password <pw>] <username>" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.password, "password", "", "")
	fs.StringVar(&c.password, "p", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: username required")
		return exitcode.UserError
	}
	username := strings.TrimSpace(args[0])

	password := c.password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if password == "" {
		fmt.Fprintf(errOut, "error: password required (use --password or %s)\n", PasswordEnv)
		return exitcode.UserError
	}

	if err := sess.Login(ctx, username, password); err != nil {
		if errors.Is(err, app.ErrNoToken) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.AuthError
		}
		return failure(err, errOut)
	}

	// The token may belong to a different user, and a load that failed
	// before login is never retried on its own.
	if sess.Tasks.State() != taskcache.Empty {
		_ = sess.Tasks.Reload(ctx)
	}

	return ok(sess, out)
}
