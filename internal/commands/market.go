package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
)

func init() {
	Register(&MarketCmd{})
}

// MarketCmd implements the market command, which manages the marketplace
// login state the backend crawls with.
type MarketCmd struct{}

func (c *MarketCmd) Name() string      { return "market" }
func (c *MarketCmd) Aliases() []string { return nil }
func (c *MarketCmd) Synopsis() string  { return "Manage marketplace login state" }
func (c *MarketCmd) Usage() string     { return "taskmon market status|save <state-file>|clear" }
func (c *MarketCmd) NeedsAuth() bool   { return true }

func (c *MarketCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MarketCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(errOut, "usage: %s\n", c.Usage())
		return exitcode.UserError
	}

	switch args[0] {
	case "status":
		loggedIn, err := sess.Service.MarketLoggedIn(ctx)
		if err != nil {
			return failure(err, errOut)
		}
		if loggedIn {
			fmt.Fprintln(out, "logged in")
		} else {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success

	case "save":
		if len(args) < 2 {
			fmt.Fprintln(errOut, "error: state file required")
			return exitcode.UserError
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		if !json.Valid(data) {
			fmt.Fprintf(errOut, "error: %s is not valid JSON\n", args[1])
			return exitcode.UserError
		}
		if err := sess.Service.SaveMarketState(ctx, string(data)); err != nil {
			return failure(err, errOut)
		}
		return ok(sess, out)

	case "clear":
		if err := sess.Service.ClearMarketState(ctx); err != nil {
			return failure(err, errOut)
		}
		return ok(sess, out)

	default:
		fmt.Fprintf(errOut, "error: unknown market action: %s\n", args[0])
		return exitcode.UserError
	}
}
