package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
)

func init() {
	Register(&HelpCmd{registry: DefaultRegistry})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	registry *Registry
}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskmon help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	reg := c.registry
	if reg == nil {
		reg = DefaultRegistry
	}

	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %-48s %s\n", "taskmon", "List tasks")
	for _, cmd := range reg.All() {
		fmt.Fprintf(out, "  %-48s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	fmt.Fprintf(out, "  %-48s %s\n", "taskmon shell [common flags]", "Run commands interactively in one session")
	fmt.Fprint(out, commonFlagsText)
	return exitcode.Success
}

const commonFlagsText = `
Common flags:
  --config <dir>   Override config directory
  --server <url>   Override the backend URL
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
