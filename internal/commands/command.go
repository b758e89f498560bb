// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"taskmon/internal/app"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a stored token.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags. It is called before
	// every run, so it must also reset state left by a previous run.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// sess is the session shared by every command of this invocation.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int
}
