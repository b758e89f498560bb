// Package cli parses the command line, builds the session and dispatches to
// commands, either once or repeatedly from an interactive shell.
package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmon/internal/app"
	"taskmon/internal/backend/monitor"
	"taskmon/internal/commands"
	"taskmon/internal/config"
	"taskmon/internal/exitcode"
	"taskmon/internal/logger"
	"taskmon/internal/service"
	"taskmon/internal/session"
	"taskmon/internal/ui"
)

// ShellPrompt is printed before each shell line unless --quiet is set.
const ShellPrompt = "taskmon> "

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory func(ctx context.Context, cfg *config.Config, tokens session.Store, hooks monitor.Hooks) (service.Service, error)

// MonitorFactory is the default ServiceFactory: the HTTP client for the
// monitoring backend.
func MonitorFactory(ctx context.Context, cfg *config.Config, tokens session.Store, hooks monitor.Hooks) (service.Service, error) {
	client, err := monitor.New(cfg, tokens, hooks)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  ServiceFactory
	in       io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and service
// factory. A nil factory means MonitorFactory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory) *Dispatcher {
	if factory == nil {
		factory = MonitorFactory
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
		in:       strings.NewReader(""),
	}
}

// SetInput sets where the shell reads commands from.
func (d *Dispatcher) SetInput(r io.Reader) {
	d.in = r
}

// commonFlags are accepted by every command.
type commonFlags struct {
	configDir string
	server    string
	quiet     bool
	debug     bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configDir, "config", "", "")
	fs.StringVar(&c.server, "server", "", "")
	fs.BoolVar(&c.quiet, "quiet", false, "")
	fs.BoolVar(&c.debug, "debug", false, "")
}

// env is everything one session needs.
type env struct {
	sess    *app.Session
	console *ui.Console
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> dispatch to "list" command with no args
	if len(args) == 0 {
		args = []string{"list"}
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	if cmdName == "shell" {
		return d.shell(ctx, args[1:], out, errOut)
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	fs := newFlagSet(cmd.Name())
	var common commonFlags
	common.register(fs)
	cmd.RegisterFlags(fs)

	positional, code := parseFlags(fs, args[1:], errOut)
	if code != exitcode.Success {
		return code
	}

	e, code := d.open(ctx, common, errOut)
	if code != exitcode.Success {
		return code
	}
	return d.execute(ctx, e, cmd, positional, out, errOut)
}

// open loads configuration and builds the session.
func (d *Dispatcher) open(ctx context.Context, common commonFlags, errOut io.Writer) (*env, int) {
	cfg, err := config.Load(common.configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return nil, exitcode.UserError
	}
	if common.server != "" {
		cfg.ServerURL = common.server
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(errOut, "error: %s\n", err)
			return nil, exitcode.UserError
		}
	}
	cfg.Quiet = common.quiet
	cfg.Debug = common.debug

	log := logger.New(errOut, cfg.LogLevel, cfg.Debug)
	tokens := session.NewFileStore(cfg.TokenPath())
	console := ui.NewConsole(errOut)

	svc, err := d.factory(ctx, cfg, tokens, monitor.Hooks{
		Notifier:  console,
		Navigator: console,
		Logger:    log,
	})
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return nil, exitcode.BackendError
	}

	log.Debug("session opened", "config", cfg.Dir, "server", cfg.ServerURL)
	return &env{sess: app.New(cfg, tokens, svc, log), console: console}, exitcode.Success
}

// execute runs one command in an open session.
func (d *Dispatcher) execute(ctx context.Context, e *env, cmd commands.Command, args []string, out, errOut io.Writer) int {
	if cmd.NeedsAuth() && !e.sess.LoggedIn() {
		fmt.Fprintln(errOut, "error: not logged in (run: taskmon login)")
		return exitcode.AuthError
	}

	// Only a redirect caused by this command turns its failure into AuthError.
	e.console.Reset()
	code := cmd.Run(ctx, e.sess, args, out, errOut)
	if code != exitcode.Success && e.console.Redirected() {
		return exitcode.AuthError
	}
	return code
}

// shell reads commands line by line and runs them against one session, so
// the task list is fetched at most once.
func (d *Dispatcher) shell(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := newFlagSet("shell")
	var common commonFlags
	common.register(fs)

	positional, code := parseFlags(fs, args, errOut)
	if code != exitcode.Success {
		return code
	}
	if len(positional) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", positional[0])
		return exitcode.UserError
	}

	e, code := d.open(ctx, common, errOut)
	if code != exitcode.Success {
		return code
	}

	last := exitcode.Success
	scanner := bufio.NewScanner(d.in)
	for {
		if ctx.Err() != nil {
			return last
		}
		if !e.sess.Config.Quiet {
			fmt.Fprint(out, ShellPrompt)
		}
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return last
		case "shell":
			fmt.Fprintln(errOut, "error: already in a shell")
			last = exitcode.UserError
			continue
		}

		cmd, ok := d.registry.Find(fields[0])
		if !ok {
			fmt.Fprintf(errOut, "error: unknown command: %s\n", fields[0])
			last = exitcode.UserError
			continue
		}

		cmdFS := newFlagSet(cmd.Name())
		cmd.RegisterFlags(cmdFS)
		positional, code := parseFlags(cmdFS, fields[1:], errOut)
		if code != exitcode.Success {
			last = code
			continue
		}

		last = d.execute(ctx, e, cmd, positional, out, errOut)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return last
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves
	return fs
}

// parseFlags parses args and reports flag errors the same way for every
// command. It returns the positional arguments.
func parseFlags(fs *flag.FlagSet, args []string, errOut io.Writer) ([]string, int) {
	if err := fs.Parse(args); err != nil {
		errStr := err.Error()

		// Check for missing flag value
		if strings.HasPrefix(errStr, "flag needs an argument:") {
			flagPart := strings.TrimSpace(strings.TrimPrefix(errStr, "flag needs an argument:"))
			fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", flagPart)
			return nil, exitcode.UserError
		}

		// Check for unknown flag
		if flagName, ok := strings.CutPrefix(errStr, "flag provided but not defined: "); ok {
			fmt.Fprintf(errOut, "error: unknown flag: %s\n", flagName)
			return nil, exitcode.UserError
		}

		fmt.Fprintf(errOut, "error: %s\n", errStr)
		return nil, exitcode.UserError
	}

	return fs.Args(), exitcode.Success
}
