// Package main is the entry point for the taskmon CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"taskmon/internal/cli"
	"taskmon/internal/commands"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, cli.MonitorFactory)
	dispatcher.SetInput(os.Stdin)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
