package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"taskmon/internal/app"
	"taskmon/internal/exitcode"
	"taskmon/internal/output"
	"taskmon/internal/service"
)

func init() {
	Register(&ResultsCmd{})
	Register(&RmResultCmd{})
}

// ResultsCmd implements the results command.
type ResultsCmd struct {
	query service.ResultQuery
}

func (c *ResultsCmd) Name() string      { return "results" }
func (c *ResultsCmd) Aliases() []string { return []string{"res"} }
func (c *ResultsCmd) Synopsis() string  { return "List results found by a task" }
func (c *ResultsCmd) Usage() string {
	return "taskmon results [--page <n>] [--limit <n>] [--sort crawl_time|publish_time|price] [--order asce|desc] [--recommended] <task-id>"
}
func (c *ResultsCmd) NeedsAuth() bool { return true }

func (c *ResultsCmd) RegisterFlags(fs *flag.FlagSet) {
	c.query = service.ResultQuery{}
	fs.IntVar(&c.query.Page, "page", 1, "")
	fs.IntVar(&c.query.Limit, "limit", 20, "")
	fs.StringVar(&c.query.SortBy, "sort", service.SortByCrawlTime, "")
	fs.StringVar(&c.query.Order, "order", service.OrderDesc, "")
	fs.BoolVar(&c.query.RecommendedOnly, "recommended", false, "")
}

func (c *ResultsCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	id, valid := taskIDArg(args, errOut)
	if !valid {
		return exitcode.UserError
	}

	page, err := sess.Results(ctx, id, c.query)
	if err != nil {
		return failure(err, errOut)
	}

	if len(page.Items) == 0 {
		if !sess.Config.Quiet {
			fmt.Fprintln(out, "no results")
		}
		return exitcode.Success
	}
	if !sess.Config.Quiet {
		output.FormatResultPageHeader(out, page)
	}
	first := (max(page.Page, 1) - 1) * page.Limit
	for i, r := range page.Items {
		output.FormatResult(out, first+i+1, r)
	}
	return exitcode.Success
}

// RmResultCmd implements the rmresult command.
type RmResultCmd struct{}

func (c *RmResultCmd) Name() string      { return "rmresult" }
func (c *RmResultCmd) Aliases() []string { return nil }
func (c *RmResultCmd) Synopsis() string  { return "Delete one result" }
func (c *RmResultCmd) Usage() string     { return "taskmon rmresult <result-id>" }
func (c *RmResultCmd) NeedsAuth() bool   { return true }

func (c *RmResultCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmResultCmd) Run(ctx context.Context, sess *app.Session, args []string, out, errOut io.Writer) int {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprintln(errOut, "error: result id required")
		return exitcode.UserError
	}
	if err := sess.Service.DeleteResult(ctx, args[0]); err != nil {
		return failure(err, errOut)
	}
	return ok(sess, out)
}
