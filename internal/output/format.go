// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskmon/internal/service"
)

// FormatTask formats a task line.
// Format: "{ID:>4}  {on|off}  {NAME} ({KEYWORD})[ running]\n"
func FormatTask(w io.Writer, task service.Task) {
	state := "off"
	if task.Enabled {
		state = "on "
	}
	line := fmt.Sprintf("%4d  %s  %s", task.TaskID, state, normalizeTitle(task.TaskName))
	if kw := strings.TrimSpace(task.Keyword); kw != "" {
		line += " (" + kw + ")"
	}
	if task.Running {
		line += " [running]"
	}
	fmt.Fprintln(w, line)
}

// FormatTaskDetail prints every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	field := func(name, value string) {
		fmt.Fprintf(w, "%-14s %s\n", name+":", value)
	}
	field("id", fmt.Sprint(task.TaskID))
	field("name", normalizeTitle(task.TaskName))
	field("keyword", task.Keyword)
	if task.Description != "" {
		field("description", normalizeTitle(task.Description))
	}
	field("enabled", yesNo(task.Enabled))
	field("running", yesNo(task.Running))
	field("max pages", fmt.Sprint(task.MaxPages))
	field("personal only", yesNo(task.PersonalOnly))
	if task.MinPrice != "" || task.MaxPrice != "" {
		field("price", priceRange(task.MinPrice, task.MaxPrice))
	}
	if task.Cron != "" {
		field("cron", task.Cron)
	}
	if task.NextRunTime != "" {
		field("next run", task.NextRunTime)
	}
}

// FormatStatus formats one runtime status line.
func FormatStatus(w io.Writer, st service.TaskStatus) {
	state := "idle"
	if st.Running {
		state = "running"
	}
	if st.NextRunTime != "" {
		fmt.Fprintf(w, "%4d  %-7s  next: %s\n", st.TaskID, state, st.NextRunTime)
		return
	}
	fmt.Fprintf(w, "%4d  %s\n", st.TaskID, state)
}

// FormatResultPageHeader summarizes which slice of results is shown.
func FormatResultPageHeader(w io.Writer, page service.ResultPage) {
	if len(page.Items) == 0 {
		fmt.Fprintf(w, "page %d: no results (total %d)\n", page.Page, page.Total)
		return
	}
	first := (page.Page-1)*page.Limit + 1
	last := first + len(page.Items) - 1
	fmt.Fprintf(w, "page %d: %d-%d of %d\n", page.Page, first, last, page.Total)
}

// FormatResult formats one result as a numbered line plus its link.
func FormatResult(w io.Writer, num int, r service.TaskResult) {
	line := fmt.Sprintf("%4d  %s  %s", num, r.Listing.Price, normalizeTitle(r.Listing.Title))
	if r.Analysis != nil {
		line += fmt.Sprintf(" [score %d]", r.Analysis.Score)
	}
	fmt.Fprintln(w, line)
	if r.Listing.ID != "" || r.Listing.URL != "" {
		fmt.Fprintf(w, "      id %s  %s\n", r.Listing.ID, r.Listing.URL)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func priceRange(lo, hi string) string {
	switch {
	case lo == "":
		return "<= " + hi
	case hi == "":
		return ">= " + lo
	default:
		return lo + " - " + hi
	}
}

// normalizeTitle normalizes a title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
