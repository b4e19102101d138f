package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aescanero/taskorch/internal/application/workers"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/fatih/color"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	note    = color.New(color.FgYellow)
)

func mark(ok bool) string {
	if ok {
		return good.Sprint("✓")
	}
	return bad.Sprint("✗")
}

// printReport writes a task's final output followed by its steps and the
// worker metrics.
func printReport(w io.Writer, report *domain.Report) {
	rec := report.Record

	heading.Fprintf(w, "Task %s\n", rec.Task.ID)
	fmt.Fprintf(w, "  %s\n", rec.Task.Description)
	if rec.Plan.Fallback {
		note.Fprintln(w, "  (fallback plan)")
	}
	fmt.Fprintln(w)

	heading.Fprintln(w, "Steps")
	for _, res := range rec.OrderedResults() {
		line := fmt.Sprintf("  %s %-18s %-10s %s", mark(res.Success), res.WorkerName, res.Action, res.Duration.Round(time.Millisecond))
		if res.Simulated {
			line += note.Sprint(" simulated")
		}
		fmt.Fprintln(w, line)
		if res.Error != nil {
			bad.Fprintf(w, "      %s\n", *res.Error)
		}
	}
	fmt.Fprintln(w)

	heading.Fprintln(w, "Result")
	fmt.Fprintln(w, rec.FinalOutput)
	fmt.Fprintln(w)

	heading.Fprintln(w, "Metrics")
	names := make([]string, 0, len(report.Metrics))
	for name := range report.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := report.Metrics[name]
		fmt.Fprintf(w, "  %-18s requests=%d successes=%d failures=%d success_rate=%.1f%% avg=%s\n",
			name, m.Requests, m.Successes, m.Failures, m.SuccessRate(), m.AverageTime().Round(time.Millisecond))
	}
}

// printHealth writes a health report, one line per worker and check.
func printHealth(w io.Writer, report *workers.HealthReport) {
	status := good.Sprint("healthy")
	if !report.SystemHealthy {
		status = bad.Sprint("unhealthy")
	}
	heading.Fprint(w, "System: ")
	fmt.Fprintln(w, status)

	heading.Fprintln(w, "Workers")
	names := make([]string, 0, len(report.Workers))
	for name := range report.Workers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := report.Workers[name]
		fmt.Fprintf(w, "  %s %-18s %s\n", mark(st.Healthy), name, st.Detail)
	}

	if report.System == nil {
		return
	}
	heading.Fprintln(w, "Checks")
	checks := make([]string, 0, len(report.System.Checks))
	for name := range report.System.Checks {
		checks = append(checks, name)
	}
	sort.Strings(checks)
	for _, name := range checks {
		res := report.System.Checks[name]
		fmt.Fprintf(w, "  %s %-18s %s\n", mark(res.Healthy), name, res.Message)
	}
}
