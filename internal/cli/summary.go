package cli

import (
	"fmt"
	"io"

	"github.com/babar-dev/babar/internal/fileutil"
	"github.com/babar-dev/babar/internal/scheduler"
)

type RunSummary struct {
	Mode        string           `json:"mode"`
	RunID       string           `json:"run_id,omitempty"`
	RootPath    string           `json:"root_path"`
	Provider    string           `json:"provider"`
	Total       int              `json:"total"`
	Processed   int              `json:"processed"`
	Summarized  int              `json:"summarized"`
	Fresh       int              `json:"fresh"`
	Failed      int              `json:"failed"`
	Cancelled   int              `json:"cancelled,omitempty"`
	PassThrough int              `json:"pass_through"`
	ScanIssues  int              `json:"scan_issues"`
	Interrupted bool             `json:"interrupted,omitempty"`
	DurationMS  int64            `json:"duration_ms"`
	Failures    []FailureSummary `json:"failures,omitempty"`
}

type FailureSummary struct {
	Directory string `json:"directory"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

type StatusSummary struct {
	Mode        string           `json:"mode"`
	RootPath    string           `json:"root_path"`
	Total       int              `json:"total"`
	Stale       int              `json:"stale"`
	Directories []StaleDirectory `json:"directories,omitempty"`
	ScanIssues  int              `json:"scan_issues"`
	DurationMS  int64            `json:"duration_ms"`
}

type StaleDirectory struct {
	Directory  string `json:"directory"`
	Reason     string `json:"reason"`
	NewestFile string `json:"newest_file,omitempty"`
}

func newRunSummary(mode, rootPath, provider string, report scheduler.Report, scanIssues int) RunSummary {
	summary := RunSummary{
		Mode:        mode,
		RunID:       report.RunID,
		RootPath:    rootPath,
		Provider:    provider,
		Total:       report.Total,
		Processed:   report.Processed,
		Summarized:  report.Count(scheduler.Summarized),
		Fresh:       report.Count(scheduler.Fresh),
		Failed:      report.Count(scheduler.Failed),
		Cancelled:   report.Count(scheduler.Cancelled),
		PassThrough: report.Count(scheduler.PassThrough),
		ScanIssues:  scanIssues,
		DurationMS:  report.Duration.Milliseconds(),
	}
	for _, failure := range report.Failures() {
		summary.Failures = append(summary.Failures, FailureSummary{
			Directory: failure.Node.Rel(),
			Kind:      string(failure.Kind),
			Error:     failure.Err.Error(),
		})
	}
	return summary
}

func PrintRunSummary(w io.Writer, summary RunSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	status := "complete"
	if summary.Interrupted {
		status = "interrupted"
	}
	fmt.Fprintf(w, "%s %s in %dms (%s)\n", summary.Mode, status, summary.DurationMS, summary.Provider)
	fmt.Fprintf(w,
		"directories: total=%d processed=%d summarized=%d fresh=%d failed=%d pass_through=%d\n",
		summary.Total,
		summary.Processed,
		summary.Summarized,
		summary.Fresh,
		summary.Failed,
		summary.PassThrough,
	)
	if summary.Cancelled > 0 {
		fmt.Fprintf(w, "cancelled: %d (rerun to finish them)\n", summary.Cancelled)
	}
	if summary.ScanIssues > 0 {
		fmt.Fprintf(w, "scan issues: %d (run with -v for details)\n", summary.ScanIssues)
	}
	if len(summary.Failures) > 0 {
		dirs := make([]string, 0, len(summary.Failures))
		for _, failure := range summary.Failures {
			dirs = append(dirs, failure.Directory)
		}
		fmt.Fprintf(w, "failed directories (%d): %s\n", len(dirs), fileutil.SummarizePaths(dirs, 8))
		for _, failure := range summary.Failures {
			fmt.Fprintf(w, "  %s <- %s: %s\n", failure.Directory, failure.Kind, failure.Error)
		}
	}
	return nil
}

func PrintStatusSummary(w io.Writer, summary StatusSummary, asJSON bool) error {
	if asJSON {
		return fileutil.PrintJSON(w, summary)
	}

	fmt.Fprintf(w, "status: total=%d stale=%d duration=%dms\n", summary.Total, summary.Stale, summary.DurationMS)
	if summary.Stale == 0 {
		fmt.Fprintln(w, "all summaries are up to date")
		return nil
	}
	for _, dir := range summary.Directories {
		if dir.NewestFile != "" {
			fmt.Fprintf(w, "  %s <- %s (%s)\n", dir.Directory, dir.Reason, dir.NewestFile)
			continue
		}
		fmt.Fprintf(w, "  %s <- %s\n", dir.Directory, dir.Reason)
	}
	return nil
}
