package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/babar-dev/babar/internal/scheduler"
)

// progressReporter renders scheduler events on a single stderr line. Events
// arrive from concurrent workers, so every write holds mu.
type progressReporter struct {
	mu      sync.Mutex
	enabled bool
	label   string
	start   time.Time
	spinner int
	lastLen int
}

func newProgressReporter(label string, disabled bool) *progressReporter {
	stat, err := os.Stderr.Stat()
	enabled := err == nil && (stat.Mode()&os.ModeCharDevice) != 0 && !disabled
	return &progressReporter{
		enabled: enabled,
		label:   label,
		start:   time.Now(),
	}
}

func (r *progressReporter) Handle(event scheduler.Event) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	dir := strings.TrimSpace(event.Directory)
	if len(dir) > 88 {
		dir = "..." + dir[len(dir)-85:]
	}

	verb := "summarizing"
	if event.Stage == scheduler.StageEnd {
		verb = "finished"
	}
	status := fmt.Sprintf("%s %s %d/%d %s %s", frame, r.label, event.Progress.Current, event.Progress.Total, verb, dir)
	r.printStatus(status)
}

func (r *progressReporter) Done(report scheduler.Report) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.start).Round(time.Millisecond)
	status := fmt.Sprintf("%s complete (%d directories in %s)", r.label, report.Processed, elapsed)
	r.printStatus(status)
	fmt.Fprintln(os.Stderr)
}

func (r *progressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(os.Stderr, "\r%s", status)
}
