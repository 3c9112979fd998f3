package scheduler

import (
	"time"

	babarerrors "github.com/babar-dev/babar/internal/errors"
	"github.com/babar-dev/babar/internal/tree"
)

// Status is the result of visiting one node.
type Status string

const (
	Summarized  Status = "summarized"
	Fresh       Status = "fresh"
	Failed      Status = "failed"
	PassThrough Status = "pass-through"
	// Cancelled marks a node whose summarization was cut short by the run's context.
	Cancelled Status = "cancelled"
)

// Outcome is what happened to one node during a run.
type Outcome struct {
	Node     *tree.Node
	Status   Status
	Kind     babarerrors.Kind
	Err      error
	Started  time.Time
	Finished time.Time
}

// Report aggregates a run.
type Report struct {
	RunID     string
	Total     int
	Processed int
	Outcomes  []Outcome
	Duration  time.Duration
}

// Count returns the number of outcomes with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes in processing order.
func (r Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == Failed {
			out = append(out, o)
		}
	}
	return out
}

// Stage marks the beginning or end of a node's summarization.
type Stage string

const (
	StageStart Stage = "start"
	StageEnd   Stage = "end"
)

// Progress counts nodes summarized so far against the planned total.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Event is emitted around each summarized node. Handlers may be invoked
// concurrently from different nodes of the same depth.
type Event struct {
	Phase     string   `json:"phase"`
	Directory string   `json:"directory"`
	Progress  Progress `json:"progress"`
	Stage     Stage    `json:"stage"`
}
