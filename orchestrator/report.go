package orchestrator

import (
	"time"

	"go.uber.org/multierr"

	"github.com/wippyai/nicehtml"
)

// Status is what happened to one fragment during a run.
type Status int

const (
	// StatusPending fragments were never reached.
	StatusPending Status = iota
	// StatusSkipped fragments failed resolution.
	StatusSkipped
	// StatusConverted fragments went through the engine successfully.
	StatusConverted
	// StatusFailed fragments were rejected by the engine.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSkipped:
		return "skipped"
	case StatusConverted:
		return "converted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome records the fate of one fragment.
type Outcome struct {
	Err      error
	Fragment nicehtml.Fragment
	Status   Status
	// Size is the resolved content length in bytes.
	Size     int
	Duration time.Duration
}

// Report summarizes a run.
type Report struct {
	Started   time.Time
	SessionID string
	Outcomes  []Outcome
	State     State
	Elapsed   time.Duration
}

// Count returns the number of outcomes with status st.
func (r *Report) Count(st Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == st {
			n++
		}
	}
	return n
}

// Err combines the errors of all skipped and failed fragments.
func (r *Report) Err() error {
	var err error
	for _, o := range r.Outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}
