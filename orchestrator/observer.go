package orchestrator

import "github.com/wippyai/nicehtml"

// Observer receives run events. Resolved is called from resolution
// goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	StateChanged(from, to State)
	Resolved(f nicehtml.Fragment, res nicehtml.Result)
	ConversionStarted(f nicehtml.Fragment)
	ConversionFinished(f nicehtml.Fragment, outcome Outcome)
}

// NopObserver ignores every event. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) StateChanged(State, State) {}
func (NopObserver) Resolved(nicehtml.Fragment, nicehtml.Result) {}
func (NopObserver) ConversionStarted(nicehtml.Fragment) {}
func (NopObserver) ConversionFinished(nicehtml.Fragment, Outcome) {}
