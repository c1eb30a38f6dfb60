// Package orchestrator runs a page's fragments through the engine.
//
// A run starts the session's engine load and the content resolution of every
// fragment at the same time, waits until all of them have settled, and then
// converts the successfully resolved fragments one by one in discovery order:
//
//	engine load ─┐
//	resolve #0 ──┤
//	resolve #1 ──┼── join ── convert #0, #1, ... #n
//	resolve #n ──┘
//
// An engine load failure fails the run without any conversion. Failed
// resolutions and failed conversions are logged, recorded in the Report and
// skipped; the remaining fragments are still converted.
//
// A Session carries the per-page state: the single engine load, the run id
// and the run state. It runs once:
//
//	Idle -> Loading -> Joined -> Invoking -> Done
//	           └────-> Failed
package orchestrator
