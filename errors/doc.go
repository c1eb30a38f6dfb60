// Package errors provides structured error types for nicehtml.
//
// Errors are categorized by Phase (where in a run the error occurred) and
// Kind (error category). The phase decides how the orchestrator reacts:
// load errors are fatal to a run, resolve and convert errors only affect a
// single fragment.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindStatus).
//		Path(errors.FragmentPath(2)...).
//		Source("https://example.com/header.nh").
//		Detail("unexpected response status %s", "404 Not Found").
//		Build()
//
// Match a whole phase with the exported targets:
//
//	if stderrors.Is(err, errors.EngineLoadFailure) { ... }
//
// All errors implement the standard error interface and work with the
// standard library errors.Is and errors.As.
package errors
