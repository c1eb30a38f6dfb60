package orchestrator

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
)

// Resolver resolves a fragment's content. Failures are reported in the
// result, never by panicking.
type Resolver interface {
	Resolve(ctx context.Context, f nicehtml.Fragment) nicehtml.Result
}

// Orchestrator runs sessions.
type Orchestrator struct {
	resolver Resolver
	observer Observer
	log      *zap.Logger
	clock    func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver registers an observer for run events.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// New creates an orchestrator resolving content with resolver.
func New(resolver Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		observer: NopObserver{},
		log:      zap.NewNop(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes fragments within session. It returns an error only when
// the run as a whole fails: the engine did not load, the caller canceled
// ctx, or the session was already used. Per-fragment failures are in the
// report.
func (o *Orchestrator) Run(ctx context.Context, s *Session, fragments []nicehtml.Fragment) (*Report, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}

	log := o.log.With(zap.String("session", s.ID()))
	report := &Report{
		Started:   o.clock(),
		SessionID: s.ID(),
		Outcomes:  make([]Outcome, len(fragments)),
	}
	for i, f := range fragments {
		report.Outcomes[i].Fragment = f
	}
	finish := func(st State, err error) (*Report, error) {
		o.setState(s, st)
		report.State = st
		report.Elapsed = o.clock().Sub(report.Started)
		return report, err
	}

	o.setState(s, StateLoading)
	log.Debug("Run started", zap.Int("fragments", len(fragments)))

	engineF := s.load(ctx)
	resolutions := make([]*Future[nicehtml.Result], len(fragments))
	for i, f := range fragments {
		resolutions[i] = Go(func() nicehtml.Result {
			res := o.resolver.Resolve(ctx, f)
			o.observer.Resolved(f, res)
			return res
		})
	}

	// join: the engine first so its failure does not wait for slow fragments
	loadRes, err := engineF.Wait(ctx)
	if err != nil {
		log.Warn("Run canceled while loading engine", zap.Error(err))
		return finish(StateFailed, errors.Canceled(errors.PhaseRun, err))
	}
	if loadRes.err != nil {
		log.Error("Unable to load engine", zap.Error(loadRes.err))
		return finish(StateFailed, loadRes.err)
	}

	results := make([]nicehtml.Result, len(fragments))
	for i, f := range resolutions {
		if results[i], err = f.Wait(ctx); err != nil {
			log.Warn("Run canceled while resolving fragments", zap.Error(err))
			return finish(StateFailed, errors.Canceled(errors.PhaseRun, err))
		}
	}
	o.setState(s, StateJoined)

	o.setState(s, StateInvoking)
	eng := loadRes.engine
	for i, f := range fragments {
		out := &report.Outcomes[i]
		res := results[i]
		if !res.OK() {
			// logged by the resolver
			out.Status, out.Err = StatusSkipped, res.Err
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Warn("Run canceled during conversion", zap.Int("fragment", f.Index), zap.Error(err))
			return finish(StateFailed, errors.Canceled(errors.PhaseRun, err))
		}

		out.Size = len(res.Content)
		o.observer.ConversionStarted(f)
		start := o.clock()
		err := eng.Convert(ctx, res.Content)
		out.Duration = o.clock().Sub(start)
		if err != nil {
			out.Status, out.Err = StatusFailed, fragmentError(f, err)
			log.Error("Unable to convert fragment",
				zap.Int("fragment", f.Index),
				zap.String("source", f.Source),
				zap.Error(out.Err))
		} else {
			out.Status = StatusConverted
		}
		o.observer.ConversionFinished(f, *out)
	}

	log.Debug("Run finished",
		zap.Int("converted", report.Count(StatusConverted)),
		zap.Int("skipped", report.Count(StatusSkipped)),
		zap.Int("failed", report.Count(StatusFailed)))
	return finish(StateDone, nil)
}

func (o *Orchestrator) setState(s *Session, to State) {
	if from := s.transition(to); from != to {
		o.observer.StateChanged(from, to)
	}
}

// fragmentError tags a conversion error with the fragment it belongs to.
func fragmentError(f nicehtml.Fragment, err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Phase == errors.PhaseConvert {
		if len(e.Path) == 0 {
			e.Path = errors.FragmentPath(f.Index)
		}
		if e.Source == "" {
			e.Source = f.Source
		}
		return err
	}
	return errors.New(errors.PhaseConvert, errors.KindGuest).
		Path(errors.FragmentPath(f.Index)...).
		Source(f.Source).
		Cause(err).
		Build()
}
