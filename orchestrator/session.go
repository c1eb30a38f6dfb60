package orchestrator

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/google/uuid"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
)

type loaded struct {
	engine nicehtml.Engine
	err    error
}

// Session is the context of one page load. It owns the page's single
// engine load and tracks the run state.
type Session struct {
	loader  nicehtml.Loader
	engine  *Future[loaded]
	id      string
	state   State
	mu      sync.Mutex
	once    sync.Once
	started bool
}

// NewSession creates an idle session loading its engine with loader.
func NewSession(loader nicehtml.Loader) *Session {
	return &Session{
		loader: loader,
		id:     uuid.NewString(),
	}
}

// ID returns the session's unique run id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Engine starts the engine load on first use and waits for its outcome.
// Every caller observes the same load.
func (s *Session) Engine(ctx context.Context) (nicehtml.Engine, error) {
	res, err := s.load(ctx).Wait(ctx)
	if err != nil {
		return nil, errors.Canceled(errors.PhaseLoad, err)
	}
	return res.engine, res.err
}

// load is detached from the caller's cancellation once started: the engine
// belongs to the session, not to the first caller.
func (s *Session) load(ctx context.Context) *Future[loaded] {
	s.once.Do(func() {
		lctx := context.WithoutCancel(ctx)
		f := Go(func() loaded {
			eng, err := s.loader.Load(lctx)
			if err != nil {
				return loaded{err: asLoadFailure(err)}
			}
			return loaded{engine: eng}
		})
		s.mu.Lock()
		s.engine = f
		s.mu.Unlock()
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// asLoadFailure makes sure loader errors match errors.EngineLoadFailure.
func asLoadFailure(err error) error {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Phase == errors.PhaseLoad {
		return err
	}
	var me *errors.MissingExportsError
	var mi *errors.MissingImportsError
	if stderrors.As(err, &me) || stderrors.As(err, &mi) {
		return err
	}
	return errors.Load("load engine", err)
}

// begin claims the session for a run.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.InvalidInput(errors.PhaseRun, "session "+s.id+" already ran")
	}
	s.started = true
	return nil
}

func (s *Session) transition(to State) (from State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, s.state = s.state, to
	return from
}

// Close releases the engine if it was loaded.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	f := s.engine
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	res, err := f.Wait(ctx)
	if err != nil {
		return err
	}
	if res.engine == nil {
		return nil
	}
	return res.engine.Close(ctx)
}
