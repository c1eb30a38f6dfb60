package fetch

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
)

// Resolver resolves fragments to their text content.
type Resolver struct {
	client *http.Client
	clock  func() time.Time
	log    *zap.Logger
	param  string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock sets the time source used for cache-busting.
func WithClock(clock func() time.Time) Option {
	return func(r *Resolver) {
		r.clock = clock
	}
}

// WithCacheBustParam sets the cache-busting query parameter name.
func WithCacheBustParam(param string) Option {
	return func(r *Resolver) {
		if param != "" {
			r.param = param
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a resolver retrieving remote fragments with client.
func NewResolver(client *http.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client: client,
		clock:  time.Now,
		log:    zap.NewNop(),
		param:  DefaultCacheBustParam,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the content of f. Inline fragments settle immediately.
// Remote failures are logged and returned as a failed result.
func (r *Resolver) Resolve(ctx context.Context, f nicehtml.Fragment) nicehtml.Result {
	if f.Origin == nicehtml.OriginInline {
		return nicehtml.Resolved(f.Content)
	}

	res := r.fetch(ctx, f)
	if !res.OK() {
		r.log.Error("Unable to load fragment",
			zap.Int("fragment", f.Index),
			zap.String("source", f.Source),
			zap.Error(res.Err))
	}
	return res
}

func (r *Resolver) fetch(ctx context.Context, f nicehtml.Fragment) nicehtml.Result {
	if f.Source == "" {
		return nicehtml.Failed(errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Path(errors.FragmentPath(f.Index)...).
			Detail("remote fragment without source").
			Build())
	}

	u, err := CacheBust(f.Source, r.param, r.clock())
	if err != nil {
		return nicehtml.Failed(errors.New(errors.PhaseResolve, errors.KindInvalidInput).
			Path(errors.FragmentPath(f.Index)...).
			Source(f.Source).
			Cause(err).
			Build())
	}

	r.log.Debug("Fetching fragment", zap.Int("fragment", f.Index), zap.String("url", u))

	doc, err := Get(ctx, r.client, u)
	if err != nil {
		var se *StatusError
		if stderrors.As(err, &se) {
			e := errors.BadStatus(errors.PhaseResolve, f.Source, se.Code, se.Status)
			e.Path = errors.FragmentPath(f.Index)
			return nicehtml.Failed(e)
		}
		return nicehtml.Failed(errors.Fetch(f.Index, f.Source, err))
	}
	return nicehtml.Resolved(string(doc.Body))
}
