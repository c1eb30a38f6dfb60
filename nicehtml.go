package nicehtml

import "context"

// Origin tells where a fragment's content comes from.
type Origin int

const (
	// OriginInline fragments carry their content as element text.
	OriginInline Origin = iota
	// OriginRemote fragments declare an external source location.
	OriginRemote
)

func (o Origin) String() string {
	switch o {
	case OriginInline:
		return "inline"
	case OriginRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Fragment is one discovered unit of NiceHTML source awaiting conversion.
type Fragment struct {
	// Source is the absolute location of a remote fragment.
	Source string
	// Content is the text of an inline fragment. Remote fragments get
	// their content from resolution.
	Content string
	// Index is the discovery position and defines conversion order.
	Index  int
	Origin Origin
}

// Result is the outcome of resolving a fragment's content.
type Result struct {
	Err     error
	Content string
}

// OK reports whether the resolution succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Resolved returns a successful result.
func Resolved(content string) Result {
	return Result{Content: content}
}

// Failed returns a failed result.
func Failed(err error) Result {
	return Result{Err: err}
}

// Engine is a ready transpilation engine.
// Convert must not be called concurrently.
type Engine interface {
	Convert(ctx context.Context, content string) error
	Close(ctx context.Context) error
}

// Loader performs the engine's asynchronous initialization.
type Loader interface {
	Load(ctx context.Context) (Engine, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Engine, error)

func (f LoaderFunc) Load(ctx context.Context) (Engine, error) {
	return f(ctx)
}
