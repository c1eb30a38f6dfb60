// Package state defines shared program state.
package state

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/nicehtml/config"
	"github.com/wippyai/nicehtml/fetch"
)

type envKey struct{}

// LocalEnv keeps everything the program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Log *zap.Logger
	// FileLog writes to the configured log file only.
	FileLog *zap.Logger
	Debug   bool

	client        *http.Client
	start         time.Time
	restoreStdLog func()
}

func newLocalEnv() *LocalEnv {
	return &LocalEnv{start: time.Now()}
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

// Client returns the HTTP client configured from Cfg, creating it on first
// use.
func (e *LocalEnv) Client() *http.Client {
	if e.client == nil {
		var cc fetch.ClientConfig
		if e.Cfg != nil {
			cc = fetch.ClientConfig{UserAgent: e.Cfg.Fetch.UserAgent, Timeout: e.Cfg.Fetch.Timeout}
		}
		e.client = fetch.NewClient(cc)
	}
	return e.client
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}
