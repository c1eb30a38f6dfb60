package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/engine"
	"github.com/wippyai/nicehtml/fetch"
	"github.com/wippyai/nicehtml/orchestrator"
	"github.com/wippyai/nicehtml/page"
	"github.com/wippyai/nicehtml/state"
)

func openPage(ctx context.Context, cmd *cli.Command) (*page.Document, error) {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return nil, fmt.Errorf("page location is required")
	}
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many pages", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	opts := page.Options{
		Element:    env.Cfg.Discovery.Element,
		Type:       env.Cfg.Discovery.Type,
		SourceAttr: env.Cfg.Discovery.SourceAttr,
	}
	doc, err := page.Open(ctx, env.Client(), cmd.Args().Get(0), opts)
	if err != nil {
		return nil, fmt.Errorf("unable to open page: %w", err)
	}
	env.Log.Debug("Page loaded", zap.Stringer("url", doc.URL), zap.Int("fragments", len(doc.Fragments)))
	return doc, nil
}

func newLoader(env *state.LocalEnv, location string, out io.Writer) nicehtml.Loader {
	cfg := env.Cfg.Engine
	if location == "" {
		location = cfg.Location
	}

	src := engine.FromBytes(engine.ReferenceFor(cfg.HostModule))
	if location != "" {
		src = engine.FromLocation(env.Client(), location)
	} else {
		env.Log.Debug("No engine configured, using reference engine")
	}

	return engine.NewLoader(engine.LoaderConfig{
		Module:           src,
		Output:           out,
		HostModule:       cfg.HostModule,
		MemoryLimitPages: cfg.MemoryLimitPages,
		EnableWASI:       cfg.WASI,
		SkipInit:         cfg.SkipInit,
	})
}

func renderPage(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	doc, err := openPage(ctx, cmd)
	if err != nil {
		return err
	}

	var (
		out      io.Writer = os.Stdout
		captured bytes.Buffer
	)
	interactive := cmd.Bool("interactive")
	if fname := cmd.String("out"); len(fname) > 0 {
		f, ferr := os.Create(fname)
		if ferr != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, ferr)
		}
		defer func() {
			if er := f.Close(); er != nil && err == nil {
				err = fmt.Errorf("unable to close destination file '%s': %w", fname, er)
			}
		}()
		out = f
	}
	if interactive {
		// the view owns the terminal, output is shown there
		if out == os.Stdout {
			out = &captured
		} else {
			out = io.MultiWriter(out, &captured)
		}
	}

	sess := orchestrator.NewSession(newLoader(env, cmd.String("engine"), out))
	defer func() {
		if er := sess.Close(context.WithoutCancel(ctx)); er != nil {
			env.Log.Warn("Unable to release engine", zap.Error(er))
		}
	}()

	log := runLogger(env, interactive)
	if interactive {
		engine.SetLogger(log.Named("engine"))
	}
	resolver := fetch.NewResolver(env.Client(),
		fetch.WithLogger(log),
		fetch.WithCacheBustParam(env.Cfg.Fetch.CacheBustParam))

	var report *orchestrator.Report
	if interactive {
		report, err = runInteractive(ctx, doc, sess, resolver, &captured)
	} else {
		report, err = orchestrator.New(resolver, orchestrator.WithLogger(log)).Run(ctx, sess, doc.Fragments)
	}
	if err != nil {
		return err
	}

	env.Log.Debug("Page processed",
		zap.String("session", report.SessionID),
		zap.Int("fragments", len(report.Outcomes)),
		zap.Int("converted", report.Count(orchestrator.StatusConverted)),
		zap.Int("skipped", report.Count(orchestrator.StatusSkipped)),
		zap.Int("failed", report.Count(orchestrator.StatusFailed)),
		zap.Duration("elapsed", report.Elapsed))

	if cmd.Bool("strict") {
		return report.Err()
	}
	return nil
}

// runLogger returns the diagnostic logger of a render. The interactive view
// owns the terminal, so it only gets the file log.
func runLogger(env *state.LocalEnv, interactive bool) *zap.Logger {
	if !interactive {
		return env.Log
	}
	if env.FileLog == nil {
		return zap.NewNop()
	}
	return env.FileLog
}

func listFragments(ctx context.Context, cmd *cli.Command) error {
	doc, err := openPage(ctx, cmd)
	if err != nil {
		return err
	}
	for _, f := range doc.Fragments {
		fmt.Fprintln(os.Stdout, describeFragment(f, 60))
	}
	return nil
}

// describeFragment renders f on a single line no longer than width runes
// of content.
func describeFragment(f nicehtml.Fragment, width int) string {
	if f.Origin == nicehtml.OriginRemote {
		return fmt.Sprintf("#%d %s %s", f.Index, f.Origin, f.Source)
	}
	content := strings.Join(strings.Fields(f.Content), " ")
	if r := []rune(content); len(r) > width {
		content = string(r[:width-1]) + "…"
	}
	return fmt.Sprintf("#%d %s %q", f.Index, f.Origin, content)
}
