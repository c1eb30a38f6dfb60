package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/nicehtml/config"
	"github.com/wippyai/nicehtml/engine"
	"github.com/wippyai/nicehtml/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)
	env.Debug = cmd.Bool("debug")

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	console, file, err := env.Cfg.Logging.Cores(env.Debug)
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.Log = config.NewLogger(zapcore.NewTee(console, file))
	env.FileLog = config.NewLogger(file)
	env.RedirectStdLog()
	engine.SetLogger(env.Log.Named("engine"))

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	} else {
		env.Log.Debug("Using configuration", zap.String("file", filepath.Clean(configFile)))
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}
	env.RestoreStdLog()
	return nil
}

// Errors from subcommands are regular errors, not cli.Exit values.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// reported either by exitErrHandler or on exit directly to stderr
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            config.AppName,
		Usage:           "loads NiceHTML fragments of a page and runs them through the transpilation engine",
		Version:         runtime.Version(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log debug messages to console"},
		},
		Commands: []*cli.Command{
			{
				Name:         "render",
				Usage:        "Discovers, loads and converts all fragments of a page",
				OnUsageError: usageErrorHandler,
				Action:       renderPage,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "engine", Aliases: []string{"e"}, Usage: "engine module `LOCATION` (file or URL), overrides configuration"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write engine output to `FILE` instead of STDOUT"},
					&cli.BoolFlag{Name: "strict", Usage: "fail when any fragment could not be loaded or converted"},
					&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "show run progress in an interactive view"},
				},
				ArgsUsage: "PAGE",
				CustomHelpTemplate: fmt.Sprintf(`%s
PAGE:
    path or URL (http, https, file) of an HTML page declaring fragments as
        <script type="text/nicehtml" src="..."></script>
        <script type="text/nicehtml">...</script>

Fragments that cannot be loaded are skipped and the run continues. When the
engine cannot be loaded nothing is converted and the command fails.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "list",
				Usage:        "Lists fragments declared by a page without loading them",
				OnUsageError: usageErrorHandler,
				Action:       listFragments,
				ArgsUsage:    "PAGE",
			},
			{
				Name:         "engine",
				Usage:        "Writes the built-in reference (passthrough) engine module",
				OnUsageError: usageErrorHandler,
				Action:       outputEngine,
				ArgsUsage:    "DESTINATION",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			// log may not be set yet (argument parsing) or already closed
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Debug("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

func outputEngine(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		return fmt.Errorf("destination is required")
	}

	data := engine.ReferenceFor(env.Cfg.Engine.HostModule)
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write engine module '%s': %w", fname, err)
	}
	env.Log.Info("Reference engine written", zap.String("file", fname), zap.Int("size", len(data)))
	return nil
}
