package engine

import (
	"context"
	"io"
	"net/http"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
	"github.com/wippyai/nicehtml/fetch"
)

// DefaultHostModule is the import module name of the host functions.
const DefaultHostModule = "nicehtml"

const wasiModule = "wasi_snapshot_preview1"

// Source yields the engine module bytes.
type Source func(ctx context.Context) ([]byte, error)

// FromBytes returns a Source serving b.
func FromBytes(b []byte) Source {
	return func(context.Context) ([]byte, error) {
		return b, nil
	}
}

// FromLocation returns a Source reading a file path or URL with client.
func FromLocation(client *http.Client, location string) Source {
	return func(ctx context.Context) ([]byte, error) {
		u, err := fetch.Location(location)
		if err != nil {
			return nil, err
		}
		doc, err := fetch.Get(ctx, client, u.String())
		if err != nil {
			return nil, err
		}
		return doc.Body, nil
	}
}

// LoaderConfig holds configuration for engine loading
type LoaderConfig struct {
	// Module provides the engine bytes. Required.
	Module Source

	// Output receives converted markup. Defaults to io.Discard.
	Output io.Writer

	// Contract overrides the default export contract.
	Contract *Contract

	// HostModule is the import module name for host functions.
	HostModule string

	// MemoryLimitPages caps engine memory in 64KB pages. 0 means the
	// wazero default.
	MemoryLimitPages uint32

	// EnableWASI provides wasi_snapshot_preview1 to the engine.
	EnableWASI bool

	// SkipInit suppresses the call to the init export.
	SkipInit bool
}

// Loader compiles and instantiates engine modules.
type Loader struct {
	cfg LoaderConfig
}

var _ nicehtml.Loader = (*Loader)(nil)

// NewLoader creates a loader for cfg.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.HostModule == "" {
		cfg.HostModule = DefaultHostModule
	}
	return &Loader{cfg: cfg}
}

// Load reads, verifies and instantiates the engine, then runs its init
// export once. Every failure is a load-phase error.
func (l *Loader) Load(ctx context.Context) (nicehtml.Engine, error) {
	h, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (l *Loader) load(ctx context.Context) (*Handle, error) {
	if l.cfg.Module == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "no engine module configured")
	}

	contract := l.cfg.Contract
	if contract == nil {
		var err error
		if contract, err = DefaultContract(); err != nil {
			return nil, err
		}
	}

	wasmBytes, err := l.cfg.Module(ctx)
	if err != nil {
		return nil, errors.Load("read engine module", err)
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if l.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(l.cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	h, err := l.instantiate(ctx, rt, contract, wasmBytes)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return h, nil
}

func (l *Loader) instantiate(ctx context.Context, rt wazero.Runtime, contract *Contract, wasmBytes []byte) (*Handle, error) {
	log := Logger()

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile engine module", err)
	}

	if err := contract.Verify(compiled); err != nil {
		return nil, err
	}

	open := map[string]bool{}
	if l.cfg.EnableWASI {
		open[wasiModule] = true
	}
	provided := map[string]map[string]bool{l.cfg.HostModule: hostFunctionNames()}
	if err := checkImports(compiled, provided, open); err != nil {
		return nil, err
	}

	if l.cfg.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			return nil, errors.Instantiation(err)
		}
	}

	host := &hostState{out: l.cfg.Output, log: log}
	if err := host.instantiate(ctx, rt, l.cfg.HostModule); err != nil {
		return nil, errors.Instantiation(err)
	}

	modConfig := wazero.NewModuleConfig().
		WithName("nicehtml-engine").
		WithStartFunctions("_initialize")
	mod, err := rt.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	alloc, err := requireExport(mod, ExportAlloc)
	if err != nil {
		return nil, err
	}
	transpile, err := requireExport(mod, ExportTranspile)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		runtime:   rt,
		module:    mod,
		host:      host,
		alloc:     alloc,
		transpile: transpile,
		dealloc:   mod.ExportedFunction(ExportDealloc),
	}

	if fn := mod.ExportedFunction(ExportInit); fn != nil && !l.cfg.SkipInit {
		if _, err := fn.Call(ctx); err != nil {
			return nil, errors.Load("engine init", err)
		}
	}

	log.Debug("Engine ready",
		zap.Int("size", len(wasmBytes)),
		zap.Uint32("memory", memorySize(mod)),
		zap.Bool("wasi", l.cfg.EnableWASI))
	return h, nil
}

// requireExport looks up a function every handle calls. A custom contract
// may not list it, so Verify alone does not guarantee it exists.
func requireExport(mod api.Module, name string) (api.Function, error) {
	if fn := mod.ExportedFunction(name); fn != nil {
		return fn, nil
	}
	return nil, errors.NotFound(errors.PhaseLoad, "export", name)
}

func memorySize(mod api.Module) uint32 {
	if mem := mod.Memory(); mem != nil {
		return mem.Size()
	}
	return 0
}
