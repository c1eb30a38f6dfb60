package engine

import (
	"context"
	"io"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nicehtml/errors"
)

// Host function names.
const (
	HostEmit = "emit"
	HostLog  = "log"
	HostFail = "fail"
)

func hostFunctionNames() map[string]bool {
	return map[string]bool{HostEmit: true, HostLog: true, HostFail: true}
}

// hostState backs the host module of one engine instance. It is only
// touched from inside guest calls, which never overlap.
type hostState struct {
	out     io.Writer
	outErr  error
	log     *zap.Logger
	failure string
	emitted int
}

func (h *hostState) reset() {
	h.outErr = nil
	h.failure = ""
	h.emitted = 0
}

func (h *hostState) instantiate(ctx context.Context, rt wazero.Runtime, name string) error {
	ptrLen := []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	_, err := rt.NewHostModuleBuilder(name).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.emit), ptrLen, nil).
		WithParameterNames("ptr", "len").
		Export(HostEmit).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.logMessage), ptrLen, nil).
		WithParameterNames("ptr", "len").
		Export(HostLog).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.fail), ptrLen, nil).
		WithParameterNames("ptr", "len").
		Export(HostFail).
		Instantiate(ctx)
	return err
}

func (h *hostState) emit(_ context.Context, mod api.Module, stack []uint64) {
	data := readGuest(mod, stack)
	if h.outErr != nil {
		return
	}
	n, err := h.out.Write(data)
	h.emitted += n
	h.outErr = err
}

func (h *hostState) logMessage(_ context.Context, mod api.Module, stack []uint64) {
	h.log.Info("Engine message", zap.String("message", string(readGuest(mod, stack))))
}

func (h *hostState) fail(_ context.Context, mod api.Module, stack []uint64) {
	h.failure = string(readGuest(mod, stack))
}

// readGuest returns a copy of the (ptr, len) range named by stack. An
// invalid range traps the guest call.
func readGuest(mod api.Module, stack []uint64) []byte {
	ptr, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	mem := mod.Memory()
	if mem == nil {
		panic(errors.NotInitialized(errors.PhaseConvert, "engine memory"))
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		panic(errors.OutOfBounds(errors.PhaseConvert, ptr, length, mem.Size()))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
