package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nicehtml"
	"github.com/wippyai/nicehtml/errors"
)

// Handle is a loaded engine instance.
// Convert must not be called concurrently.
type Handle struct {
	runtime   wazero.Runtime
	module    api.Module
	host      *hostState
	alloc     api.Function
	transpile api.Function
	dealloc   api.Function
}

var _ nicehtml.Engine = (*Handle)(nil)

// Convert passes content to the engine's transpile export. Output goes to
// the configured sink through the emit host function.
func (h *Handle) Convert(ctx context.Context, content string) error {
	if h.module == nil {
		return errors.NotInitialized(errors.PhaseConvert, "engine")
	}

	data := []byte(content)
	size := uint32(len(data))

	res, err := h.alloc.Call(ctx, api.EncodeU32(size))
	if err != nil {
		return errors.Conversion("allocate source buffer", err)
	}
	ptr := api.DecodeU32(res[0])

	mem := h.module.Memory()
	if !mem.Write(ptr, data) {
		return errors.OutOfBounds(errors.PhaseConvert, ptr, size, mem.Size())
	}

	h.host.reset()
	res, err = h.transpile.Call(ctx, api.EncodeU32(ptr), api.EncodeU32(size))
	h.free(ctx, ptr, size)

	if err != nil {
		e := errors.Conversion("engine trapped", err)
		if h.host.failure != "" {
			e.Detail = h.host.failure
		}
		return e
	}
	if code := api.DecodeI32(res[0]); code != 0 {
		detail := h.host.failure
		if detail == "" {
			detail = fmt.Sprintf("transpile returned %d", code)
		}
		e := errors.Conversion(detail, nil)
		e.Value = code
		return e
	}
	if h.host.outErr != nil {
		return errors.Conversion("write output", h.host.outErr)
	}
	return nil
}

// Emitted returns the number of bytes written by the last conversion.
func (h *Handle) Emitted() int {
	return h.host.emitted
}

func (h *Handle) free(ctx context.Context, ptr, size uint32) {
	if h.dealloc == nil {
		return
	}
	if _, err := h.dealloc.Call(ctx, api.EncodeU32(ptr), api.EncodeU32(size)); err != nil {
		Logger().Warn("Unable to release engine memory", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

// Close releases the engine and its runtime.
func (h *Handle) Close(ctx context.Context) error {
	if h.runtime == nil {
		return nil
	}
	err := h.runtime.Close(ctx)
	h.runtime = nil
	h.module = nil
	return err
}
