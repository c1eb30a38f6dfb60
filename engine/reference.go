package engine

import (
	"github.com/wippyai/nicehtml/wasm"
)

const (
	referenceReady  = "nicehtml reference engine ready"
	referenceMsgPtr = 16
	referenceBuffer = 1024
)

// Reference returns a passthrough engine module importing host functions
// from DefaultHostModule. It emits every source unchanged and logs a ready
// message from init. Useful to check a page's wiring without a real engine.
func Reference() []byte {
	return ReferenceFor(DefaultHostModule)
}

// ReferenceFor is Reference with a custom host module name.
func ReferenceFor(hostModule string) []byte {
	i32 := wasm.ValI32
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{i32, i32}},
			{Params: []wasm.ValType{i32}, Results: []wasm.ValType{i32}},
			{Params: []wasm.ValType{i32, i32}, Results: []wasm.ValType{i32}},
			{},
		},
		// imported functions come first in the index space
		Imports: []wasm.Import{
			{Module: hostModule, Name: HostEmit, TypeIdx: 0},
			{Module: hostModule, Name: HostLog, TypeIdx: 0},
		},
		Funcs:    []uint32{1, 2, 3},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Exports: []wasm.Export{
			{Name: ExportMemory, Kind: wasm.KindMemory, Idx: 0},
			{Name: ExportAlloc, Kind: wasm.KindFunc, Idx: 2},
			{Name: ExportTranspile, Kind: wasm.KindFunc, Idx: 3},
			{Name: ExportInit, Kind: wasm.KindFunc, Idx: 4},
		},
		Code: []wasm.FuncBody{
			{Code: wasm.EncodeInstructions(referenceAlloc())},
			{Code: wasm.EncodeInstructions([]wasm.Instruction{
				wasm.LocalGet(0),
				wasm.LocalGet(1),
				wasm.Call(0),
				wasm.I32Const(0),
				wasm.End(),
			})},
			{Code: wasm.EncodeInstructions([]wasm.Instruction{
				wasm.I32Const(referenceMsgPtr),
				wasm.I32Const(int32(len(referenceReady))),
				wasm.Call(1),
				wasm.End(),
			})},
		},
		Data: []wasm.DataSegment{
			{Offset: wasm.ConstI32Expr(referenceMsgPtr), Init: []byte(referenceReady)},
		},
	}
	return m.Encode()
}

// referenceAlloc always hands out the same buffer, growing memory when the
// request does not fit.
func referenceAlloc() []wasm.Instruction {
	return []wasm.Instruction{
		// size + buffer > memory.size * 64KiB
		wasm.LocalGet(0),
		wasm.I32Const(referenceBuffer),
		wasm.Op(wasm.OpI32Add),
		wasm.Op(wasm.OpMemorySize),
		wasm.I32Const(16),
		wasm.Op(wasm.OpI32Shl),
		wasm.Op(wasm.OpI32GtU),
		wasm.If(),
		// grow by ceil(size / 64KiB) pages
		wasm.LocalGet(0),
		wasm.I32Const(0xFFFF),
		wasm.Op(wasm.OpI32Add),
		wasm.I32Const(16),
		wasm.Op(wasm.OpI32ShrU),
		wasm.Op(wasm.OpMemoryGrow),
		wasm.Op(wasm.OpDrop),
		wasm.End(),
		wasm.I32Const(referenceBuffer),
		wasm.End(),
	}
}
