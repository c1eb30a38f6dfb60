// Package wasm encodes core WebAssembly modules.
//
// It covers the subset of the binary format needed to assemble small engine
// modules in Go: function types, function imports, memories, mutable
// globals, exports, code and active data segments.
//
//	m := &wasm.Module{
//	    Types:   []wasm.FuncType{{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}},
//	    Funcs:   []uint32{0},
//	    Exports: []wasm.Export{{Name: "id", Kind: wasm.KindFunc, Idx: 0}},
//	    Code: []wasm.FuncBody{{Code: wasm.EncodeInstructions([]wasm.Instruction{
//	        wasm.LocalGet(0),
//	        wasm.End(),
//	    })}},
//	}
//	bin := m.Encode()
//
// Decoding is left to the runtime hosting the module.
package wasm
