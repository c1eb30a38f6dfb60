package wasm

import "strings"

// Module represents a WebAssembly module to be encoded
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // Type indices for declared functions
	Memories []MemoryType
	Globals  []Global
	Exports  []Export
	Code     []FuncBody
	Data     []DataSegment

	CustomSections []CustomSection
}

// FuncType represents a WebAssembly function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// String renders the signature as "(i32, i32) -> (i32)".
func (f FuncType) String() string {
	return "(" + joinValTypes(f.Params) + ") -> (" + joinValTypes(f.Results) + ")"
}

func joinValTypes(vs []ValType) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// ValType represents a WebAssembly value type.
// See constants.go for ValI32, ValI64, ValF32, ValF64.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	default:
		return "unknown"
	}
}

// Import represents an imported function.
type Import struct {
	Module  string
	Name    string
	TypeIdx uint32
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
}

// Limits describes size constraints for memories.
type Limits struct {
	Max *uint32
	Min uint32
}

// Global is a global variable with its constant initializer expression.
type Global struct {
	Init    []byte // encoded init expression including the trailing end
	Type    ValType
	Mutable bool
}

// Export represents an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody holds a function's locals and encoded instructions.
// Code must end with OpEnd.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte
}

// LocalEntry declares Count locals of one type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// DataSegment is an active data segment for memory 0.
type DataSegment struct {
	Offset []byte // encoded offset expression including the trailing end
	Init   []byte
}

// CustomSection is a named section ignored by runtimes.
type CustomSection struct {
	Name string
	Data []byte
}
