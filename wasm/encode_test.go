package wasm

import (
	"bytes"
	"testing"
)

var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

func TestEncode_Empty(t *testing.T) {
	got := (&Module{}).Encode()
	if !bytes.Equal(got, header) {
		t.Errorf("empty module = %x, want %x", got, header)
	}
}

func TestEncode_TypeSection(t *testing.T) {
	m := &Module{Types: []FuncType{{}}}
	want := append(append([]byte{}, header...), SectionType, 0x04, 0x01, FuncTypeByte, 0x00, 0x00)
	if got := m.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode() = %x, want %x", got, want)
	}
}

func TestEncode_IdentityFunction(t *testing.T) {
	m := &Module{
		Types:   []FuncType{{Params: []ValType{ValI32}, Results: []ValType{ValI32}}},
		Funcs:   []uint32{0},
		Exports: []Export{{Name: "id", Kind: KindFunc, Idx: 0}},
		Code: []FuncBody{{Code: EncodeInstructions([]Instruction{
			LocalGet(0),
			End(),
		})}},
	}

	want := append([]byte{}, header...)
	want = append(want, SectionType, 0x06, 0x01, FuncTypeByte, 0x01, 0x7F, 0x01, 0x7F)
	want = append(want, SectionFunction, 0x02, 0x01, 0x00)
	want = append(want, SectionExport, 0x06, 0x01, 0x02, 'i', 'd', KindFunc, 0x00)
	want = append(want, SectionCode, 0x06, 0x01, 0x04, 0x00, OpLocalGet, 0x00, OpEnd)

	if got := m.Encode(); !bytes.Equal(got, want) {
		t.Errorf("Encode() =\n%x\nwant\n%x", got, want)
	}
}

func TestEncode_SectionOrder(t *testing.T) {
	max := uint32(4)
	m := &Module{
		Types:    []FuncType{{Params: []ValType{ValI32, ValI32}}},
		Imports:  []Import{{Module: "nicehtml", Name: "emit", TypeIdx: 0}},
		Memories: []MemoryType{{Limits: Limits{Min: 1, Max: &max}}},
		Globals:  []Global{{Type: ValI32, Mutable: true, Init: ConstI32Expr(1024)}},
		Exports:  []Export{{Name: "memory", Kind: KindMemory, Idx: 0}},
		Data:     []DataSegment{{Offset: ConstI32Expr(16), Init: []byte("hi")}},
		CustomSections: []CustomSection{
			{Name: "producers", Data: []byte{0x00}},
		},
	}
	bin := m.Encode()

	var ids []byte
	for pos := len(header); pos < len(bin); {
		id := bin[pos]
		pos++
		size, n := readU32(t, bin[pos:])
		pos += n + int(size)
		ids = append(ids, id)
	}
	want := []byte{SectionType, SectionImport, SectionMemory, SectionGlobal, SectionExport, SectionData, SectionCustom}
	if !bytes.Equal(ids, want) {
		t.Errorf("section ids = %v, want %v", ids, want)
	}
}

func TestFuncType_String(t *testing.T) {
	ft := FuncType{Params: []ValType{ValI32, ValI64}, Results: []ValType{ValF32}}
	if got := ft.String(); got != "(i32, i64) -> (f32)" {
		t.Errorf("String() = %q", got)
	}
	if got := (FuncType{}).String(); got != "() -> ()" {
		t.Errorf("String() = %q", got)
	}
}

func TestEncodeInstructions(t *testing.T) {
	tests := []struct {
		name  string
		instr Instruction
		want  []byte
	}{
		{"i32.const 0", I32Const(0), []byte{OpI32Const, 0x00}},
		{"i32.const -1", I32Const(-1), []byte{OpI32Const, 0x7F}},
		{"i32.const 1024", I32Const(1024), []byte{OpI32Const, 0x80, 0x08}},
		{"call 2", Call(2), []byte{OpCall, 0x02}},
		{"if void", If(), []byte{OpIf, 0x40}},
		{"memory.size", Op(OpMemorySize), []byte{OpMemorySize, 0x00}},
		{"memory.grow", Op(OpMemoryGrow), []byte{OpMemoryGrow, 0x00}},
		{"global.set 1", GlobalSet(1), []byte{OpGlobalSet, 0x01}},
		{"i32.load", Instruction{Opcode: OpI32Load, Imm: MemoryImm{Align: 2, Offset: 4}}, []byte{OpI32Load, 0x02, 0x04}},
		{"drop", Op(OpDrop), []byte{OpDrop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeInstructions([]Instruction{tt.instr})
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeInstructions(%s) = %x, want %x", tt.name, got, tt.want)
			}
		})
	}
}

func readU32(t *testing.T, b []byte) (uint32, int) {
	t.Helper()
	var result uint32
	var shift uint
	for i, c := range b {
		result |= uint32(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	t.Fatal("truncated LEB128")
	return 0, 0
}
