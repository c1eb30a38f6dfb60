package wasm

import "bytes"

// Instruction is a single WebAssembly instruction with its immediates.
type Instruction struct {
	Imm    any
	Opcode byte
}

// BlockImm holds the block type for block, loop and if instructions.
type BlockImm struct {
	Type int32 // Block type: -64=void, -1=i32, >=0=type index
}

// IndexImm holds a local, global, function or label index.
type IndexImm struct {
	Idx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Offset uint32
	Align  uint32
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

// Constructors for the instructions engines commonly need

func LocalGet(idx uint32) Instruction  { return Instruction{Opcode: OpLocalGet, Imm: IndexImm{idx}} }
func LocalSet(idx uint32) Instruction  { return Instruction{Opcode: OpLocalSet, Imm: IndexImm{idx}} }
func GlobalGet(idx uint32) Instruction { return Instruction{Opcode: OpGlobalGet, Imm: IndexImm{idx}} }
func GlobalSet(idx uint32) Instruction { return Instruction{Opcode: OpGlobalSet, Imm: IndexImm{idx}} }
func Call(idx uint32) Instruction      { return Instruction{Opcode: OpCall, Imm: IndexImm{idx}} }
func I32Const(v int32) Instruction     { return Instruction{Opcode: OpI32Const, Imm: I32Imm{v}} }
func If() Instruction                  { return Instruction{Opcode: OpIf, Imm: BlockImm{BlockVoid}} }
func End() Instruction                 { return Instruction{Opcode: OpEnd} }
func Op(op byte) Instruction           { return Instruction{Opcode: op} }

// EncodeInstructionTo encodes a single instruction into buf
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)

	var scratch []byte
	switch imm := instr.Imm.(type) {
	case nil:
		switch instr.Opcode {
		case OpMemorySize, OpMemoryGrow:
			// reserved memory index
			buf.WriteByte(0x00)
		}
		return
	case BlockImm:
		scratch = AppendLEB128s(scratch, imm.Type)
	case IndexImm:
		scratch = AppendLEB128u(scratch, imm.Idx)
	case I32Imm:
		scratch = AppendLEB128s(scratch, imm.Value)
	case MemoryImm:
		scratch = AppendLEB128u(scratch, imm.Align)
		scratch = AppendLEB128u(scratch, imm.Offset)
	}
	buf.Write(scratch)
}

// EncodeInstructionsTo encodes all instructions into buf
func EncodeInstructionsTo(buf *bytes.Buffer, instrs []Instruction) {
	for i := range instrs {
		EncodeInstructionTo(buf, &instrs[i])
	}
}

// EncodeInstructions encodes instructions to bytes
func EncodeInstructions(instrs []Instruction) []byte {
	var buf bytes.Buffer
	buf.Grow(len(instrs) * 3) // estimate 3 bytes per instruction
	EncodeInstructionsTo(&buf, instrs)
	return buf.Bytes()
}
