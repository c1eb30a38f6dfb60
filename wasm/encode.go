package wasm

import "encoding/binary"

// Encode encodes the module to WebAssembly binary format
func (m *Module) Encode() []byte {
	var w []byte

	// Magic number and version
	w = binary.LittleEndian.AppendUint32(w, Magic)
	w = binary.LittleEndian.AppendUint32(w, Version)

	// Type section
	if len(m.Types) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec = append(sec, FuncTypeByte)
			sec = appendValTypes(sec, ft.Params)
			sec = appendValTypes(sec, ft.Results)
		}
		w = appendSection(w, SectionType, sec)
	}

	// Import section
	if len(m.Imports) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec = AppendName(sec, imp.Module)
			sec = AppendName(sec, imp.Name)
			sec = append(sec, KindFunc)
			sec = AppendLEB128u(sec, imp.TypeIdx)
		}
		w = appendSection(w, SectionImport, sec)
	}

	// Function section
	if len(m.Funcs) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			sec = AppendLEB128u(sec, typeIdx)
		}
		w = appendSection(w, SectionFunction, sec)
	}

	// Memory section
	if len(m.Memories) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Memories)))
		for _, mem := range m.Memories {
			if mem.Limits.Max != nil {
				sec = append(sec, 0x01)
				sec = AppendLEB128u(sec, mem.Limits.Min)
				sec = AppendLEB128u(sec, *mem.Limits.Max)
			} else {
				sec = append(sec, 0x00)
				sec = AppendLEB128u(sec, mem.Limits.Min)
			}
		}
		w = appendSection(w, SectionMemory, sec)
	}

	// Global section
	if len(m.Globals) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec = append(sec, byte(g.Type))
			if g.Mutable {
				sec = append(sec, 0x01)
			} else {
				sec = append(sec, 0x00)
			}
			sec = append(sec, g.Init...)
		}
		w = appendSection(w, SectionGlobal, sec)
	}

	// Export section
	if len(m.Exports) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec = AppendName(sec, exp.Name)
			sec = append(sec, exp.Kind)
			sec = AppendLEB128u(sec, exp.Idx)
		}
		w = appendSection(w, SectionExport, sec)
	}

	// Code section
	if len(m.Code) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Code)))
		for _, body := range m.Code {
			bodyBuf := AppendLEB128u(nil, uint32(len(body.Locals)))
			for _, local := range body.Locals {
				bodyBuf = AppendLEB128u(bodyBuf, local.Count)
				bodyBuf = append(bodyBuf, byte(local.ValType))
			}
			bodyBuf = append(bodyBuf, body.Code...)
			sec = AppendLEB128u(sec, uint32(len(bodyBuf)))
			sec = append(sec, bodyBuf...)
		}
		w = appendSection(w, SectionCode, sec)
	}

	// Data section
	if len(m.Data) > 0 {
		sec := AppendLEB128u(nil, uint32(len(m.Data)))
		for _, d := range m.Data {
			sec = AppendLEB128u(sec, 0) // active, memory 0
			sec = append(sec, d.Offset...)
			sec = AppendLEB128u(sec, uint32(len(d.Init)))
			sec = append(sec, d.Init...)
		}
		w = appendSection(w, SectionData, sec)
	}

	// Custom sections (at end)
	for _, cs := range m.CustomSections {
		sec := AppendName(nil, cs.Name)
		sec = append(sec, cs.Data...)
		w = appendSection(w, SectionCustom, sec)
	}

	return w
}

func appendValTypes(buf []byte, vs []ValType) []byte {
	buf = AppendLEB128u(buf, uint32(len(vs)))
	for _, v := range vs {
		buf = append(buf, byte(v))
	}
	return buf
}

func appendSection(w []byte, id byte, data []byte) []byte {
	w = append(w, id)
	w = AppendLEB128u(w, uint32(len(data)))
	return append(w, data...)
}
