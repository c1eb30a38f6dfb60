package wasm

// LEB128 encoding utilities for WebAssembly binary format

// AppendLEB128u appends an unsigned LEB128 value
func AppendLEB128u(buf []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

// AppendLEB128s appends a signed LEB128 value (32-bit)
func AppendLEB128s(buf []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		buf = append(buf, b)
		if done {
			return buf
		}
	}
}

// AppendName appends a length-prefixed UTF-8 name
func AppendName(buf []byte, s string) []byte {
	buf = AppendLEB128u(buf, uint32(len(s)))
	return append(buf, s...)
}

// ConstI32Expr returns an init expression producing v.
func ConstI32Expr(v int32) []byte {
	return append(AppendLEB128s([]byte{OpI32Const}, v), OpEnd)
}
