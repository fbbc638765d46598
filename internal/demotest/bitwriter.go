// Package demotest builds demo files bit by bit for tests.
package demotest

import "math"

// BitWriter appends values least significant bit first, the order demreader.BitReader
// consumes them in.
type BitWriter struct {
	buf  []byte
	bits uint
}

func NewBitWriter() *BitWriter {
	return &BitWriter{}
}

// Uint appends the low n bits of v.
func (w *BitWriter) Uint(v uint64, n uint) *BitWriter {
	for i := uint(0); i < n; i++ {
		if w.bits%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>i&1 == 1 {
			w.buf[w.bits/8] |= 1 << (w.bits % 8)
		}
		w.bits++
	}
	return w
}

func (w *BitWriter) Bool(b bool) *BitWriter {
	if b {
		return w.Uint(1, 1)
	}
	return w.Uint(0, 1)
}

func (w *BitWriter) Uint8(v uint8) *BitWriter { return w.Uint(uint64(v), 8) }

func (w *BitWriter) Uint16(v uint16) *BitWriter { return w.Uint(uint64(v), 16) }

func (w *BitWriter) Int16(v int16) *BitWriter { return w.Uint(uint64(uint16(v)), 16) }

func (w *BitWriter) Uint32(v uint32) *BitWriter { return w.Uint(uint64(v), 32) }

func (w *BitWriter) Int32(v int32) *BitWriter { return w.Uint(uint64(uint32(v)), 32) }

func (w *BitWriter) Float(f float32) *BitWriter {
	return w.Uint(uint64(math.Float32bits(f)), 32)
}

func (w *BitWriter) Vector(x, y, z float32) *BitWriter {
	return w.Float(x).Float(y).Float(z)
}

// String appends s and a terminating NUL.
func (w *BitWriter) String(s string) *BitWriter {
	return w.Raw([]byte(s)).Uint8(0)
}

// FixedString appends s padded with NULs to size bytes.
func (w *BitWriter) FixedString(s string, size int) *BitWriter {
	b := make([]byte, size)
	copy(b, s)
	return w.Raw(b)
}

func (w *BitWriter) Raw(b []byte) *BitWriter {
	for _, c := range b {
		w.Uint8(c)
	}
	return w
}

// VarUint32 appends v as a 7-bits-per-byte varint.
func (w *BitWriter) VarUint32(v uint32) *BitWriter {
	for v >= 0x80 {
		w.Uint8(byte(v) | 0x80)
		v >>= 7
	}
	return w.Uint8(byte(v))
}

// Append copies every bit of o, including a trailing partial byte.
func (w *BitWriter) Append(o *BitWriter) *BitWriter {
	for i := uint(0); i < o.bits; i++ {
		w.Uint(uint64(o.buf[i/8]>>(i%8)&1), 1)
	}
	return w
}

// Len is the number of bits written.
func (w *BitWriter) Len() uint {
	return w.bits
}

// Bytes returns the buffer; a trailing partial byte is zero padded.
func (w *BitWriter) Bytes() []byte {
	return w.buf
}
