package demreader

import (
	"bytes"
	"math"
)

// BitReader is a cursor over a byte slice. Bits are consumed least significant first
// and multi-byte values are little endian. A reader made by SplitAndSkip shares the
// buffer with its parent but is bounded to its own region, and positions stay absolute
// so offsets in errors and traces point into the original file.
type BitReader struct {
	data []byte
	pos  uint
	end  uint
}

func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data, end: uint(len(data)) * 8}
}

// Position is the absolute bit position.
func (r *BitReader) Position() uint {
	return r.pos
}

// Remaining is the number of unread bits in the region.
func (r *BitReader) Remaining() uint {
	return r.end - r.pos
}

func (r *BitReader) fail(op string, err error) error {
	return &DecodeError{Op: op, Offset: r.pos, Err: err}
}

func (r *BitReader) check(op string, n uint) error {
	if n > r.end-r.pos {
		return r.fail(op, ErrBufferExhausted)
	}
	return nil
}

// atomic runs fn and rewinds the cursor if it fails.
func (r *BitReader) atomic(fn func() error) error {
	start := r.pos
	if err := fn(); err != nil {
		r.pos = start
		return err
	}
	return nil
}

func (r *BitReader) ReadUint(n uint) (uint64, error) {
	if n > 64 {
		return 0, r.fail("ReadUint", errBitWidth)
	}
	if err := r.check("ReadUint", n); err != nil {
		return 0, err
	}
	var v uint64
	var read uint
	pos := r.pos
	for read < n {
		shift := pos & 7
		take := 8 - shift
		if take > n-read {
			take = n - read
		}
		b := uint64(r.data[pos>>3]>>shift) & (uint64(1)<<take - 1)
		v |= b << read
		read += take
		pos += take
	}
	r.pos = pos
	return v, nil
}

// ReadSignedInt reads n bits as a two's complement value.
func (r *BitReader) ReadSignedInt(n uint) (int64, error) {
	v, err := r.ReadUint(n)
	if err != nil || n == 0 {
		return 0, err
	}
	if n < 64 && v&(uint64(1)<<(n-1)) != 0 {
		v |= ^uint64(0) << n
	}
	return int64(v), nil
}

func (r *BitReader) ReadBool() (bool, error) {
	v, err := r.ReadUint(1)
	return v == 1, err
}

func (r *BitReader) ReadByte() (byte, error) {
	v, err := r.ReadUint(8)
	return byte(v), err
}

func (r *BitReader) ReadUint16() (uint16, error) {
	v, err := r.ReadUint(16)
	return uint16(v), err
}

func (r *BitReader) ReadInt16() (int16, error) {
	v, err := r.ReadUint(16)
	return int16(v), err
}

func (r *BitReader) ReadUint32() (uint32, error) {
	v, err := r.ReadUint(32)
	return uint32(v), err
}

func (r *BitReader) ReadInt32() (int32, error) {
	v, err := r.ReadUint(32)
	return int32(v), err
}

// ReadFloatBits reinterprets the low n bits as an IEEE-754 float and rounds it to
// three decimals, the precision the format is displayed with.
func (r *BitReader) ReadFloatBits(n uint) (float32, error) {
	if n > 32 {
		return 0, r.fail("ReadFloatBits", errBitWidth)
	}
	v, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	return roundFloat(math.Float32frombits(uint32(v))), nil
}

func (r *BitReader) ReadFloat() (float32, error) {
	return r.ReadFloatBits(32)
}

// ReadFloatExact reads a 32-bit float without rounding.
func (r *BitReader) ReadFloatExact() (float32, error) {
	v, err := r.ReadUint(32)
	return math.Float32frombits(uint32(v)), err
}

func roundFloat(f float32) float32 {
	return float32(math.Round(float64(f)*1000) / 1000)
}

// ReadBytes reads n whole bytes, which need not be byte aligned.
func (r *BitReader) ReadBytes(n uint) ([]byte, error) {
	if err := r.check("ReadBytes", n*8); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if r.pos&7 == 0 {
		copy(out, r.data[r.pos>>3:])
		r.pos += n * 8
		return out, nil
	}
	for i := range out {
		v, _ := r.ReadUint(8)
		out[i] = byte(v)
	}
	return out, nil
}

// ReadString reads up to and including a NUL byte and returns the bytes before it.
func (r *BitReader) ReadString() (string, error) {
	b, err := r.readStringBytes()
	return string(b), err
}

func (r *BitReader) readStringBytes() ([]byte, error) {
	start := r.pos
	var b []byte
	for {
		c, err := r.ReadUint(8)
		if err != nil {
			r.pos = start
			return nil, err
		}
		if c == 0 {
			return b, nil
		}
		b = append(b, byte(c))
	}
}

// ReadFixedString reads bits/8 bytes and drops the trailing NUL padding.
func (r *BitReader) ReadFixedString(bits uint) (string, error) {
	b, err := r.ReadBytes(bits / 8)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(b, "\x00")), nil
}

func (r *BitReader) Skip(n uint) error {
	if err := r.check("Skip", n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// SplitAndSkip returns a reader over the next n bits and moves r past them.
func (r *BitReader) SplitAndSkip(n uint) (*BitReader, error) {
	if err := r.check("SplitAndSkip", n); err != nil {
		return nil, err
	}
	sub := &BitReader{data: r.data, pos: r.pos, end: r.pos + n}
	r.pos += n
	return sub, nil
}

// ReadVarUint32 reads a 7-bits-per-byte little endian varint of at most five bytes.
func (r *BitReader) ReadVarUint32() (uint32, error) {
	start := r.pos
	var v uint32
	for i := 0; i < 5; i++ {
		b, err := r.ReadUint(8)
		if err != nil {
			r.pos = start
			return 0, err
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return v, nil
}

// ReadRemaining reads the rest of the region. A trailing partial byte is returned in
// the low bits of the last byte.
func (r *BitReader) ReadRemaining() ([]byte, error) {
	n := r.Remaining()
	out, err := r.ReadBytes(n / 8)
	if err != nil || n%8 == 0 {
		return out, err
	}
	last, err := r.ReadUint(n % 8)
	if err != nil {
		return out, err
	}
	return append(out, byte(last)), nil
}
