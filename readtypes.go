package demreader

import "math"

const (
	coordIntegerBits         = 14
	coordIntegerBitsMP       = 11
	coordFractionalBits      = 5
	coordFractionalBitsLowMP = 3
	coordResolution          = 1.0 / (1 << coordFractionalBits)
	coordResolutionLowMP     = 1.0 / (1 << coordFractionalBitsLowMP)

	normalFractionalBits = 11
	normalResolution     = 1.0 / ((1 << normalFractionalBits) - 1)

	fieldIndexEnd = 0xfff
)

// ReadOptional reads a presence bit and, when it is set, the value itself.
func ReadOptional[T any](r *BitReader, read func(*BitReader) (T, error)) (*T, error) {
	var out *T
	err := r.atomic(func() error {
		ok, err := r.ReadBool()
		if err != nil || !ok {
			return err
		}
		v, err := read(r)
		if err != nil {
			return err
		}
		out = &v
		return nil
	})
	return out, err
}

func uintReader(n uint) func(*BitReader) (uint64, error) {
	return func(r *BitReader) (uint64, error) { return r.ReadUint(n) }
}

func intReader(n uint) func(*BitReader) (int64, error) {
	return func(r *BitReader) (int64, error) { return r.ReadSignedInt(n) }
}

func floatReader(r *BitReader) (float32, error) {
	return r.ReadFloat()
}

// ReadBitCoord reads a world coordinate: integer and fraction presence bits, a sign,
// a 14-bit integer part stored minus one and a 5-bit fraction in 1/32 steps.
func (r *BitReader) ReadBitCoord() (float32, error) {
	var value float32
	err := r.atomic(func() error {
		hasInt, err := r.ReadBool()
		if err != nil {
			return err
		}
		hasFrac, err := r.ReadBool()
		if err != nil {
			return err
		}
		if !hasInt && !hasFrac {
			return nil
		}
		negative, err := r.ReadBool()
		if err != nil {
			return err
		}
		var intVal, fracVal uint64
		if hasInt {
			if intVal, err = r.ReadUint(coordIntegerBits); err != nil {
				return err
			}
			intVal++
		}
		if hasFrac {
			if fracVal, err = r.ReadUint(coordFractionalBits); err != nil {
				return err
			}
		}
		value = float32(intVal) + float32(fracVal)*coordResolution
		if negative {
			value = -value
		}
		return nil
	})
	return value, err
}

// ReadBitCoordMP is the multiplayer coordinate. An in-bounds bit picks an 11 or 14 bit
// integer part; integral values carry no fraction and low precision uses 1/8 steps.
func (r *BitReader) ReadBitCoordMP(integral, lowPrecision bool) (float32, error) {
	var value float32
	err := r.atomic(func() error {
		inBounds, err := r.ReadBool()
		if err != nil {
			return err
		}
		intBits := uint(coordIntegerBits)
		if inBounds {
			intBits = coordIntegerBitsMP
		}
		hasInt, err := r.ReadBool()
		if err != nil {
			return err
		}
		var negative bool
		var intVal uint64
		if integral {
			if hasInt {
				if negative, err = r.ReadBool(); err != nil {
					return err
				}
				if intVal, err = r.ReadUint(intBits); err != nil {
					return err
				}
				value = float32(intVal + 1)
			}
		} else {
			if negative, err = r.ReadBool(); err != nil {
				return err
			}
			if hasInt {
				if intVal, err = r.ReadUint(intBits); err != nil {
					return err
				}
				intVal++
			}
			fracBits, resolution := uint(coordFractionalBits), float32(coordResolution)
			if lowPrecision {
				fracBits, resolution = coordFractionalBitsLowMP, coordResolutionLowMP
			}
			fracVal, err := r.ReadUint(fracBits)
			if err != nil {
				return err
			}
			value = float32(intVal) + float32(fracVal)*resolution
		}
		if negative {
			value = -value
		}
		return nil
	})
	return value, err
}

// ReadBitAngle reads n bits as a fraction of a full turn.
func (r *BitReader) ReadBitAngle(n uint) (float32, error) {
	if n > 32 {
		return 0, r.fail("ReadBitAngle", errBitWidth)
	}
	v, err := r.ReadUint(n)
	if err != nil {
		return 0, err
	}
	return float32(v) * (360.0 / float32(uint64(1)<<n)), nil
}

func (r *BitReader) ReadBitNormal() (float32, error) {
	var value float32
	err := r.atomic(func() error {
		negative, err := r.ReadBool()
		if err != nil {
			return err
		}
		frac, err := r.ReadUint(normalFractionalBits)
		if err != nil {
			return err
		}
		value = float32(frac) * normalResolution
		if negative {
			value = -value
		}
		return nil
	})
	return value, err
}

// ReadBitVec3Normal reads a unit vector stored as two optional normal components and
// the sign of the third.
func (r *BitReader) ReadBitVec3Normal() (Vector, error) {
	var v Vector
	err := r.atomic(func() error {
		hasX, err := r.ReadBool()
		if err != nil {
			return err
		}
		hasY, err := r.ReadBool()
		if err != nil {
			return err
		}
		if hasX {
			if v.X, err = r.ReadBitNormal(); err != nil {
				return err
			}
		}
		if hasY {
			if v.Y, err = r.ReadBitNormal(); err != nil {
				return err
			}
		}
		negZ, err := r.ReadBool()
		if err != nil {
			return err
		}
		v.Z = thirdComponent(v.X, v.Y, negZ)
		return nil
	})
	return v, err
}

func thirdComponent(x, y float32, negative bool) float32 {
	var z float32
	if sum := x*x + y*y; sum < 1 {
		z = float32(math.Sqrt(float64(1 - sum)))
	}
	if negative {
		z = -z
	}
	return z
}

// ReadUBitVar reads a 2-bit selector followed by 4, 8, 12 or 32 bits.
func (r *BitReader) ReadUBitVar() (uint32, error) {
	var v uint64
	err := r.atomic(func() error {
		sel, err := r.ReadUint(2)
		if err != nil {
			return err
		}
		v, err = r.ReadUint([4]uint{4, 8, 12, 32}[sel])
		return err
	})
	return uint32(v), err
}

// ReadUBitInt reads 4 low bits, a 2-bit selector and then 0, 4, 8 or 28 high bits.
func (r *BitReader) ReadUBitInt() (uint32, error) {
	var v uint64
	err := r.atomic(func() error {
		low, err := r.ReadUint(4)
		if err != nil {
			return err
		}
		sel, err := r.ReadUint(2)
		if err != nil {
			return err
		}
		v = low
		if sel == 0 {
			return nil
		}
		high, err := r.ReadUint([4]uint{0, 4, 8, 28}[sel])
		if err != nil {
			return err
		}
		v |= high << 4
		return nil
	})
	return uint32(v), err
}

// ReadFieldIndex returns the next changed property index after last, or -1 once the
// end marker is read.
func (r *BitReader) ReadFieldIndex(last int, newWay bool) (int, error) {
	index := -1
	err := r.atomic(func() error {
		if newWay {
			next, err := r.ReadBool()
			if err != nil {
				return err
			}
			if next {
				index = last + 1
				return nil
			}
		}
		var ret uint64
		short := false
		if newWay {
			var err error
			if short, err = r.ReadBool(); err != nil {
				return err
			}
		}
		if short {
			v, err := r.ReadUint(3)
			if err != nil {
				return err
			}
			ret = v
		} else {
			v, err := r.ReadUint(5)
			if err != nil {
				return err
			}
			sel, err := r.ReadUint(2)
			if err != nil {
				return err
			}
			ret = v
			if sel != 0 {
				high, err := r.ReadUint([4]uint{0, 2, 4, 7}[sel])
				if err != nil {
					return err
				}
				ret |= high << 5
			}
		}
		if ret == fieldIndexEnd {
			index = -1
			return nil
		}
		index = last + 1 + int(ret)
		return nil
	})
	return index, err
}

// ReadVectorCoord reads three presence bits followed by the present coordinates.
func (r *BitReader) ReadVectorCoord() (OptionalVector, error) {
	var v OptionalVector
	err := r.atomic(func() error {
		var present [3]bool
		for i := range present {
			b, err := r.ReadBool()
			if err != nil {
				return err
			}
			present[i] = b
		}
		dst := [3]**float32{&v.X, &v.Y, &v.Z}
		for i, ok := range present {
			if !ok {
				continue
			}
			c, err := r.ReadBitCoord()
			if err != nil {
				return err
			}
			*dst[i] = &c
		}
		return nil
	})
	return v, err
}

func (r *BitReader) ReadVector() (Vector, error) {
	var v Vector
	err := r.atomic(func() error {
		var err error
		if v.X, err = r.ReadFloat(); err != nil {
			return err
		}
		if v.Y, err = r.ReadFloat(); err != nil {
			return err
		}
		v.Z, err = r.ReadFloat()
		return err
	})
	return v, err
}

// ReadAngles reads three angles of n bits each.
func (r *BitReader) ReadAngles(n uint) (Vector, error) {
	var v Vector
	err := r.atomic(func() error {
		var err error
		if v.X, err = r.ReadBitAngle(n); err != nil {
			return err
		}
		if v.Y, err = r.ReadBitAngle(n); err != nil {
			return err
		}
		v.Z, err = r.ReadBitAngle(n)
		return err
	})
	return v, err
}
