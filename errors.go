package demreader

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is returned when the file does not start with the HL2DEMO stamp.
	ErrMalformedHeader = errors.New("demreader: malformed header")
	// ErrBufferExhausted is returned when a read would cross the end of the buffer or
	// of the length-bounded region being decoded.
	ErrBufferExhausted = errors.New("demreader: trying to read beyond buffer")

	errBitWidth = errors.New("demreader: bit width out of range")
)

// DecodeError wraps a low level error with the bit offset it happened at.
type DecodeError struct {
	Op     string
	Offset uint
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s at byte %d (bit %d): %v", e.Op, e.Offset/8, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ByteOffset is the offset in the input, rounded down to the byte.
func (e *DecodeError) ByteOffset() uint {
	return e.Offset / 8
}

// UnknownVariantError is returned for a type tag that has no decoder. Only packet
// kinds and send prop types produce it as an error; unknown message tags become
// UnknownMessage values instead.
type UnknownVariantError struct {
	Layer string
	Tag   int
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("demreader: unknown %s %d", e.Layer, e.Tag)
}

// SchemaError reports a class whose tables reference a table that was never declared.
type SchemaError struct {
	Class string
	Table string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("demreader: class %q references undeclared table %q", e.Class, e.Table)
}

// Offset returns the byte offset attached to err, if any.
func Offset(err error) (uint, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.ByteOffset(), true
	}
	return 0, false
}
