package demreader

import (
	"bytes"
	"strings"
)

// ReaderString keeps the raw bytes of a name next to a printable version of it.
// Player names in userinfo entries are not guaranteed to be valid UTF-8.
type ReaderString struct {
	String string `json:"string"`
	Byte   []byte `json:"byte"`
}

// ReaderStringNew cuts b at the first NUL and replaces invalid UTF-8 in the printable form.
func ReaderStringNew(b []byte) ReaderString {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return ReaderString{
		String: strings.ToValidUTF8(string(b), "_"),
		Byte:   b,
	}
}

func (r *BitReader) readReaderString(n uint) (ReaderString, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return ReaderString{}, err
	}
	return ReaderStringNew(b), nil
}
