package demreader

import (
	"bytes"
	"fmt"
)

const (
	// HeaderSize is the size of the fixed preamble in bytes.
	HeaderSize       = 1072
	headerStringBits = 260 * 8
)

var headerMagic = []byte("HL2DEMO\x00")

type Header struct {
	Magic           string  `json:"magic"`
	DemoProtocol    int32   `json:"demo_protocol"`
	NetworkProtocol int32   `json:"network_protocol"`
	ServerName      string  `json:"server_name"`
	ClientName      string  `json:"client_name"`
	MapName         string  `json:"map_name"`
	GameDirectory   string  `json:"game_directory"`
	PlaybackTime    float32 `json:"playback_time"`
	PlaybackTicks   int32   `json:"playback_ticks"`
	PlaybackFrames  int32   `json:"playback_frames"`
	SignOnLength    int32   `json:"sign_on_length"`
}

// ParseHeader decodes the 1072 byte preamble at the start of data.
func ParseHeader(data []byte) (Header, error) {
	return readHeader(NewBitReader(data))
}

func readHeader(r *BitReader) (Header, error) {
	var h Header
	magic, err := r.ReadBytes(uint(len(headerMagic)))
	if err != nil {
		return Header{}, fmt.Errorf("header: %w", err)
	}
	if !bytes.Equal(magic, headerMagic) {
		return Header{}, fmt.Errorf("header: stamp %q: %w", magic, ErrMalformedHeader)
	}
	h.Magic = string(bytes.TrimRight(magic, "\x00"))

	fields := []struct {
		name string
		read func() error
	}{
		{"demo protocol", func() (err error) { h.DemoProtocol, err = r.ReadInt32(); return }},
		{"network protocol", func() (err error) { h.NetworkProtocol, err = r.ReadInt32(); return }},
		{"server name", func() (err error) { h.ServerName, err = r.ReadFixedString(headerStringBits); return }},
		{"client name", func() (err error) { h.ClientName, err = r.ReadFixedString(headerStringBits); return }},
		{"map name", func() (err error) { h.MapName, err = r.ReadFixedString(headerStringBits); return }},
		{"game directory", func() (err error) { h.GameDirectory, err = r.ReadFixedString(headerStringBits); return }},
		{"playback time", func() (err error) { h.PlaybackTime, err = r.ReadFloat(); return }},
		{"playback ticks", func() (err error) { h.PlaybackTicks, err = r.ReadInt32(); return }},
		{"playback frames", func() (err error) { h.PlaybackFrames, err = r.ReadInt32(); return }},
		{"sign on length", func() (err error) { h.SignOnLength, err = r.ReadInt32(); return }},
	}
	for _, f := range fields {
		if err := f.read(); err != nil {
			return Header{}, fmt.Errorf("header: %s: %w", f.name, err)
		}
	}
	return h, nil
}
