package demreader

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/rs/zerolog"
)

// DecodeMode selects how much of each packet body is decoded.
type DecodeMode uint8

const (
	// ModeFull decodes every body.
	ModeFull DecodeMode = iota
	// ModeSummary decodes network messages and console commands only, and stops
	// decoding messages once the demo is paused after an adjust end tick was set.
	ModeSummary
	// ModeSkip keeps packet kinds, ticks and fixed prefixes and skips every body.
	ModeSkip
)

var modeNames = [...]string{"full", "summary", "skip"}

func (m DecodeMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("DecodeMode(%d)", uint8(m))
}

type Option func(*Demo)

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Demo) { d.log = logger }
}

func WithMode(mode DecodeMode) Option {
	return func(d *Demo) { d.mode = mode }
}

// WithTrace records packet and message offsets, see TraceGet.
func WithTrace() Option {
	return func(d *Demo) { d.trace.enabled = true }
}

// Demo decodes one demo file. It is a pull iterator: every ReadPacket call consumes
// exactly one packet.
type Demo struct {
	log  zerolog.Logger
	mode DecodeMode

	file  []byte
	r     *BitReader
	trace traceInfo

	Header Header
	ctx    *ProtocolContext

	tick    int32
	packets int
	done    bool
	err     error
}

// Load parses the header of input and prepares the packet stream.
func Load(input []byte, options ...Option) (*Demo, error) {
	demo := &Demo{log: zerolog.Nop(), file: input}
	for _, o := range options {
		o(demo)
	}
	demo.r = NewBitReader(input)
	header, err := readHeader(demo.r)
	if err != nil {
		return nil, err
	}
	demo.Header = header
	demo.ctx = NewProtocolContext(header)
	demo.log.Debug().
		Int32("demo_protocol", header.DemoProtocol).
		Int32("network_protocol", header.NetworkProtocol).
		Str("game", demo.ctx.Game.String()).
		Str("map", header.MapName).
		Msg("header")
	return demo, nil
}

func (demo *Demo) Context() *ProtocolContext {
	return demo.ctx
}

func (demo *Demo) Mode() DecodeMode {
	return demo.mode
}

// Done reports whether the stop packet has been read.
func (demo *Demo) Done() bool {
	return demo.done
}

// Position is the bit offset of the next packet.
func (demo *Demo) Position() uint {
	return demo.r.Position()
}

// LastTick is the tick of the last packet read.
func (demo *Demo) LastTick() int32 {
	return demo.tick
}

// MeasuredTicks counts ticks from 0 through the last packet.
func (demo *Demo) MeasuredTicks() int32 {
	return demo.tick + 1
}

func (demo *Demo) PacketCount() int {
	return demo.packets
}

// ReadPacket decodes the next packet. It returns io.EOF after the stop packet, and
// keeps returning the first error once one has occurred.
func (demo *Demo) ReadPacket() (*Packet, error) {
	if demo.err != nil {
		return nil, demo.err
	}
	if demo.done {
		return nil, io.EOF
	}
	p, err := demo.readPacket()
	if err != nil {
		demo.err = fmt.Errorf("packet %d: %w", demo.packets, err)
		return nil, demo.err
	}
	return p, nil
}

func (demo *Demo) readPacket() (*Packet, error) {
	r := demo.r
	start := r.Position()
	demo.tracePacketStart(start)

	cmd, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("packet kind: %w", err)
	}
	kind := PACKET_TYPE(cmd)
	var tick int32
	if kind == DEM_STOP {
		v, err := r.ReadUint(24)
		if err != nil {
			return nil, fmt.Errorf("stop tick: %w", err)
		}
		tick = int32(v)
	} else if tick, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("%s tick: %w", kind, err)
	}
	demo.tick = tick

	if demo.log.GetLevel() <= zerolog.DebugLevel {
		demo.log.Debug().Stringer("kind", kind).Int32("tick", tick).Uint("offset", start/8).Msg("packet")
	}
	body, err := demo.readPacketBody(start, kind)
	if err != nil {
		return nil, fmt.Errorf("%s at tick %d: %w", kind, tick, err)
	}
	p := &Packet{Kind: kind, Tick: tick, Offset: start, Body: body}
	demo.packets++
	if kind == DEM_STOP {
		demo.done = true
	}
	demo.tracePacketStop(p)
	return p, nil
}

// Packets adapts ReadPacket to a range-over-func iterator. Iteration ends after the
// stop packet or after yielding the first error.
func (demo *Demo) Packets() iter.Seq2[*Packet, error] {
	return func(yield func(*Packet, error) bool) {
		for {
			p, err := demo.ReadPacket()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(p, err) || err != nil {
				return
			}
		}
	}
}

// Parse reads every remaining packet.
func (demo *Demo) Parse() ([]*Packet, error) {
	var packets []*Packet
	for p, err := range demo.Packets() {
		if err != nil {
			return packets, err
		}
		packets = append(packets, p)
	}
	return packets, nil
}
