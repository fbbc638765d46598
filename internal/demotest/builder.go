package demotest

// Packet kinds, mirrored here so the builder does not import the package it tests.
const (
	SignOn       uint8 = 1
	Packet       uint8 = 2
	SyncTick     uint8 = 3
	ConsoleCmd   uint8 = 4
	UserCmd      uint8 = 5
	DataTables   uint8 = 6
	Stop         uint8 = 7
	StringTables uint8 = 8
)

const cmdInfoBytes = 4 + 6*12

type Header struct {
	Magic           string
	DemoProtocol    int32
	NetworkProtocol int32
	ServerName      string
	ClientName      string
	MapName         string
	GameDirectory   string
	PlaybackTime    float32
	PlaybackTicks   int32
	PlaybackFrames  int32
	SignOnLength    int32
}

// DefaultHeader is a Portal 5135 header.
func DefaultHeader() Header {
	return Header{
		Magic:           "HL2DEMO",
		DemoProtocol:    3,
		NetworkProtocol: 15,
		ServerName:      "localhost:27015",
		ClientName:      "chell",
		MapName:         "testchmb_a_00",
		GameDirectory:   "portal",
		PlaybackTime:    1.5,
		PlaybackTicks:   100,
		PlaybackFrames:  98,
		SignOnLength:    4096,
	}
}

func (h Header) write(w *BitWriter) {
	w.FixedString(h.Magic, 8).
		Int32(h.DemoProtocol).
		Int32(h.NetworkProtocol).
		FixedString(h.ServerName, 260).
		FixedString(h.ClientName, 260).
		FixedString(h.MapName, 260).
		FixedString(h.GameDirectory, 260).
		Float(h.PlaybackTime).
		Int32(h.PlaybackTicks).
		Int32(h.PlaybackFrames).
		Int32(h.SignOnLength)
}

// DemoBuilder writes a header followed by packets. Bodies are written byte aligned,
// as the engine does.
type DemoBuilder struct {
	w *BitWriter
}

func NewDemoBuilder(h Header) *DemoBuilder {
	b := &DemoBuilder{w: NewBitWriter()}
	h.write(b.w)
	return b
}

func (b *DemoBuilder) prefix(kind uint8, tick int32) {
	b.w.Uint8(kind).Int32(tick)
}

func (b *DemoBuilder) sized(body *BitWriter) {
	if body == nil {
		body = NewBitWriter()
	}
	b.w.Int32(int32(len(body.Bytes()))).Raw(body.Bytes())
}

// FullUpdate appends a SignOn or Packet packet with a zero CmdInfo and the given
// messages as body.
func (b *DemoBuilder) FullUpdate(kind uint8, tick int32, messages *BitWriter) *DemoBuilder {
	b.prefix(kind, tick)
	b.w.Raw(make([]byte, cmdInfoBytes)).Int32(1).Int32(2)
	b.sized(messages)
	return b
}

func (b *DemoBuilder) SyncTick(tick int32) *DemoBuilder {
	b.prefix(SyncTick, tick)
	return b
}

func (b *DemoBuilder) ConsoleCmd(tick int32, cmd string) *DemoBuilder {
	b.prefix(ConsoleCmd, tick)
	b.sized(NewBitWriter().String(cmd))
	return b
}

func (b *DemoBuilder) UserCmd(tick, cmd int32, body *BitWriter) *DemoBuilder {
	b.prefix(UserCmd, tick)
	b.w.Int32(cmd)
	b.sized(body)
	return b
}

// Sized appends a packet whose body is a 32-bit byte length and the bytes of body,
// the DataTables and StringTables layout.
func (b *DemoBuilder) Sized(kind uint8, tick int32, body *BitWriter) *DemoBuilder {
	b.prefix(kind, tick)
	b.sized(body)
	return b
}

// Stop appends the terminal packet, whose tick is 24 bits wide.
func (b *DemoBuilder) Stop(tick int32) *DemoBuilder {
	b.w.Uint8(Stop).Uint(uint64(tick), 24)
	return b
}

// Raw appends bytes verbatim, for malformed input.
func (b *DemoBuilder) Raw(data []byte) *DemoBuilder {
	b.w.Raw(data)
	return b
}

func (b *DemoBuilder) Bytes() []byte {
	return b.w.Bytes()
}
