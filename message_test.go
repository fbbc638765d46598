package demreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-demreader/internal/demotest"
)

func TestUnknownMessageThenKnown(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	w.Uint(40, 6).Uint(16, unknownMessageLengthBits).Uint(0xffff, 16)
	writeMessage(w, NET_TICK).Int32(500).Uint16(1500).Uint16(20)

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 2)

	assert.Equal(t, NET_SVC_TYPE(40), messages[0].Type)
	assert.Equal(t, &UnknownMessage{Tag: 40, DataBits: 16}, messages[0].Data)
	assert.Equal(t, uint(6+20+16), messages[0].Bits)

	tick, ok := messages[1].Data.(*NetTick)
	require.True(t, ok)
	assert.Equal(t, int32(500), tick.Tick)
	assert.InDelta(t, 0.0002, tick.HostFrameTimeStdDev, 1e-7)
	assert.Equal(t, messages[0].Offset+messages[0].Bits, messages[1].Offset)
}

func TestMessageLoopStopsOnPadding(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := writeMessage(demotest.NewBitWriter(), SVC_SETPAUSE).Bool(true).Uint(0, 6)
	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 1)
	assert.True(t, demo.Context().Paused)
}

func TestPrintAlias(t *testing.T) {
	w := demotest.NewBitWriter()
	writeMessage(w, SVC_PRINT_ALIAS).String("hello")

	h := demotest.DefaultHeader()
	h.DemoProtocol = 4
	messages := decodeMessages(t, headerOnly(t, h), w)
	require.Len(t, messages, 1)
	assert.Equal(t, &SvcPrint{Message: "hello"}, messages[0].Data)

	// demo protocol 3 has no decoder for the tag, so the string is read as a length
	w = demotest.NewBitWriter()
	writeMessage(w, SVC_PRINT_ALIAS).Uint(8, unknownMessageLengthBits).Uint8(0)
	messages = decodeMessages(t, headerOnly(t, demotest.DefaultHeader()), w)
	require.Len(t, messages, 1)
	assert.IsType(t, &UnknownMessage{}, messages[0].Data)
}

func TestNarrowMessageTags(t *testing.T) {
	h := demotest.DefaultHeader()
	h.NetworkProtocol = 14
	w := demotest.NewBitWriter().Uint(uint64(NET_STRINGCMD), 5).String("impulse 101")
	messages := decodeMessages(t, headerOnly(t, h), w)
	require.Len(t, messages, 1)
	assert.Equal(t, &NetStringCmd{Command: "impulse 101"}, messages[0].Data)
}

func TestServerInfoSteampipe(t *testing.T) {
	h := demotest.DefaultHeader()
	h.NetworkProtocol = 24
	demo := headerOnly(t, h)

	md5 := []byte("0123456789abcdef")
	w := demotest.NewBitWriter()
	writeMessage(w, SVC_SERVERINFO).
		Uint16(2001).Uint32(3).Bool(false).Bool(true).Int32(-5).Uint16(120).
		Raw(md5).
		Uint8(0).Uint8(1).Float(0.0166).Uint8('l').
		String("portal2").String("sp_a1_intro1").String("sky_black").String("host").
		Bool(true)

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 1)
	info := messages[0].Data.(*SvcServerInfo)
	assert.Equal(t, uint16(2001), info.NetworkProtocol)
	assert.Equal(t, int32(-5), info.ClientCRC)
	assert.Equal(t, md5, info.MapMD5)
	assert.Zero(t, info.MapCRC)
	assert.Equal(t, "l", info.Platform)
	assert.Equal(t, "sp_a1_intro1", info.MapName)
	assert.True(t, info.HasReplay)
	assert.Same(t, info, demo.Context().ServerInfo)
	assert.Equal(t, float32(0.017), demo.Context().TickInterval())
}

func TestServerInfoPortal5135(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	assert.Equal(t, float32(defaultTickInterval), demo.Context().TickInterval())

	w := demotest.NewBitWriter()
	writeMessage(w, SVC_SERVERINFO).
		Uint16(15).Uint32(1).Bool(false).Bool(false).Int32(0).Uint16(200).
		Uint32(0xdeadbeef).
		Uint8(0).Uint8(1).Float(0.015).Uint8('w').
		String("portal").String("testchmb_a_00").String("sky").String("local")
	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 1)
	info := messages[0].Data.(*SvcServerInfo)
	assert.Equal(t, uint32(0xdeadbeef), info.MapCRC)
	assert.Nil(t, info.MapMD5)
	assert.False(t, info.HasReplay)
}

func TestStringTableMessages(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeMessage(w, SVC_CREATESTRINGTABLE).
		String("soundprecache").Uint16(4096).Uint(2, 13).Uint(16, 20).
		Bool(false).Uint(0, 1).Uint(0xbeef, 16)
	writeMessage(w, SVC_UPDATESTRINGTABLE).
		Uint(0, stringTableIDBits).Bool(true).Uint16(2).Uint(8, 20).Uint8(0xff)
	writeMessage(w, SVC_UPDATESTRINGTABLE).
		Uint(3, stringTableIDBits).Bool(false).Uint(0, 20)

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 3)
	create := messages[0].Data.(*SvcCreateStringTable)
	assert.Equal(t, "soundprecache", create.Name)
	assert.Equal(t, uint32(2), create.NumEntries)
	assert.Equal(t, uint32(16), create.DataBits)

	update := messages[1].Data.(*SvcUpdateStringTable)
	assert.Equal(t, "soundprecache", update.TableName)
	assert.Equal(t, uint16(2), update.ChangedEntries)

	update = messages[2].Data.(*SvcUpdateStringTable)
	assert.Equal(t, "3", update.TableName)
	assert.Equal(t, uint16(1), update.ChangedEntries)
}

func TestPrefetchResolvesSound(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	demo.Context().setStringTables([]*StringTable{{
		Name:    "soundprecache",
		Entries: []StringTableEntry{{Name: "a.wav"}, {Name: "b.wav"}},
	}})
	w := demotest.NewBitWriter()
	writeMessage(w, SVC_PREFETCH).Uint(1, 14)
	writeMessage(w, SVC_PREFETCH).Uint(9, 14)

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 2)
	assert.Equal(t, &SvcPrefetch{SoundIndex: 1, SoundName: "b.wav"}, messages[0].Data)
	assert.Equal(t, &SvcPrefetch{SoundIndex: 9}, messages[1].Data)
}

func TestFixAngle(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeMessage(w, SVC_FIXANGLE).Bool(false).Uint(0, 16).Uint(34588, 16).Uint(0, 16)

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 1)
	fix := messages[0].Data.(*SvcFixAngle)
	assert.False(t, fix.Relative)
	assert.Zero(t, fix.Angle.X)
	assert.InDelta(t, 189.99756, fix.Angle.Y, 1e-4)
	assert.Zero(t, fix.Angle.Z)
}

func TestSoundsAndDecal(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeMessage(w, SVC_SOUNDS).Bool(true).Uint8(10).Uint(0x3ff, 10)
	writeMessage(w, SVC_BSPDECAL).
		Bool(false).Bool(false).Bool(true).
		Bool(true).Bool(false).Bool(false).Uint(3, 14).
		Uint(12, decalIndexBits).
		Bool(true).Uint(7, entityIndexBits).Uint(8, modelIndexBits).
		Bool(true)

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 2)
	assert.Equal(t, &SvcSounds{Reliable: true, Count: 1, DataBits: 10}, messages[0].Data)

	decal := messages[1].Data.(*SvcBspDecal)
	assert.Nil(t, decal.Position.X)
	require.NotNil(t, decal.Position.Z)
	assert.Equal(t, float32(4), *decal.Position.Z)
	assert.Equal(t, uint16(12), decal.DecalTextureIndex)
	require.NotNil(t, decal.EntityIndex)
	assert.Equal(t, uint16(7), *decal.EntityIndex)
	assert.Equal(t, uint16(8), *decal.ModelIndex)
	assert.True(t, decal.LowPriority)
}

func TestSetConVar(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeMessage(w, NET_SETCONVAR).Uint8(2).
		String("sv_cheats").String("1").
		String("host_timescale").String("0.5")

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 1)
	assert.Equal(t, &NetSetConVar{ConVars: []ConVar{
		{Name: "sv_cheats", Value: "1"},
		{Name: "host_timescale", Value: "0.5"},
	}}, messages[0].Data)
}

func TestClassInfo(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeMessage(w, SVC_CLASSINFO).Uint16(2).Bool(false).
		Uint(0, 2).String("CWorld").String("DT_World").
		Uint(1, 2).String("CPlayer").String("DT_Player")

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 1)
	info := messages[0].Data.(*SvcClassInfo)
	assert.Equal(t, []ServerClass{
		{ID: 0, Name: "CWorld", Table: "DT_World"},
		{ID: 1, Name: "CPlayer", Table: "DT_Player"},
	}, info.Classes)
}

func TestTruncatedFixedField(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := writeMessage(demotest.NewBitWriter(), NET_TICK).Uint(1, 10)
	_, err := demo.readMessages(reader(w))
	require.ErrorIs(t, err, ErrBufferExhausted)
}

func TestLengthBeyondBody(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := writeMessage(demotest.NewBitWriter(), SVC_SENDTABLE).Bool(false).Uint16(1000).Uint(0, 8)
	_, err := demo.readMessages(reader(w))
	require.ErrorIs(t, err, ErrBufferExhausted)
}

func TestMessageTrace(t *testing.T) {
	packet := demotest.NewBitWriter()
	writeMessage(packet, NET_NOP)
	writeMessage(packet, SVC_PRINT).String("x")
	demo := loadDemo(t, demotest.NewDemoBuilder(demotest.DefaultHeader()).
		FullUpdate(demotest.Packet, 1, packet).
		Stop(1), WithTrace())
	_, err := demo.Parse()
	require.NoError(t, err)

	trace := demo.TraceGet()
	require.Len(t, trace, 2)
	require.Len(t, trace[0].Messages, 2)
	assert.Equal(t, NET_NOP, trace[0].Messages[0].Type)
	assert.Equal(t, SVC_PRINT, trace[0].Messages[1].Type)
	assert.Equal(t, trace[0].Messages[0].OffsetStop, trace[0].Messages[1].OffsetStart)
	assert.Equal(t, uint(6+6+16), trace[0].Messages[1].OffsetStop-trace[0].Messages[0].OffsetStart)
}
