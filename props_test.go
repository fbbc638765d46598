package demreader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-demreader/internal/demotest"
)

// playerContext flattens DT_Player to [m_flSpeed, m_iHealth, m_szName].
func playerContext(t *testing.T, demoProtocol int32) *ProtocolContext {
	t.Helper()
	ctx := NewProtocolContext(Header{DemoProtocol: 3, NetworkProtocol: 15})
	body, err := readDataTables(reader(writeDataTables(demotest.NewBitWriter(), testSchemaTables, testSchemaClasses)), ctx)
	require.NoError(t, err)
	ctx.setTables(body.Tables, body.Classes)
	ctx.Header.DemoProtocol = demoProtocol
	return ctx
}

func writeFieldIndex(w *demotest.BitWriter, delta uint64) *demotest.BitWriter {
	return w.Uint(delta, 5).Uint(0, 2)
}

func writePropsEnd(w *demotest.BitWriter) *demotest.BitWriter {
	return w.Uint(31, 5).Uint(3, 2).Uint(127, 7)
}

func TestReadProps(t *testing.T) {
	ctx := playerContext(t, 3)
	props, err := ctx.FlattenedClass(0)
	require.NoError(t, err)
	require.Equal(t, []string{"m_flSpeed", "m_iHealth", "m_szName"}, propNames(props))

	w := demotest.NewBitWriter()
	writeFieldIndex(w, 0).Float(2.5)
	writeFieldIndex(w, 1).Uint(3, stringPropLengthBits).Raw([]byte("abc"))
	writePropsEnd(w)

	values, err := ReadProps(reader(w), props, false)
	require.NoError(t, err)
	assert.Equal(t, []PropValue{
		{Index: 0, Name: "m_flSpeed", Value: float32(2.5)},
		{Index: 2, Name: "m_szName", Value: "abc"},
	}, values)
}

func TestReadPropsNewWay(t *testing.T) {
	ctx := playerContext(t, 4)
	props, err := ctx.FlattenedClass(0)
	require.NoError(t, err)

	// new way flag, then increment-by-one, then the end marker in long form
	w := demotest.NewBitWriter().Bool(true).
		Bool(true).Float(1).
		Bool(true).Uint(200, 8).
		Bool(false).Bool(false).Uint(31, 5).Uint(3, 2).Uint(127, 7)
	values, err := ReadProps(reader(w), props, true)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, int64(200), values[1].Value)
}

func TestReadPropsIndexOutOfRange(t *testing.T) {
	ctx := playerContext(t, 3)
	props, err := ctx.FlattenedClass(0)
	require.NoError(t, err)
	w := writeFieldIndex(demotest.NewBitWriter(), 5)
	_, err = ReadProps(reader(w), props, false)
	var uv *UnknownVariantError
	assert.ErrorAs(t, err, &uv)
}

func TestDecodeFloat(t *testing.T) {
	tests := []struct {
		name string
		prop SendProp
		w    *demotest.BitWriter
		want float32
	}{
		{"scaled", SendProp{Type: DPT_FLOAT, Low: 0, High: 10, NumBits: 4}, demotest.NewBitWriter().Uint(15, 4), 10},
		{"scaled low", SendProp{Type: DPT_FLOAT, Low: -5, High: 5, NumBits: 4}, demotest.NewBitWriter().Uint(0, 4), -5},
		{"no bits", SendProp{Type: DPT_FLOAT, Low: 3}, demotest.NewBitWriter(), 3},
		{"coord", SendProp{Type: DPT_FLOAT, Flags: SPROP_COORD}, demotest.NewBitWriter().Bool(true).Bool(false).Bool(false).Uint(0, 14), 1},
		{"noscale", SendProp{Type: DPT_FLOAT, Flags: SPROP_NOSCALE}, demotest.NewBitWriter().Float(0.1234), 0.1234},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := decodeFloat(reader(tt.w), &tt.prop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestDecodeIntSigned(t *testing.T) {
	v, err := decodeInt(reader(demotest.NewBitWriter().Uint(0x1f, 5)), &SendProp{Type: DPT_INT, NumBits: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestDecodeNormalVector(t *testing.T) {
	p := &SendProp{Type: DPT_VECTOR, Flags: SPROP_NORMAL}
	w := demotest.NewBitWriter().
		Bool(false).Uint(0, normalFractionalBits).
		Bool(false).Uint(0, normalFractionalBits).
		Bool(true)
	v, err := decodeVector(reader(w), p)
	require.NoError(t, err)
	assert.Equal(t, float32(-1), v.Z)
}

func TestDecodeArray(t *testing.T) {
	element := &SendProp{Type: DPT_INT, Flags: SPROP_UNSIGNED, NumBits: 4}
	array := &SendProp{Type: DPT_ARRAY, NumElements: 4}
	w := demotest.NewBitWriter().Uint(2, 3).Uint(7, 4).Uint(9, 4)
	v, err := decodeProp(reader(w), array, element)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(7), int64(9)}, v)

	_, err = decodeProp(reader(w), array, nil)
	assert.ErrorIs(t, err, errNoArrayElement)
}

func packetEntities(updated uint64, delta bool, body *demotest.BitWriter) *demotest.BitWriter {
	w := writeMessage(demotest.NewBitWriter(), SVC_PACKETENTITIES).Uint(64, entityIndexBits).Bool(delta)
	if delta {
		w.Int32(1)
	}
	return w.Bool(false).Uint(updated, entityIndexBits).Uint(uint64(body.Len()), 20).Bool(false).Append(body)
}

func TestPacketEntities(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	ctx := playerContext(t, 3)
	ctx.Header = demo.ctx.Header
	demo.ctx = ctx

	// entity 3 enters with class 0 and serial 5
	enter := demotest.NewBitWriter().Uint(0, 2).Uint(3, 4).Bool(false).Bool(true).Uint(0, 1).Uint(5, entitySerialBits)
	writeFieldIndex(enter, 0).Float(2.5)
	writeFieldIndex(enter, 0).Uint(100, 8)
	writePropsEnd(enter)

	messages := decodeMessages(t, demo, packetEntities(1, false, enter))
	require.Len(t, messages, 1)
	m := messages[0].Data.(*SvcPacketEntities)
	require.Len(t, m.Updates, 1)
	assert.Equal(t, EntityUpdate{
		Kind: ENTITY_ENTER_PVS, Index: 3, ClassID: 0, Serial: 5,
		Props: []PropValue{
			{Index: 0, Name: "m_flSpeed", Value: float32(2.5)},
			{Index: 1, Name: "m_iHealth", Value: int64(100)},
		},
	}, m.Updates[0])

	// a delta for entity 3, then an explicit delete of it
	update := demotest.NewBitWriter().Uint(0, 2).Uint(3, 4).Bool(false).Bool(false)
	writeFieldIndex(update, 2).Uint(2, stringPropLengthBits).Raw([]byte("hi"))
	writePropsEnd(update)
	update.Bool(true).Uint(3, maxEdictBits).Bool(false)

	messages = decodeMessages(t, demo, packetEntities(1, true, update))
	m = messages[0].Data.(*SvcPacketEntities)
	assert.Equal(t, int32(1), m.DeltaFrom)
	require.Len(t, m.Updates, 2)
	assert.Equal(t, ENTITY_DELTA, m.Updates[0].Kind)
	assert.Equal(t, []PropValue{{Index: 2, Name: "m_szName", Value: "hi"}}, m.Updates[0].Props)
	assert.Equal(t, EntityUpdate{Kind: ENTITY_DELETE, Index: 3, ClassID: 0}, m.Updates[1])
	assert.NotContains(t, ctx.entityClasses, 3)
}

func TestPacketEntitiesUnknownEntity(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	ctx := playerContext(t, 3)
	ctx.Header = demo.ctx.Header
	demo.ctx = ctx

	update := demotest.NewBitWriter().Uint(0, 2).Uint(8, 4).Bool(false).Bool(false)
	w := packetEntities(1, false, update)
	writeMessage(w, SVC_PRINT).String("after")

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 2)
	m := messages[0].Data.(*SvcPacketEntities)
	assert.Empty(t, m.Updates)
	assert.Equal(t, &SvcPrint{Message: "after"}, messages[1].Data)
}

func TestPacketEntitiesWithoutSchema(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	body := demotest.NewBitWriter().Uint(math.MaxUint16, 16)
	messages := decodeMessages(t, demo, packetEntities(3, false, body))
	m := messages[0].Data.(*SvcPacketEntities)
	assert.Equal(t, uint16(3), m.UpdatedEntries)
	assert.Equal(t, uint32(16), m.DataBits)
	assert.Nil(t, m.Updates)
}

func TestBaseline(t *testing.T) {
	ctx := playerContext(t, 3)
	blob := demotest.NewBitWriter()
	writeFieldIndex(blob, 1).Uint(50, 8)
	writePropsEnd(blob)
	ctx.setStringTables([]*StringTable{{
		Name:    "instancebaseline",
		Entries: []StringTableEntry{{Name: "0", Data: &InstanceBaseline{ClassID: 0, Data: blob.Bytes()}}},
	}})

	values, err := ctx.Baseline(0)
	require.NoError(t, err)
	assert.Equal(t, []PropValue{{Index: 1, Name: "m_iHealth", Value: int64(50)}}, values)

	_, err = ctx.Baseline(4)
	var uv *UnknownVariantError
	assert.ErrorAs(t, err, &uv)
}
