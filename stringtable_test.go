package demreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-demreader/internal/demotest"
)

func entry(w *demotest.BitWriter, name string, data *demotest.BitWriter) {
	w.String(name)
	if data == nil {
		w.Bool(false)
		return
	}
	w.Bool(true).Uint16(uint16(len(data.Bytes()))).Raw(data.Bytes())
}

func playerInfoBytes(name string) *demotest.BitWriter {
	return demotest.NewBitWriter().
		FixedString(name, 32).
		Int32(2).
		FixedString("STEAM_0:1:1234", 33).
		Raw(make([]byte, 3)).
		Uint32(99).
		FixedString("friend", 32).
		Uint8(0).Uint8(1).
		Raw(make([]byte, 2)).
		Uint32(1).Uint32(2).Uint32(3).Uint32(4).
		Uint8(5).
		Raw(make([]byte, 3))
}

func TestReadStringTables(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter().Uint8(5)

	w.String("userinfo").Uint16(2)
	entry(w, "0", playerInfoBytes("Chell\xff"))
	entry(w, "1", demotest.NewBitWriter().Raw([]byte("short")))
	w.Bool(false)

	w.String("lightstyles").Uint16(1)
	entry(w, "0", demotest.NewBitWriter().String("az"))
	w.Bool(false)

	w.String("modelprecache").Uint16(2)
	entry(w, "models/portal.mdl", demotest.NewBitWriter().Uint(1, 2))
	entry(w, "", nil)
	w.Bool(true).Uint16(2).
		String("first").Bool(false).
		String("second").Bool(true).Uint16(4).FixedString("abc", 4)

	w.String("instancebaseline").Uint16(1)
	entry(w, "7", demotest.NewBitWriter().Uint8(0xa1).Uint8(0xb2))
	w.Bool(false)

	w.String("server_query_info").Uint16(1)
	entry(w, "QueryPort", demotest.NewBitWriter().Int32(27015))
	w.Bool(false)

	body, err := demo.readStringTables(reader(w))
	require.NoError(t, err)
	require.Len(t, body.Tables, 5)

	userinfo := body.Tables[0]
	player, ok := userinfo.Entries[0].Data.(*PlayerInfo)
	require.True(t, ok)
	assert.Equal(t, "Chell_", player.Name.String)
	assert.Equal(t, []byte("Chell\xff"), player.Name.Byte)
	assert.Equal(t, int32(2), player.UserID)
	assert.Equal(t, "STEAM_0:1:1234", player.GUID)
	assert.Equal(t, uint32(99), player.FriendsID)
	assert.Equal(t, "friend", player.FriendsName.String)
	assert.False(t, player.FakePlayer)
	assert.True(t, player.IsHLTV)
	assert.Equal(t, [4]uint32{1, 2, 3, 4}, player.CustomFiles)
	assert.Equal(t, uint8(5), player.FilesDownloaded)
	assert.Equal(t, &RawEntryData{Data: []byte("short")}, userinfo.Entries[1].Data)

	assert.Equal(t, &LightStyle{Values: []int{0, 550}}, body.Tables[1].Entries[0].Data)

	precache := body.Tables[2]
	assert.Equal(t, &PrecacheData{Flags: PRECACHE_FATAL_IF_MISSING}, precache.Entries[0].Data)
	assert.Nil(t, precache.Entries[1].Data)
	require.Len(t, precache.Classes, 2)
	assert.Nil(t, precache.Classes[0].Data)
	require.NotNil(t, precache.Classes[1].Data)
	assert.Equal(t, "abc", *precache.Classes[1].Data)

	assert.Equal(t, &InstanceBaseline{ClassID: 7, Data: []byte{0xa1, 0xb2}}, body.Tables[3].Entries[0].Data)
	assert.Equal(t, &QueryPort{Port: 27015}, body.Tables[4].Entries[0].Data)

	demo.ctx.setStringTables(body.Tables)
	_, ok = demo.Context().StringTable("modelprecache")
	assert.True(t, ok)
	assert.Contains(t, demo.ctx.baselines, 7)
}

func TestReadStringTablesTruncated(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter().Uint8(1).String("downloadables").Uint16(3)
	entry(w, "a", nil)
	_, err := demo.readStringTables(reader(w))
	require.ErrorIs(t, err, ErrBufferExhausted)
}

func TestReaderStringNew(t *testing.T) {
	rs := ReaderStringNew([]byte("abc\x00def"))
	assert.Equal(t, "abc", rs.String)
	assert.Equal(t, []byte("abc"), rs.Byte)

	rs = ReaderStringNew([]byte("Chell\xff\x00"))
	assert.Equal(t, "Chell_", rs.String)
	assert.Equal(t, []byte("Chell\xff"), rs.Byte)
}
