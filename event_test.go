package demreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-demreader/internal/demotest"
)

func writeEventList(w *demotest.BitWriter) {
	desc := demotest.NewBitWriter().
		Uint(5, gameEventIDBits).String("player_death").
		Uint(uint64(EVENT_KEY_LONG), 3).String("userid").
		Uint(uint64(EVENT_KEY_BOOL), 3).String("headshot").
		Uint(uint64(EVENT_KEY_STRING), 3).String("weapon").
		Uint(uint64(EVENT_KEY_NONE), 3)
	writeMessage(w, SVC_GAMEEVENTLIST).Uint(1, 9).Uint(uint64(desc.Len()), 20).Append(desc)
}

func writeEvent(w *demotest.BitWriter, ev *demotest.BitWriter) {
	writeMessage(w, SVC_GAMEEVENT).Uint(uint64(ev.Len()), gameEventLengthBits).Append(ev)
}

func TestGameEvents(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeEventList(w)
	writeEvent(w, demotest.NewBitWriter().Uint(5, gameEventIDBits).Int32(7).Bool(true).String("portalgun"))
	writeEvent(w, demotest.NewBitWriter().Uint(77, gameEventIDBits))

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 3)

	list := messages[0].Data.(*SvcGameEventList)
	require.Len(t, list.Descriptors, 1)
	assert.Equal(t, &GameEventDescriptor{ID: 5, Name: "player_death", Keys: []GameEventKeyDesc{
		{Name: "userid", Type: EVENT_KEY_LONG},
		{Name: "headshot", Type: EVENT_KEY_BOOL},
		{Name: "weapon", Type: EVENT_KEY_STRING},
	}}, list.Descriptors[0])
	assert.Contains(t, demo.Context().EventDescriptors, 5)

	event := messages[1].Data.(*SvcGameEvent).Event
	require.NotNil(t, event)
	assert.Equal(t, "player_death", event.Name)
	names := make([]string, 0, len(event.Keys))
	for _, k := range event.Keys {
		names = append(names, k.Name)
	}
	assert.Equal(t, []string{"userid", "headshot", "weapon"}, names)

	v, ok := event.Get("userid")
	require.True(t, ok)
	assert.Equal(t, int32(7), v)
	_, ok = event.Get("attacker")
	assert.False(t, ok)

	var death struct {
		UserID   int    `event:"userid"`
		Headshot bool   `event:"headshot"`
		Weapon   string `event:"weapon"`
	}
	require.NoError(t, event.Decode(&death))
	assert.Equal(t, 7, death.UserID)
	assert.True(t, death.Headshot)
	assert.Equal(t, "portalgun", death.Weapon)

	unknown := messages[2].Data.(*SvcGameEvent).Event
	assert.Equal(t, &GameEvent{ID: 77}, unknown)
}

func TestGameEventTruncated(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeEventList(w)
	writeEvent(w, demotest.NewBitWriter().Uint(5, gameEventIDBits).Uint(7, 16))
	writeMessage(w, SVC_PRINT).String("ok")

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 3)
	event := messages[1].Data.(*SvcGameEvent).Event
	require.NotNil(t, event)
	assert.Empty(t, event.Keys)
	assert.Equal(t, &SvcPrint{Message: "ok"}, messages[2].Data)
}

func TestReadGameEventValue(t *testing.T) {
	w := demotest.NewBitWriter().Float(1.25).Int16(-3).Uint8(200).Uint(1<<40, 64)
	r := reader(w)
	for _, tt := range []struct {
		kind EVENT_KEY_TYPE
		want any
	}{
		{EVENT_KEY_FLOAT, float32(1.25)},
		{EVENT_KEY_SHORT, int16(-3)},
		{EVENT_KEY_BYTE, uint8(200)},
		{EVENT_KEY_UINT64, uint64(1 << 40)},
	} {
		v, err := readGameEventValue(r, tt.kind)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v)
	}
	_, err := readGameEventValue(r, EVENT_KEY_NONE)
	var uv *UnknownVariantError
	assert.ErrorAs(t, err, &uv)
}
