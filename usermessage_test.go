package demreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-demreader/internal/demotest"
)

func writeUserMessage(w *demotest.BitWriter, kind uint8, body *demotest.BitWriter) {
	writeMessage(w, SVC_USERMESSAGE).Uint8(kind).Uint(uint64(body.Len()), userMessageLengthBits).Append(body)
}

func TestUserMessages(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	w := demotest.NewBitWriter()
	writeUserMessage(w, 3, demotest.NewBitWriter().Uint8(1).String("hello").Uint8(1))
	writeUserMessage(w, 11, demotest.NewBitWriter().Uint8(0).Uint16(1))
	writeUserMessage(w, 200, demotest.NewBitWriter().Uint8(0xaa))
	writeUserMessage(w, 12, demotest.NewBitWriter().Uint16(1024).Uint16(2).Uint16(1).Uint8(1).Uint8(2).Uint8(3).Uint8(4))

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 4)

	say := messages[0].Data.(*SvcUserMessage)
	assert.Equal(t, "SayText", say.Name)
	assert.Equal(t, &SayText{Client: 1, Text: "hello", WantsToChat: true}, say.Message)

	shake := messages[1].Data.(*SvcUserMessage)
	assert.Equal(t, "Shake", shake.Name)
	assert.Equal(t, &RawUserMessage{Data: []byte{0, 1, 0}}, shake.Message)

	unknown := messages[2].Data.(*SvcUserMessage)
	assert.Equal(t, "Unknown", unknown.Name)
	assert.Equal(t, &RawUserMessage{Data: []byte{0xaa}}, unknown.Message)

	fade := messages[3].Data.(*SvcUserMessage)
	assert.Equal(t, &Fade{Duration: 2, HoldTime: 2, Flags: 1, R: 1, G: 2, B: 3, A: 4}, fade.Message)
}

func TestUserMessagesNotDecodedInSummary(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader(), WithMode(ModeSummary))
	w := demotest.NewBitWriter()
	writeUserMessage(w, 3, demotest.NewBitWriter().Uint8(1).String("hi").Uint8(0))

	messages := decodeMessages(t, demo, w)
	require.Len(t, messages, 1)
	m := messages[0].Data.(*SvcUserMessage)
	assert.Equal(t, "SayText", m.Name)
	assert.Nil(t, m.Message)
}

func TestUserMessageDecoders(t *testing.T) {
	demo := headerOnly(t, demotest.DefaultHeader())
	tests := []struct {
		name string
		body *demotest.BitWriter
		want UserMessage
	}{
		{"Geiger", demotest.NewBitWriter().Uint8(9), &Geiger{Range: 9}},
		{"HudText", demotest.NewBitWriter().String("GAMESAVED"), &HudText{Text: "GAMESAVED"}},
		{"TextMsg", demotest.NewBitWriter().Uint8(2).String("a").String("").String("").String("").String(""),
			&TextMsg{Destination: 2, Params: [5]string{"a"}}},
		{"Rumble", demotest.NewBitWriter().Uint8(0xff).Uint8(50).Uint8(1), &Rumble{Index: -1, Data: 0.5, Flags: 1}},
		{"Battery", demotest.NewBitWriter().Uint16(300), &Battery{Count: 300}},
		{"CloseCaption", demotest.NewBitWriter().String("#Portal.GLaDOS").Uint16(25).Uint8(2),
			&CloseCaption{TokenName: "#Portal.GLaDOS", Duration: 2.5, Flags: 2}},
		{"KeyHintText", demotest.NewBitWriter().Uint8(1).String("#hint"), &KeyHintText{Count: 1, Text: "#hint"}},
		{"AchievementEvent", demotest.NewBitWriter().Int32(42), &AchievementEvent{AchievementID: 42}},
		{"KillCam", demotest.NewBitWriter().Uint8(1).Uint8(2).Uint8(3).Uint8(4), &KillCam{SpecMode: 1, Target1: 2, Target2: 3, Unknown: 4}},
		{"MPTauntEarned", demotest.NewBitWriter().String("wave").Bool(true), &MPTauntEarned{TauntName: "wave", AwardSilently: true}},
		{"ScoreboardTempUpdate", demotest.NewBitWriter().Int32(4).Int32(900), &ScoreboardTempUpdate{NumPortals: 4, TimeTaken: 900}},
		{"VGUIMenu", demotest.NewBitWriter().String("info").Uint8(1).Uint8(1).String("title").String("Portal"),
			&VGUIMenu{Message: "info", Show: true, Keys: map[string]string{"title": "Portal"}}},
		{"GameTitle", demotest.NewBitWriter().Uint8(5), &RawUserMessage{Data: []byte{5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := demo.readUserMessage(reader(tt.body), tt.name)
			assert.Equal(t, tt.want, got)
		})
	}
}
