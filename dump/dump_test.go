package dump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	demreader "golang-demreader"
	"golang-demreader/adjust"
	"golang-demreader/internal/demotest"
)

func sampleDocument(t *testing.T, mode demreader.DecodeMode) *Document {
	t.Helper()
	demo, err := demreader.Load(demotest.SampleRun().Bytes(), demreader.WithMode(mode))
	require.NoError(t, err)
	var packets []*demreader.Packet
	timing, err := adjust.Run(demo, zerolog.Nop(), func(p *demreader.Packet) { packets = append(packets, p) })
	require.NoError(t, err)
	return NewDocument("demos/run.dem", demo, timing, packets)
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sampleDocument(t, demreader.ModeFull)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "File Name: run.dem\nPresumed game: Portal 5135\n"))
	assert.Contains(t, out, "Map Name: testchmb_a_00\n")
	assert.Contains(t, out, "Measured Ticks: 31\n")
	assert.Contains(t, out, "Adjusted Ticks: 15 (6-21)\n")
	assert.Contains(t, out, "[0] SIGNON (1)\n\tCmdInfo:\n\t\tFlags: None\n\t\tViewOrigin: 0 0 0\n")
	assert.Contains(t, out, "\tNetTick (")
	assert.Contains(t, out, "\t\tHostFrameTime: 0.015\n")
	assert.Contains(t, out, "\t\tMessage: Portal\n")
	assert.Contains(t, out, "[5] PACKET (2)\n")
	assert.Contains(t, out, "\t\tAngle: 0 189.99756 0\n")
	assert.Contains(t, out, "[20] CONSOLECMD (4)\n")
	assert.Contains(t, out, "\tCommand: startneurotoxins 99999\n")
	assert.Contains(t, out, "\t\t\tName: DT_Player\n")
	assert.Contains(t, out, "[30] STOP (7)\n")
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, sampleDocument(t, demreader.ModeSummary)))
	assert.Equal(t, `File Stamp: HL2DEMO
Demo Protocol: 3
Network Protocol: 15
Server Name: localhost:27015
Client Name: chell
Map Name: testchmb_a_00
Game Directory: portal
Playback Time: 1.500
Playback Ticks: 100
Playback Frames: 98
Sign On Length: 4096

Measured Ticks: 31
Measured Time: 0.465
Adjusted Ticks: 15 (6-21)
Adjusted Time: 0.225
`, buf.String())
}

func TestFlattenedClasses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FlattenedClasses(&buf, sampleDocument(t, demreader.ModeFull)))
	assert.Equal(t, "CPlayer (0) DT_Player\n\t0 DT_Player.m_iHealth Int Unsigned\n", buf.String())

	buf.Reset()
	require.NoError(t, FlattenedClasses(&buf, sampleDocument(t, demreader.ModeSkip)))
	assert.Equal(t, "no data tables\n", buf.String())
}

func TestVerifyIsModeIndependent(t *testing.T) {
	var full, skip bytes.Buffer
	require.NoError(t, Verify(&full, sampleDocument(t, demreader.ModeFull)))
	require.NoError(t, Verify(&skip, sampleDocument(t, demreader.ModeSkip)))
	assert.Equal(t, full.String(), skip.String())
	assert.Contains(t, full.String(), "[0] SignOn @1072\n")
	assert.True(t, strings.HasSuffix(full.String(), "\nMeasured Ticks: 31\n"))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleDocument(t, demreader.ModeFull)))

	var got struct {
		File   string `json:"file"`
		Game   string `json:"game"`
		Header struct {
			MapName string `json:"map_name"`
		} `json:"header"`
		Timing struct {
			StartTick int32 `json:"start_tick"`
		} `json:"timing"`
		Packets []struct {
			Kind int   `json:"kind"`
			Tick int32 `json:"tick"`
		} `json:"packets"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "demos/run.dem", got.File)
	assert.Equal(t, "Portal 5135", got.Game)
	assert.Equal(t, "testchmb_a_00", got.Header.MapName)
	assert.Equal(t, int32(6), got.Timing.StartTick)
	require.Len(t, got.Packets, 6)
	assert.Equal(t, 7, got.Packets[5].Kind)
	assert.Equal(t, int32(30), got.Packets[5].Tick)
}

func TestValueRendering(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	x := float32(1.5)
	p.value(0, "Optional", demreader.OptionalVector{X: &x})
	p.value(0, "Keys", map[string]string{"b": "2", "a": "1"})
	p.value(0, "Empty", []int{})
	p.value(0, "Data", []byte{0xde, 0xad})
	p.value(0, "Buttons", (*demreader.BUTTON)(nil))
	assert.Equal(t, "Optional:\n\tX: 1.5\n\tY: Null\n\tZ: Null\nKeys:\n\ta: 1\n\tb: 2\nEmpty: []\nData: de ad\nButtons: Null\n", buf.String())
}
