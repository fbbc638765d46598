package demreader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"golang-demreader/internal/demotest"
)

// prop type indices in the Portal 5135 type list
const (
	propInt = iota
	propFloat
	propVector
	propVectorXY
	propString
	propArray
	propDataTable
)

type testProp struct {
	kind      uint64
	name      string
	flags     PROP_FLAG
	sub       string
	low, high float32
	bits      uint64
	elements  uint64
}

type testTable struct {
	name  string
	props []testProp
}

func writeDataTables(w *demotest.BitWriter, tables []testTable, classes []ServerClass) *demotest.BitWriter {
	for _, t := range tables {
		w.Bool(true).Bool(false).String(t.name).Uint(uint64(len(t.props)), sendPropCountBits)
		for _, p := range t.props {
			w.Uint(p.kind, 5).String(p.name).Uint(uint64(p.flags), 16)
			switch {
			case p.kind == propDataTable || p.flags.Has(SPROP_EXCLUDE):
				w.String(p.sub)
			case p.kind == propArray:
				w.Uint(p.elements, sendPropElementsBits)
			default:
				w.Float(p.low).Float(p.high).Uint(p.bits, 7)
			}
		}
	}
	w.Bool(false).Uint16(uint16(len(classes)))
	for _, c := range classes {
		w.Uint16(uint16(c.ID)).String(c.Name).String(c.Table)
	}
	return w
}

// A single class with an int, an often changing float and a string.
var (
	testSchemaTables = []testTable{
		{name: "DT_Player", props: []testProp{
			{kind: propInt, name: "m_iHealth", flags: SPROP_UNSIGNED, bits: 8},
			{kind: propFloat, name: "m_flSpeed", flags: SPROP_NOSCALE | SPROP_CHANGES_OFTEN},
			{kind: propString, name: "m_szName"},
		}},
	}
	testSchemaClasses = []ServerClass{{ID: 0, Name: "CPlayer", Table: "DT_Player"}}
)

// writeMessage writes a message tag for a 6 bit tag demo.
func writeMessage(w *demotest.BitWriter, t NET_SVC_TYPE) *demotest.BitWriter {
	return w.Uint(uint64(t), 6)
}

func loadDemo(t *testing.T, b *demotest.DemoBuilder, options ...Option) *Demo {
	t.Helper()
	demo, err := Load(b.Bytes(), options...)
	require.NoError(t, err)
	return demo
}

func headerOnly(t *testing.T, h demotest.Header, options ...Option) *Demo {
	t.Helper()
	return loadDemo(t, demotest.NewDemoBuilder(h), options...)
}

// decodeMessages runs the message loop over exactly the bits written to w.
func decodeMessages(t *testing.T, demo *Demo, w *demotest.BitWriter) []NetworkMessage {
	t.Helper()
	messages, err := demo.readMessages(reader(w))
	require.NoError(t, err)
	return messages
}
