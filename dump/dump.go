// Package dump renders decoded demos as text and JSON.
package dump

import (
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/structs"

	demreader "golang-demreader"
	"golang-demreader/adjust"
)

// Document is everything a dump shows about one demo.
type Document struct {
	File    string                  `json:"file"`
	Game    string                  `json:"game"`
	Header  demreader.Header        `json:"header"`
	Timing  adjust.Result           `json:"timing"`
	Packets []*demreader.Packet     `json:"packets,omitempty"`
	Classes []demreader.ServerClass `json:"-"`

	ctx *demreader.ProtocolContext
}

// NewDocument collects the dump of a demo that has been read to its end.
func NewDocument(file string, demo *demreader.Demo, timing adjust.Result, packets []*demreader.Packet) *Document {
	ctx := demo.Context()
	return &Document{
		File:    file,
		Game:    ctx.Game.String(),
		Header:  demo.Header,
		Timing:  timing,
		Packets: packets,
		Classes: ctx.Classes,
		ctx:     ctx,
	}
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, strings.Repeat("\t", depth)+format+"\n", args...)
}

func (p *printer) header(doc *Document) {
	h := doc.Header
	p.printf(0, "File Stamp: %s", h.Magic)
	p.printf(0, "Demo Protocol: %d", h.DemoProtocol)
	p.printf(0, "Network Protocol: %d", h.NetworkProtocol)
	p.printf(0, "Server Name: %s", h.ServerName)
	p.printf(0, "Client Name: %s", h.ClientName)
	p.printf(0, "Map Name: %s", h.MapName)
	p.printf(0, "Game Directory: %s", h.GameDirectory)
	p.printf(0, "Playback Time: %.3f", h.PlaybackTime)
	p.printf(0, "Playback Ticks: %d", h.PlaybackTicks)
	p.printf(0, "Playback Frames: %d", h.PlaybackFrames)
	p.printf(0, "Sign On Length: %d", h.SignOnLength)
}

func (p *printer) timing(t adjust.Result) {
	p.printf(0, "Measured Ticks: %d", t.MeasuredTicks)
	p.printf(0, "Measured Time: %s", adjust.FormatTime(t.MeasuredTime))
	if !t.Adjusted() {
		return
	}
	p.printf(0, "Adjusted Ticks: %d (%d-%d)", t.AdjustedTicks, t.StartTick, t.EndTick)
	p.printf(0, "Adjusted Time: %s", adjust.FormatTime(t.AdjustedTime))
}

// Summary writes the header and the measured time, the output of a plain run.
func Summary(w io.Writer, doc *Document) error {
	p := &printer{w: w}
	p.header(doc)
	p.printf(0, "")
	p.timing(doc.Timing)
	return p.err
}

// Text writes the header and every packet with all decoded fields.
func Text(w io.Writer, doc *Document) error {
	p := &printer{w: w}
	p.printf(0, "File Name: %s", filepath.Base(doc.File))
	p.printf(0, "Presumed game: %s", doc.Game)
	p.printf(0, "")
	p.header(doc)
	p.printf(0, "")
	p.timing(doc.Timing)
	p.printf(0, "")
	for _, pk := range doc.Packets {
		p.packet(pk)
		p.printf(0, "")
	}
	return p.err
}

func (p *printer) packet(pk *demreader.Packet) {
	p.printf(0, "[%d] %s (%d)", pk.Tick, strings.ToUpper(pk.Kind.String()), uint8(pk.Kind))
	switch body := pk.Body.(type) {
	case *demreader.FullUpdateBody:
		p.value(1, "CmdInfo", body.CmdInfo)
		p.printf(1, "InSequence: %d", body.InSequence)
		p.printf(1, "OutSequence: %d", body.OutSequence)
		p.printf(1, "Data Size (bytes): %d", body.Size)
		if body.Skipped {
			p.printf(1, "Skipped")
		}
		for _, m := range body.Messages {
			p.printf(1, "%s (%d bits at byte %d)", m.Type, m.Bits, m.Offset/8)
			p.fields(2, m.Data)
		}
	case nil:
	default:
		p.fields(1, body)
	}
}

// fields prints the exported fields of a struct, or of the struct v points to.
func (p *printer) fields(depth int, v any) {
	if v == nil || !structs.IsStruct(v) {
		return
	}
	for _, f := range structs.New(v).Fields() {
		p.value(depth, f.Name(), f.Value())
	}
}

func (p *printer) value(depth int, name string, v any) {
	if v == nil {
		p.printf(depth, "%s: Null", name)
		return
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			p.printf(depth, "%s: Null", name)
			return
		}
		if rv.Elem().Kind() != reflect.Struct {
			p.value(depth, name, rv.Elem().Interface())
			return
		}
	}

	switch x := v.(type) {
	case demreader.Vector:
		p.printf(depth, "%s: %v %v %v", name, x.X, x.Y, x.Z)
		return
	case demreader.ReaderString:
		p.printf(depth, "%s: %s", name, x.String)
		return
	case []byte:
		p.printf(depth, "%s: % x", name, x)
		return
	case fmt.Stringer:
		p.printf(depth, "%s: %s", name, x.String())
		return
	}

	switch rv.Kind() {
	case reflect.Struct, reflect.Pointer:
		p.printf(depth, "%s:", name)
		p.fields(depth+1, v)
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			p.printf(depth, "%s: []", name)
			return
		}
		p.printf(depth, "%s:", name)
		for i := 0; i < rv.Len(); i++ {
			p.value(depth+1, strconv.Itoa(i), rv.Index(i).Interface())
		}
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
		p.printf(depth, "%s:", name)
		for _, k := range keys {
			p.value(depth+1, fmt.Sprint(k), rv.MapIndex(k).Interface())
		}
	default:
		p.printf(depth, "%s: %v", name, v)
	}
}

// FlattenedClasses writes the flattened property list of every declared class.
// Classes that could not be flattened are listed with the reason.
func FlattenedClasses(w io.Writer, doc *Document) error {
	p := &printer{w: w}
	if doc.ctx == nil || len(doc.Classes) == 0 {
		p.printf(0, "no data tables")
		return p.err
	}
	for _, c := range doc.Classes {
		p.printf(0, "%s (%d) %s", c.Name, c.ID, c.Table)
		props, err := doc.ctx.FlattenedClass(c.ID)
		if err != nil {
			p.printf(1, "error: %v", err)
			continue
		}
		for i, fp := range props {
			p.printf(1, "%d %s.%s %s %s", i, fp.Table, fp.Name, fp.Prop.Type, fp.Prop.Flags)
		}
	}
	return p.err
}

// Verify writes the header, one line per packet and the measured ticks. The output
// is stable across decode modes and is meant to be diffed against other readers.
func Verify(w io.Writer, doc *Document) error {
	p := &printer{w: w}
	p.header(doc)
	p.printf(0, "")
	for _, pk := range doc.Packets {
		p.printf(0, "[%d] %s @%d", pk.Tick, pk.Kind, pk.Offset/8)
	}
	p.printf(0, "")
	p.printf(0, "Measured Ticks: %d", doc.Timing.MeasuredTicks)
	return p.err
}
