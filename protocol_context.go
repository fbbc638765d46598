package demreader

import (
	"math/bits"
	"strconv"
)

const defaultTickInterval = 0.015

// ProtocolContext is the state a demo accumulates while it is decoded: layout choices
// derived from the header and everything declared mid-stream that later packets refer
// back to. A context belongs to exactly one Demo.
type ProtocolContext struct {
	Header Header
	Game   GAME

	MessageTypeBits uint
	PropTypes       []SEND_PROP_TYPE
	PropBitsWidth   uint
	PropFlagsWidth  uint
	UserMessages    []string

	Tables          []*SendTable
	tableIndex      map[string]int
	Classes         []ServerClass
	ServerClassBits uint

	flattened    map[int][]FlattenedProp
	flattenErr   error
	flattenValid bool

	baselines        map[int][]byte
	EventDescriptors map[int]*GameEventDescriptor
	StringTables     map[string]*StringTable
	createdTables    []string
	ServerInfo       *SvcServerInfo

	Paused          bool
	adjustStartTick int32
	adjustEndTick   int32

	entityClasses map[int]int
}

func NewProtocolContext(h Header) *ProtocolContext {
	ctx := &ProtocolContext{
		Header:           h,
		Game:             gameFromNetworkProtocol(h.NetworkProtocol),
		MessageTypeBits:  6,
		PropBitsWidth:    7,
		PropFlagsWidth:   16,
		tableIndex:       make(map[string]int),
		baselines:        make(map[int][]byte),
		EventDescriptors: make(map[int]*GameEventDescriptor),
		StringTables:     make(map[string]*StringTable),
		entityClasses:    make(map[int]int),
	}
	if h.NetworkProtocol == 14 {
		ctx.MessageTypeBits = 5
		ctx.PropBitsWidth = 6
	}
	if h.DemoProtocol == 4 {
		ctx.PropFlagsWidth = 19
	}
	if ctx.Game == GAME_PORTAL_3420 {
		ctx.PropTypes = []SEND_PROP_TYPE{DPT_INT, DPT_FLOAT, DPT_VECTOR, DPT_STRING, DPT_ARRAY, DPT_DATATABLE}
	} else {
		ctx.PropTypes = []SEND_PROP_TYPE{DPT_INT, DPT_FLOAT, DPT_VECTOR, DPT_VECTORXY, DPT_STRING, DPT_ARRAY, DPT_DATATABLE}
	}
	ctx.UserMessages = userMessageCatalog(ctx.Game)
	return ctx
}

// newDemoProtocol reports the demo protocol 4 layouts.
func (ctx *ProtocolContext) newDemoProtocol() bool {
	return ctx.Header.DemoProtocol == 4
}

func (ctx *ProtocolContext) SetAdjustStartTick(tick int32) {
	ctx.adjustStartTick = tick
}

func (ctx *ProtocolContext) AdjustStartTick() int32 {
	return ctx.adjustStartTick
}

func (ctx *ProtocolContext) SetAdjustEndTick(tick int32) {
	ctx.adjustEndTick = tick
}

func (ctx *ProtocolContext) AdjustEndTick() int32 {
	return ctx.adjustEndTick
}

// TickInterval is the server tick interval, 0.015 until a server info message says otherwise.
func (ctx *ProtocolContext) TickInterval() float32 {
	if ctx.ServerInfo != nil && ctx.ServerInfo.TickInterval > 0 {
		return ctx.ServerInfo.TickInterval
	}
	return defaultTickInterval
}

func (ctx *ProtocolContext) setTables(tables []*SendTable, classes []ServerClass) {
	ctx.Tables = tables
	ctx.tableIndex = make(map[string]int, len(tables))
	for i, t := range tables {
		ctx.tableIndex[t.Name] = i
	}
	ctx.Classes = classes
	ctx.ServerClassBits = uint(bits.Len(uint(len(classes))))
	ctx.flattened = nil
	ctx.flattenErr = nil
	ctx.flattenValid = false
}

func (ctx *ProtocolContext) Table(name string) (*SendTable, bool) {
	i, ok := ctx.tableIndex[name]
	if !ok {
		return nil, false
	}
	return ctx.Tables[i], true
}

func (ctx *ProtocolContext) Class(id int) (ServerClass, bool) {
	if id >= 0 && id < len(ctx.Classes) && ctx.Classes[id].ID == id {
		return ctx.Classes[id], true
	}
	for _, c := range ctx.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return ServerClass{}, false
}

// FlattenedClasses flattens every declared class once and caches the result. Classes
// that could not be flattened are missing from the map and reported in the error.
func (ctx *ProtocolContext) FlattenedClasses() (map[int][]FlattenedProp, error) {
	if !ctx.flattenValid {
		ctx.flattened, ctx.flattenErr = Flatten(ctx)
		ctx.flattenValid = true
	}
	return ctx.flattened, ctx.flattenErr
}

func (ctx *ProtocolContext) FlattenedClass(id int) ([]FlattenedProp, error) {
	classes, err := ctx.FlattenedClasses()
	props, ok := classes[id]
	if !ok {
		if err != nil {
			return nil, err
		}
		return nil, &UnknownVariantError{Layer: "server class", Tag: id}
	}
	return props, nil
}

func (ctx *ProtocolContext) addEventDescriptors(descriptors []*GameEventDescriptor) {
	for _, d := range descriptors {
		ctx.EventDescriptors[d.ID] = d
	}
}

func (ctx *ProtocolContext) setStringTables(tables []*StringTable) {
	for _, t := range tables {
		ctx.StringTables[t.Name] = t
		if t.Name != "instancebaseline" {
			continue
		}
		for _, e := range t.Entries {
			b, ok := e.Data.(*InstanceBaseline)
			if !ok {
				continue
			}
			ctx.baselines[b.ClassID] = b.Data
		}
	}
}

func (ctx *ProtocolContext) StringTable(name string) (*StringTable, bool) {
	t, ok := ctx.StringTables[name]
	return t, ok
}

// Baseline decodes the instance baseline stored for a class.
func (ctx *ProtocolContext) Baseline(classID int) ([]PropValue, error) {
	data, ok := ctx.baselines[classID]
	if !ok {
		return nil, &UnknownVariantError{Layer: "baseline class", Tag: classID}
	}
	props, err := ctx.FlattenedClass(classID)
	if err != nil {
		return nil, err
	}
	return ReadProps(NewBitReader(data), props, ctx.newDemoProtocol())
}

func (ctx *ProtocolContext) createdTableName(id int) string {
	if id < 0 || id >= len(ctx.createdTables) {
		return strconv.Itoa(id)
	}
	return ctx.createdTables[id]
}

// UserMessageName resolves a user message type through the catalog of the game.
func (ctx *ProtocolContext) UserMessageName(t int) string {
	if t < 0 || t >= len(ctx.UserMessages) {
		return "Unknown"
	}
	return ctx.UserMessages[t]
}
