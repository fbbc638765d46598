package demreader

import (
	"fmt"
	"strconv"
	"strings"
)

type StringTable struct {
	Name    string             `json:"name"`
	Entries []StringTableEntry `json:"entries"`
	Classes []StringTableClass `json:"classes,omitempty"`
}

type StringTableEntry struct {
	Name string          `json:"name"`
	Data StringEntryData `json:"data,omitempty"`
}

type StringTableClass struct {
	Name string  `json:"name"`
	Data *string `json:"data,omitempty"`
}

// StringEntryData is the payload of a string table entry, decoded by table name.
type StringEntryData interface {
	isStringEntryData()
}

type PlayerInfo struct {
	Name            ReaderString `json:"name"`
	UserID          int32        `json:"user_id"`
	GUID            string       `json:"guid"`
	FriendsID       uint32       `json:"friends_id"`
	FriendsName     ReaderString `json:"friends_name"`
	FakePlayer      bool         `json:"fake_player"`
	IsHLTV          bool         `json:"is_hltv"`
	CustomFiles     [4]uint32    `json:"custom_files"`
	FilesDownloaded uint8        `json:"files_downloaded"`
}

type QueryPort struct {
	Port int32 `json:"port"`
}

type StringEntryText struct {
	Text string `json:"text"`
}

// LightStyle holds brightness values, 'a' being 0 and each step adding 22.
type LightStyle struct {
	Values []int `json:"values"`
}

type PrecacheData struct {
	Flags PRECACHE_FLAG `json:"flags"`
}

// InstanceBaseline is the raw property blob of a class; see ProtocolContext.Baseline.
type InstanceBaseline struct {
	ClassID int    `json:"class_id"`
	Data    []byte `json:"data"`
}

type RawEntryData struct {
	Data []byte `json:"data"`
}

func (*PlayerInfo) isStringEntryData()       {}
func (*QueryPort) isStringEntryData()        {}
func (*StringEntryText) isStringEntryData()  {}
func (*LightStyle) isStringEntryData()       {}
func (*PrecacheData) isStringEntryData()     {}
func (*InstanceBaseline) isStringEntryData() {}
func (*RawEntryData) isStringEntryData()     {}

type StringTablesBody struct {
	Size    int32          `json:"size"`
	Tables  []*StringTable `json:"tables,omitempty"`
	Skipped bool           `json:"skipped,omitempty"`
}

func (*StringTablesBody) packetKind() PACKET_TYPE { return DEM_STRINGTABLES }

func (demo *Demo) readStringTables(r *BitReader) (*StringTablesBody, error) {
	body := &StringTablesBody{}
	count, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("table count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		t, err := demo.readStringTable(r)
		if err != nil {
			return nil, fmt.Errorf("string table %d: %w", i, err)
		}
		body.Tables = append(body.Tables, t)
	}
	return body, nil
}

func (demo *Demo) readStringTable(r *BitReader) (*StringTable, error) {
	t := &StringTable{}
	var err error
	if t.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	entries, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%s: entry count: %w", t.Name, err)
	}
	t.Entries = make([]StringTableEntry, 0, entries)
	for i := 0; i < int(entries); i++ {
		var e StringTableEntry
		if e.Name, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", t.Name, i, err)
		}
		has, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", t.Name, i, err)
		}
		if has {
			n, err := r.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("%s: entry %d: %w", t.Name, i, err)
			}
			sub, err := r.SplitAndSkip(uint(n) * 8)
			if err != nil {
				return nil, fmt.Errorf("%s: entry %d: %w", t.Name, i, err)
			}
			e.Data = demo.readStringEntryData(sub, t.Name, e.Name, uint(n))
		}
		t.Entries = append(t.Entries, e)
	}

	hasClasses, err := r.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("%s: classes: %w", t.Name, err)
	}
	if !hasClasses {
		return t, nil
	}
	classes, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%s: class count: %w", t.Name, err)
	}
	for i := 0; i < int(classes); i++ {
		var c StringTableClass
		if c.Name, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("%s: class %d: %w", t.Name, i, err)
		}
		has, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%s: class %d: %w", t.Name, i, err)
		}
		if has {
			n, err := r.ReadUint16()
			if err != nil {
				return nil, fmt.Errorf("%s: class %d: %w", t.Name, i, err)
			}
			s, err := r.ReadFixedString(uint(n) * 8)
			if err != nil {
				return nil, fmt.Errorf("%s: class %d: %w", t.Name, i, err)
			}
			c.Data = &s
		}
		t.Classes = append(t.Classes, c)
	}
	return t, nil
}

// readStringEntryData decodes an entry payload. The payload is length bounded, so a
// payload that does not match the expected layout is kept as raw bytes.
func (demo *Demo) readStringEntryData(r *BitReader, table, entry string, size uint) StringEntryData {
	start := r.Position()
	data, err := decodeStringEntryData(r, table, entry)
	if err == nil {
		return data
	}
	demo.log.Warn().Err(err).Str("table", table).Str("entry", entry).Msg("string table entry kept raw")
	r.pos = start
	raw, _ := r.ReadBytes(size)
	return &RawEntryData{Data: raw}
}

func decodeStringEntryData(r *BitReader, table, entry string) (StringEntryData, error) {
	switch {
	case table == "userinfo":
		return readPlayerInfo(r)
	case table == "server_query_info":
		port, err := r.ReadInt32()
		return &QueryPort{Port: port}, err
	case table == "GameRulesCreation" || table == "InfoPanel":
		s, err := r.ReadString()
		return &StringEntryText{Text: s}, err
	case table == "lightstyles":
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		ls := &LightStyle{Values: make([]int, 0, len(s))}
		for _, c := range []byte(s) {
			ls.Values = append(ls.Values, (int(c)-'a')*22)
		}
		return ls, nil
	case strings.HasSuffix(table, "precache"):
		flags, err := r.ReadUint(2)
		return &PrecacheData{Flags: PRECACHE_FLAG(flags)}, err
	case table == "instancebaseline":
		id, err := strconv.Atoi(entry)
		if err != nil {
			return nil, fmt.Errorf("baseline class %q: %w", entry, err)
		}
		b, err := r.ReadBytes(r.Remaining() / 8)
		return &InstanceBaseline{ClassID: id, Data: b}, err
	}
	b, err := r.ReadBytes(r.Remaining() / 8)
	return &RawEntryData{Data: b}, err
}

func readPlayerInfo(r *BitReader) (*PlayerInfo, error) {
	p := &PlayerInfo{}
	steps := []func() error{
		func() (err error) { p.Name, err = r.readReaderString(32); return },
		func() (err error) { p.UserID, err = r.ReadInt32(); return },
		func() (err error) { p.GUID, err = r.ReadFixedString(33 * 8); return },
		func() error { return r.Skip(24) },
		func() (err error) { p.FriendsID, err = r.ReadUint32(); return },
		func() (err error) { p.FriendsName, err = r.readReaderString(32); return },
		func() error { b, err := r.ReadByte(); p.FakePlayer = b != 0; return err },
		func() error { b, err := r.ReadByte(); p.IsHLTV = b != 0; return err },
		func() error { return r.Skip(16) },
		func() (err error) { p.CustomFiles[0], err = r.ReadUint32(); return },
		func() (err error) { p.CustomFiles[1], err = r.ReadUint32(); return },
		func() (err error) { p.CustomFiles[2], err = r.ReadUint32(); return },
		func() (err error) { p.CustomFiles[3], err = r.ReadUint32(); return },
		func() (err error) { p.FilesDownloaded, err = r.ReadByte(); return },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("player info: %w", err)
		}
	}
	return p, nil
}
