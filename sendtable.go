package demreader

import "fmt"

const (
	sendPropCountBits    = 10
	sendPropElementsBits = 10
)

type SendProp struct {
	Type         SEND_PROP_TYPE `json:"type"`
	Name         string         `json:"name"`
	Flags        PROP_FLAG      `json:"flags"`
	ExcludeTable string         `json:"exclude_table,omitempty"`
	Low          float32        `json:"low"`
	High         float32        `json:"high"`
	NumBits      uint           `json:"num_bits"`
	NumElements  uint           `json:"num_elements"`
}

// SubTable is the referenced table name of a DPT_DATATABLE prop.
func (p *SendProp) SubTable() string {
	return p.ExcludeTable
}

type SendTable struct {
	NeedsDecoder bool       `json:"needs_decoder"`
	Name         string     `json:"name"`
	Props        []SendProp `json:"props"`
}

type ServerClass struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Table string `json:"table"`
}

type DataTablesBody struct {
	Size    int32         `json:"size"`
	Tables  []*SendTable  `json:"tables,omitempty"`
	Classes []ServerClass `json:"classes,omitempty"`
	Skipped bool          `json:"skipped,omitempty"`
}

func (*DataTablesBody) packetKind() PACKET_TYPE { return DEM_DATATABLES }

func readDataTables(r *BitReader, ctx *ProtocolContext) (*DataTablesBody, error) {
	body := &DataTablesBody{}
	for {
		more, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("send table %d: %w", len(body.Tables), err)
		}
		if !more {
			break
		}
		t, err := readSendTable(r, ctx)
		if err != nil {
			return nil, fmt.Errorf("send table %d: %w", len(body.Tables), err)
		}
		body.Tables = append(body.Tables, t)
	}
	count, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("server class count: %w", err)
	}
	body.Classes = make([]ServerClass, 0, count)
	for i := 0; i < int(count); i++ {
		var c ServerClass
		id, err := r.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("server class %d: %w", i, err)
		}
		c.ID = int(id)
		if c.Name, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("server class %d: %w", i, err)
		}
		if c.Table, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("server class %d: %w", i, err)
		}
		body.Classes = append(body.Classes, c)
	}
	return body, nil
}

func readSendTable(r *BitReader, ctx *ProtocolContext) (*SendTable, error) {
	t := &SendTable{}
	var err error
	if t.NeedsDecoder, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if t.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	count, err := r.ReadUint(sendPropCountBits)
	if err != nil {
		return nil, fmt.Errorf("%s: prop count: %w", t.Name, err)
	}
	t.Props = make([]SendProp, 0, count)
	for i := 0; i < int(count); i++ {
		p, err := readSendProp(r, ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: prop %d: %w", t.Name, i, err)
		}
		t.Props = append(t.Props, p)
	}
	return t, nil
}

func readSendProp(r *BitReader, ctx *ProtocolContext) (SendProp, error) {
	var p SendProp
	tag, err := r.ReadUint(5)
	if err != nil {
		return p, err
	}
	if int(tag) >= len(ctx.PropTypes) {
		return p, &DecodeError{Op: "send prop type", Offset: r.Position() - 5, Err: &UnknownVariantError{Layer: "send prop type", Tag: int(tag)}}
	}
	p.Type = ctx.PropTypes[tag]
	if p.Name, err = r.ReadString(); err != nil {
		return p, err
	}
	flags, err := r.ReadUint(ctx.PropFlagsWidth)
	if err != nil {
		return p, err
	}
	p.Flags = PROP_FLAG(flags)

	if p.Type == DPT_DATATABLE || p.Flags.Has(SPROP_EXCLUDE) {
		p.ExcludeTable, err = r.ReadString()
		return p, err
	}
	switch p.Type {
	case DPT_INT, DPT_FLOAT, DPT_VECTOR, DPT_VECTORXY, DPT_STRING:
		if p.Low, err = r.ReadFloatExact(); err != nil {
			return p, err
		}
		if p.High, err = r.ReadFloatExact(); err != nil {
			return p, err
		}
		n, err := r.ReadUint(ctx.PropBitsWidth)
		if err != nil {
			return p, err
		}
		p.NumBits = uint(n)
	case DPT_ARRAY:
		n, err := r.ReadUint(sendPropElementsBits)
		if err != nil {
			return p, err
		}
		p.NumElements = uint(n)
	}
	return p, nil
}
