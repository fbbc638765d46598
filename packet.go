package demreader

import "fmt"

// Packet is one top level record of the demo stream.
type Packet struct {
	Kind   PACKET_TYPE `json:"kind"`
	Tick   int32       `json:"tick"`
	Offset uint        `json:"offset"`
	Body   PacketBody  `json:"body,omitempty"`
}

// PacketBody is implemented by the body type of every packet kind.
type PacketBody interface {
	packetKind() PACKET_TYPE
}

// BodyAs returns the body of p as T, or an error if p carries a different kind.
func BodyAs[T PacketBody](p *Packet) (T, error) {
	b, ok := p.Body.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("demreader: %s packet at tick %d has body %T, not %T", p.Kind, p.Tick, p.Body, zero)
	}
	return b, nil
}

type Vector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vector) Equal(o Vector) bool {
	return v == o
}

type OptionalVector struct {
	X *float32 `json:"x,omitempty"`
	Y *float32 `json:"y,omitempty"`
	Z *float32 `json:"z,omitempty"`
}

// CmdInfo is the view of the recording player at the time of a packet.
type CmdInfo struct {
	Flags            CMDINFO_FLAG `json:"flags"`
	ViewOrigin       Vector       `json:"view_origin"`
	ViewAngles       Vector       `json:"view_angles"`
	LocalViewAngles  Vector       `json:"local_view_angles"`
	ViewOrigin2      Vector       `json:"view_origin2"`
	ViewAngles2      Vector       `json:"view_angles2"`
	LocalViewAngles2 Vector       `json:"local_view_angles2"`
}

func readCmdInfo(r *BitReader) (CmdInfo, error) {
	var c CmdInfo
	flags, err := r.ReadInt32()
	if err != nil {
		return c, err
	}
	c.Flags = CMDINFO_FLAG(flags)
	for _, v := range []*Vector{&c.ViewOrigin, &c.ViewAngles, &c.LocalViewAngles, &c.ViewOrigin2, &c.ViewAngles2, &c.LocalViewAngles2} {
		if *v, err = r.ReadVector(); err != nil {
			return c, err
		}
	}
	return c, nil
}

// FullUpdateBody is the body of SignOn and Packet packets, which share one layout.
type FullUpdateBody struct {
	kind        PACKET_TYPE
	CmdInfo     CmdInfo          `json:"cmd_info"`
	InSequence  int32            `json:"in_sequence"`
	OutSequence int32            `json:"out_sequence"`
	Size        int32            `json:"size"`
	Messages    []NetworkMessage `json:"messages,omitempty"`
	Skipped     bool             `json:"skipped,omitempty"`
}

func (b *FullUpdateBody) packetKind() PACKET_TYPE { return b.kind }

// MessagesOfType returns the messages of one type in stream order.
func (b *FullUpdateBody) MessagesOfType(t NET_SVC_TYPE) []NetworkMessage {
	var out []NetworkMessage
	for _, m := range b.Messages {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// MessagesOf returns the decoded payloads of type T carried by p. Packets without
// messages yield nothing.
func MessagesOf[T MessageData](p *Packet) []T {
	b, ok := p.Body.(*FullUpdateBody)
	if !ok {
		return nil
	}
	var out []T
	for _, m := range b.Messages {
		if d, ok := m.Data.(T); ok {
			out = append(out, d)
		}
	}
	return out
}

type SyncTickBody struct{}

func (*SyncTickBody) packetKind() PACKET_TYPE { return DEM_SYNCTICK }

type StopBody struct{}

func (*StopBody) packetKind() PACKET_TYPE { return DEM_STOP }

type ConsoleCmdBody struct {
	Size    int32  `json:"size"`
	Command string `json:"command"`
	Skipped bool   `json:"skipped,omitempty"`
}

func (*ConsoleCmdBody) packetKind() PACKET_TYPE { return DEM_CONSOLECMD }

// start is the bit offset of the packet's kind byte.
func (demo *Demo) readPacketBody(start uint, kind PACKET_TYPE) (PacketBody, error) {
	r := demo.r
	switch kind {
	case DEM_SIGNON, DEM_PACKET:
		return demo.readFullUpdate(kind)
	case DEM_SYNCTICK:
		return &SyncTickBody{}, nil
	case DEM_STOP:
		return &StopBody{}, nil
	case DEM_CONSOLECMD:
		body := &ConsoleCmdBody{}
		sub, err := demo.readSizedBody(&body.Size)
		if err != nil {
			return nil, err
		}
		if demo.mode == ModeSkip {
			body.Skipped = true
			return body, nil
		}
		body.Command, err = sub.ReadFixedString(sub.Remaining())
		return body, err
	case DEM_USERCMD:
		body := &UserCmdBody{}
		var err error
		if body.Cmd, err = r.ReadInt32(); err != nil {
			return nil, err
		}
		sub, err := demo.readSizedBody(&body.Size)
		if err != nil {
			return nil, err
		}
		if demo.mode != ModeFull {
			body.Skipped = true
			return body, nil
		}
		body.Info, err = ReadUserCmdInfo(sub)
		return body, err
	case DEM_DATATABLES:
		body := &DataTablesBody{}
		sub, err := demo.readSizedBody(&body.Size)
		if err != nil {
			return nil, err
		}
		if demo.mode != ModeFull {
			body.Skipped = true
			return body, nil
		}
		decoded, err := readDataTables(sub, demo.ctx)
		if err != nil {
			return nil, err
		}
		decoded.Size = body.Size
		demo.ctx.setTables(decoded.Tables, decoded.Classes)
		demo.log.Debug().Int("tables", len(decoded.Tables)).Int("classes", len(decoded.Classes)).Msg("data tables")
		return decoded, nil
	case DEM_STRINGTABLES:
		body := &StringTablesBody{}
		sub, err := demo.readSizedBody(&body.Size)
		if err != nil {
			return nil, err
		}
		if demo.mode != ModeFull {
			body.Skipped = true
			return body, nil
		}
		decoded, err := demo.readStringTables(sub)
		if err != nil {
			return nil, err
		}
		decoded.Size = body.Size
		demo.ctx.setStringTables(decoded.Tables)
		return decoded, nil
	}
	return nil, &DecodeError{Op: "packet kind", Offset: start, Err: &UnknownVariantError{Layer: "packet kind", Tag: int(kind)}}
}

// readSizedBody reads a 32-bit byte length and splits the body off the stream, so the
// framer ends up past the body whether or not it is decoded.
func (demo *Demo) readSizedBody(size *int32) (*BitReader, error) {
	n, err := demo.r.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("body size: %w", err)
	}
	if n < 0 {
		return nil, &DecodeError{Op: "body size", Offset: demo.r.Position() - 32, Err: fmt.Errorf("negative size %d", n)}
	}
	*size = n
	sub, err := demo.r.SplitAndSkip(uint(n) * 8)
	if err != nil {
		return nil, fmt.Errorf("body of %d bytes: %w", n, err)
	}
	return sub, nil
}

func (demo *Demo) readFullUpdate(kind PACKET_TYPE) (*FullUpdateBody, error) {
	r := demo.r
	body := &FullUpdateBody{kind: kind}
	var err error
	if body.CmdInfo, err = readCmdInfo(r); err != nil {
		return nil, fmt.Errorf("cmd info: %w", err)
	}
	if body.InSequence, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("in sequence: %w", err)
	}
	if body.OutSequence, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("out sequence: %w", err)
	}
	sub, err := demo.readSizedBody(&body.Size)
	if err != nil {
		return nil, err
	}
	if demo.skipMessages() {
		body.Skipped = true
		return body, nil
	}
	body.Messages, err = demo.readMessages(sub)
	return body, err
}

func (demo *Demo) skipMessages() bool {
	switch demo.mode {
	case ModeSkip:
		return true
	case ModeSummary:
		return demo.ctx.Paused && demo.ctx.AdjustEndTick() != 0
	}
	return false
}
