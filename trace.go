package demreader

type traceInfo struct {
	enabled bool
	packets []*TracePacket
	current *TracePacket
}

type AdditionalInfo struct {
	Info  string
	Value interface{}
}

// TracePacket records where a packet starts and stops in the file, in bits.
type TracePacket struct {
	Kind                    PACKET_TYPE
	Tick                    int32
	OffsetStart, OffsetStop uint
	Messages                []*TraceMessage
	AdditionalInfo          []AdditionalInfo
}

type TraceMessage struct {
	Type                    NET_SVC_TYPE
	OffsetStart, OffsetStop uint
}

func (demo *Demo) TraceGet() []*TracePacket {
	return demo.trace.packets
}

func (demo *Demo) tracePacketStart(offset uint) {
	if !demo.trace.enabled {
		return
	}
	tp := &TracePacket{OffsetStart: offset}
	demo.trace.current = tp
}

func (demo *Demo) tracePacketStop(p *Packet) {
	if !demo.trace.enabled || demo.trace.current == nil {
		return
	}
	tp := demo.trace.current
	tp.Kind = p.Kind
	tp.Tick = p.Tick
	tp.OffsetStop = demo.r.Position()
	demo.trace.packets = append(demo.trace.packets, tp)
	demo.trace.current = nil
}

func (demo *Demo) traceMessage(m *NetworkMessage) {
	if !demo.trace.enabled || demo.trace.current == nil {
		return
	}
	demo.trace.current.Messages = append(demo.trace.current.Messages, &TraceMessage{
		Type:        m.Type,
		OffsetStart: m.Offset,
		OffsetStop:  m.Offset + m.Bits,
	})
}

func (demo *Demo) traceAdditionalInfo(info string, value interface{}) {
	if !demo.trace.enabled || demo.trace.current == nil {
		return
	}
	demo.trace.current.AdditionalInfo = append(demo.trace.current.AdditionalInfo, AdditionalInfo{info, value})
}
