package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	demreader "golang-demreader"
	"golang-demreader/adjust"
)

// PacketSummary is what the stream tells about one packet.
type PacketSummary struct {
	Kind     string   `json:"kind"`
	Tick     int32    `json:"tick"`
	Offset   uint     `json:"offset"`
	Messages []string `json:"messages,omitempty"`
	Command  string   `json:"command,omitempty"`
}

func newPacketSummary(p *demreader.Packet) *PacketSummary {
	ps := &PacketSummary{Kind: p.Kind.String(), Tick: p.Tick, Offset: p.Offset / 8}
	switch body := p.Body.(type) {
	case *demreader.FullUpdateBody:
		for _, m := range body.Messages {
			ps.Messages = append(ps.Messages, m.Type.String())
		}
	case *demreader.ConsoleCmdBody:
		ps.Command = body.Command
	}
	return ps
}

// StreamFrame is one text frame of GET /v1/demos/stream. A stream is a frame per
// packet followed by a done frame, or an error frame.
type StreamFrame struct {
	Packet *PacketSummary `json:"packet,omitempty"`
	Done   bool           `json:"done,omitempty"`
	Timing *adjust.Result `json:"timing,omitempty"`
	Error  string         `json:"error,omitempty"`
	Offset *uint          `json:"offset,omitempty"`
}

func errorFrame(err error) *StreamFrame {
	f := &StreamFrame{Error: err.Error()}
	if off, ok := demreader.Offset(err); ok {
		f.Offset = &off
	}
	return f
}

// stream reads one binary message holding a demo and answers with its packets.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxBodyBytes)

	mt, data, err := conn.ReadMessage()
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket read")
		return
	}
	if mt != websocket.BinaryMessage {
		s.writeFrame(conn, &StreamFrame{Error: "expected the demo as a binary message"})
		return
	}

	demo, err := demreader.Load(data, demreader.WithLogger(s.log))
	if err != nil {
		s.writeFrame(conn, errorFrame(err))
		return
	}
	adj := adjust.New(demo.Context(), s.log)
	for {
		p, err := demo.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeFrame(conn, errorFrame(err))
			return
		}
		adj.Observe(p)
		if !s.writeFrame(conn, &StreamFrame{Packet: newPacketSummary(p)}) {
			return
		}
	}
	timing := adjust.Summarize(demo)
	if s.writeFrame(conn, &StreamFrame{Done: true, Timing: &timing}) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, f *StreamFrame) bool {
	data, err := json.Marshal(f)
	if err != nil {
		s.log.Warn().Err(err).Msg("encode stream frame")
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.log.Debug().Err(err).Msg("websocket write")
		return false
	}
	return true
}
