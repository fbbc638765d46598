// Package adjust finds the start and end markers of Portal runs in a demo and
// reports measured and adjusted lengths.
//
// Two markers are known: the wakeup view snap at the start of testchmb_a_00, seen as
// a FixAngle message with yaw 189.99756 on any tick but the first, and the GLaDOS
// escape console command. Both record the tick after the marker.
package adjust

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	demreader "golang-demreader"
)

const gladosDeathCommand = "startneurotoxins 99999"

var wakeupAngle = demreader.Vector{X: 0, Y: 189.99756, Z: 0}

// Adjuster watches packets as they are decoded and records markers in the context of
// the demo, where ModeSummary decoding picks up the end tick.
type Adjuster struct {
	ctx *demreader.ProtocolContext
	log zerolog.Logger
}

func New(ctx *demreader.ProtocolContext, logger zerolog.Logger) *Adjuster {
	return &Adjuster{ctx: ctx, log: logger}
}

// Observe checks one packet for a marker.
func (a *Adjuster) Observe(p *demreader.Packet) {
	switch body := p.Body.(type) {
	case *demreader.FullUpdateBody:
		if p.Tick == 0 {
			return
		}
		// only the first FixAngle of a packet counts
		fix := demreader.MessagesOf[*demreader.SvcFixAngle](p)
		if len(fix) == 0 || !fix[0].Angle.Equal(wakeupAngle) {
			return
		}
		a.ctx.SetAdjustStartTick(p.Tick + 1)
		a.log.Debug().Int32("tick", p.Tick).Msg("wakeup marker")
	case *demreader.ConsoleCmdBody:
		if body.Command != gladosDeathCommand {
			return
		}
		a.ctx.SetAdjustEndTick(p.Tick + 1)
		a.log.Debug().Int32("tick", p.Tick).Msg("glados death marker")
	}
}

// Result is the timing of a fully read demo. Times are in seconds.
type Result struct {
	MeasuredTicks int32   `json:"measured_ticks"`
	MeasuredTime  float64 `json:"measured_time"`
	StartTick     int32   `json:"start_tick,omitempty"`
	EndTick       int32   `json:"end_tick,omitempty"`
	AdjustedTicks int32   `json:"adjusted_ticks"`
	AdjustedTime  float64 `json:"adjusted_time"`
	TickInterval  float32 `json:"tick_interval"`
}

// Adjusted reports whether either marker was found.
func (r Result) Adjusted() bool {
	return r.StartTick != 0 || r.EndTick != 0
}

// Summarize computes the result from what the demo has read so far.
func Summarize(demo *demreader.Demo) Result {
	ctx := demo.Context()
	res := Result{
		MeasuredTicks: demo.MeasuredTicks(),
		StartTick:     ctx.AdjustStartTick(),
		EndTick:       ctx.AdjustEndTick(),
		TickInterval:  ctx.TickInterval(),
	}
	end := res.MeasuredTicks
	if res.EndTick != 0 {
		end = res.EndTick
	}
	res.AdjustedTicks = end - res.StartTick
	if res.AdjustedTicks < 0 {
		res.AdjustedTicks = 0
	}
	res.MeasuredTime = ticksToSeconds(res.MeasuredTicks, res.TickInterval)
	res.AdjustedTime = ticksToSeconds(res.AdjustedTicks, res.TickInterval)
	return res
}

func ticksToSeconds(ticks int32, interval float32) float64 {
	return float64(ticks) * float64(interval)
}

// Run reads the remaining packets of demo, observing each one, and summarizes. fn, if
// not nil, sees every packet after it was observed.
func Run(demo *demreader.Demo, logger zerolog.Logger, fn func(*demreader.Packet)) (Result, error) {
	a := New(demo.Context(), logger)
	for {
		p, err := demo.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Summarize(demo), err
		}
		a.Observe(p)
		if fn != nil {
			fn(p)
		}
	}
	return Summarize(demo), nil
}

// FormatTime renders seconds as "s.mmm" under a minute and "m:ss.mmm" above.
func FormatTime(seconds float64) string {
	if seconds < 60 {
		return fmt.Sprintf("%.3f", seconds)
	}
	minutes := int(seconds / 60)
	return fmt.Sprintf("%d:%06.3f", minutes, seconds-float64(minutes)*60)
}
