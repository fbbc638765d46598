// Package batch decodes many demos concurrently and totals their timings.
package batch

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	demreader "golang-demreader"
	"golang-demreader/adjust"
	"golang-demreader/dump"
	"golang-demreader/internal/sync"
)

const tracerName = "golang-demreader/batch"

type Config struct {
	// Workers is the number of demos decoded at once, GOMAXPROCS when zero.
	Workers int
	Mode    demreader.DecodeMode

	// KeepPackets keeps the decoded packets of every file in FileResult.Document.
	KeepPackets bool
	Logger      zerolog.Logger

	// Metrics may be nil.
	Metrics *Metrics
	Tracer  trace.Tracer
}

// FileResult is the outcome of one input. Err is set when the file could not be read
// or decoding stopped early; Timing then covers the packets read before the error.
type FileResult struct {
	Name     string
	Header   demreader.Header
	Game     string
	Timing   adjust.Result
	Packets  int
	Duration time.Duration
	Document *dump.Document
	Err      error
}

// Offset is the byte offset of a decode error, if Err carries one.
func (r *FileResult) Offset() (uint, bool) {
	if r.Err == nil {
		return 0, false
	}
	return demreader.Offset(r.Err)
}

// Totals aggregates the files that decoded without error.
type Totals struct {
	Files         int     `json:"files"`
	Failed        int     `json:"failed"`
	Packets       int     `json:"packets"`
	MeasuredTicks int64   `json:"measured_ticks"`
	AdjustedTicks int64   `json:"adjusted_ticks"`
	MeasuredTime  float64 `json:"measured_time"`
	AdjustedTime  float64 `json:"adjusted_time"`
}

type Report struct {
	Files  []*FileResult
	Totals Totals
}

type aggregator struct {
	mu     sync.Mutex
	totals Totals
	fn     func(*FileResult)
}

func (a *aggregator) add(res *FileResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if res.Err != nil {
		a.totals.Failed++
	} else {
		a.totals.Files++
		a.totals.Packets += res.Packets
		a.totals.MeasuredTicks += int64(res.Timing.MeasuredTicks)
		a.totals.AdjustedTicks += int64(res.Timing.AdjustedTicks)
		a.totals.MeasuredTime += res.Timing.MeasuredTime
		a.totals.AdjustedTime += res.Timing.AdjustedTime
	}
	if a.fn != nil {
		a.fn(res)
	}
}

// Run decodes inputs on a pool of workers. fn, if not nil, is called once per file as
// it finishes, never concurrently. Per-file errors are reported in the results and
// do not stop the batch; Run only fails when ctx is cancelled.
func Run(ctx context.Context, cfg Config, inputs []Input, fn func(*FileResult)) (*Report, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}

	report := &Report{Files: make([]*FileResult, len(inputs))}
	agg := &aggregator{fn: fn}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := decodeInput(ctx, cfg, inputs[j])
				report.Files[j] = res
				agg.add(res)
			}
		}()
	}

feed:
	for i := range inputs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// inputs never started after a cancel have no result
	files := report.Files[:0]
	for _, f := range report.Files {
		if f != nil {
			files = append(files, f)
		}
	}
	report.Files = files
	report.Totals = agg.totals
	return report, ctx.Err()
}

func decodeInput(ctx context.Context, cfg Config, in Input) *FileResult {
	ctx, span := cfg.Tracer.Start(ctx, "demreader.decode", trace.WithAttributes(
		attribute.String("demo.file", in.Name),
		attribute.String("demo.mode", cfg.Mode.String()),
	))
	defer span.End()

	log := cfg.Logger.With().Str("file", in.Name).Logger()
	start := time.Now()
	res := decodeFile(ctx, cfg, in, log)
	res.Duration = time.Since(start)

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		ev := log.Warn().Err(res.Err)
		if off, ok := res.Offset(); ok {
			ev = ev.Uint("offset", off)
		}
		ev.Msg("decode failed")
	} else {
		span.SetAttributes(
			attribute.Int("demo.packets", res.Packets),
			attribute.Int("demo.measured_ticks", int(res.Timing.MeasuredTicks)),
		)
		log.Debug().Int("packets", res.Packets).Dur("took", res.Duration).Msg("decoded")
	}
	cfg.Metrics.observeFile(res)
	return res
}

func decodeFile(ctx context.Context, cfg Config, in Input, log zerolog.Logger) *FileResult {
	res := &FileResult{Name: in.Name}
	data, err := ReadInput(ctx, in)
	if err != nil {
		res.Err = err
		return res
	}
	demo, err := demreader.Load(data, demreader.WithLogger(log), demreader.WithMode(cfg.Mode))
	if err != nil {
		res.Err = err
		return res
	}
	res.Header = demo.Header
	res.Game = demo.Context().Game.String()

	var packets []*demreader.Packet
	res.Timing, res.Err = adjust.Run(demo, log, func(p *demreader.Packet) {
		cfg.Metrics.observePacket(p.Kind)
		if cfg.KeepPackets {
			packets = append(packets, p)
		}
	})
	res.Packets = demo.PacketCount()
	if cfg.KeepPackets {
		res.Document = dump.NewDocument(in.Name, demo, res.Timing, packets)
	}
	return res
}
