// Package server exposes the decoder over HTTP: a summary endpoint, a websocket that
// streams packets as they are decoded, and the prometheus metrics of both.
package server

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	demreader "golang-demreader"
	"golang-demreader/adjust"
	"golang-demreader/batch"
)

const (
	defaultAddr         = ":8080"
	defaultMaxBodyBytes = 256 << 20
	shutdownTimeout     = 5 * time.Second
)

type Config struct {
	Addr string

	// Mode is the decode mode of POST /v1/demos. Streams always decode fully.
	Mode         demreader.DecodeMode
	MaxBodyBytes int64
	Logger       zerolog.Logger

	// Registry collects the decode metrics and is served on /metrics. A new
	// registry is made when nil.
	Registry *prometheus.Registry
}

type Server struct {
	cfg      Config
	log      zerolog.Logger
	metrics  *batch.Metrics
	upgrader websocket.Upgrader
	router   chi.Router
}

func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	gz, err := gziphandler.NewGzipLevelAndMinSize(gzip.DefaultCompression, 0)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		log:     cfg.Logger.With().Str("component", "server").Logger(),
		metrics: batch.NewMetrics(cfg.Registry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 << 10,
			WriteBufferSize: 4 << 10,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.With(gz).Post("/v1/demos", s.summarize)
	r.Get("/v1/demos/stream", s.stream)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	s.router = r
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", s.cfg.Addr).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// Summary is the response of POST /v1/demos.
type Summary struct {
	File    string           `json:"file"`
	Game    string           `json:"game,omitempty"`
	Header  demreader.Header `json:"header"`
	Timing  adjust.Result    `json:"timing"`
	Packets int              `json:"packets"`
	Error   string           `json:"error,omitempty"`
	Offset  *uint            `json:"offset,omitempty"`
}

func newSummary(res *batch.FileResult) *Summary {
	sum := &Summary{
		File:    res.Name,
		Game:    res.Game,
		Header:  res.Header,
		Timing:  res.Timing,
		Packets: res.Packets,
	}
	if res.Err != nil {
		sum.Error = res.Err.Error()
		if off, ok := res.Offset(); ok {
			sum.Offset = &off
		}
	}
	return sum
}

// summarize decodes the request body. The name query parameter names the upload;
// a name ending in .dem.zst marks a zstd compressed body.
func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.dem"
	}
	if !batch.IsDemoName(name) {
		writeJSON(w, http.StatusBadRequest, &Summary{File: name, Error: batch.ErrUnsupportedExtension.Error()})
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, &Summary{File: name, Error: err.Error()})
		return
	}

	input := batch.Input{
		Name: name,
		Open: func(context.Context) (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil },
	}
	report, err := batch.Run(r.Context(), batch.Config{
		Workers: 1,
		Mode:    s.cfg.Mode,
		Logger:  s.log,
		Metrics: s.metrics,
	}, []batch.Input{input}, nil)
	if err != nil || len(report.Files) == 0 {
		writeJSON(w, http.StatusServiceUnavailable, &Summary{File: name, Error: "request cancelled"})
		return
	}
	res := report.Files[0]
	status := http.StatusOK
	if res.Err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, newSummary(res))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
