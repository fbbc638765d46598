package main

import (
	"io"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/rs/zerolog"
	"github.com/xiegeo/coloredgoroutine"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newLogger logs at level to w, everything with debug. On a terminal each goroutine
// gets its own colour so interleaved workers stay readable.
func newLogger(w io.Writer, level zerolog.Level, debug bool) zerolog.Logger {
	if debug {
		level = zerolog.DebugLevel
	}
	tty := false
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		tty = true
		if debug {
			w = coloredgoroutine.Colors(f)
		}
	}
	out := zerolog.ConsoleWriter{Out: w, NoColor: !tty, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func setupColor(w io.Writer) {
	f, ok := w.(*os.File)
	color.Enable = ok && isTerminal(f)
}
