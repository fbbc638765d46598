// Command demreader decodes Source engine demos and prints their timing, a dump of
// their packets or their flattened classes.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	demreader "golang-demreader"
	"golang-demreader/adjust"
	"golang-demreader/batch"
	"golang-demreader/dump"
)

type options struct {
	dump        bool
	fc          bool
	verify      bool
	json        bool
	workers     int
	metricsFile string
	debug       bool
}

// mode picks the cheapest decode mode that still fills the requested output.
func (o *options) mode() demreader.DecodeMode {
	if o.dump || o.fc || o.json {
		return demreader.ModeFull
	}
	return demreader.ModeSummary
}

func (o *options) keepPackets() bool {
	return o.dump || o.fc || o.verify || o.json
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupColor(os.Stdout)
	cmd := newRootCmd()
	cmd.SetArgs(normalizeArgs(os.Args[1:]))
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.Red.Sprintf("error: %s", err))
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "demreader <path>",
		Short: "Decode Source engine demos",
		Long: `demreader reads .dem and .dem.zst files, a directory of them or an
s3://bucket/prefix, and prints the measured and adjusted time of every demo.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.dump, "dump", false, "write every packet with its decoded messages to <name>-demo_dump.txt")
	f.BoolVar(&opts.fc, "fc", false, "print or dump the flattened classes instead of the packets")
	f.BoolVarP(&opts.verify, "verify", "v", false, "print one line per packet, for diffing against other readers")
	f.BoolVar(&opts.json, "json", false, "print the decoded demo as JSON")
	f.IntVar(&opts.workers, "workers", 0, "demos decoded at once (default GOMAXPROCS)")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write decode metrics to this file in the textfile format")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log every packet and message")

	cmd.AddCommand(newServeCmd(opts))
	return cmd
}

var errFailed = errors.New("some demos could not be decoded")

func run(ctx context.Context, opts *options, path string, stdout, stderr io.Writer) error {
	// failures are printed with the results
	log := newLogger(stderr, zerolog.ErrorLevel, opts.debug)

	var objects batch.ObjectAPI
	if strings.HasPrefix(path, "s3://") {
		client, err := batch.NewS3Client(batch.S3ConfigFromEnv())
		if err != nil {
			return err
		}
		objects = client
	}
	inputs, err := batch.Resolve(ctx, path, objects)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no demos found in %s", path)
	}

	reg := prometheus.NewRegistry()
	cfg := batch.Config{
		Workers:     opts.workers,
		Mode:        opts.mode(),
		KeepPackets: opts.keepPackets(),
		Logger:      log,
		Metrics:     batch.NewMetrics(reg),
	}
	var writeErr error
	report, err := batch.Run(ctx, cfg, inputs, func(res *batch.FileResult) {
		if writeErr == nil {
			writeErr = printResult(stdout, opts, res, len(inputs) > 1)
		}
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	if len(inputs) > 1 && !opts.json {
		printTotals(stdout, report.Totals)
	}
	if opts.metricsFile != "" {
		if err := batch.WriteTextfile(opts.metricsFile, reg); err != nil {
			return err
		}
	}
	if report.Totals.Failed > 0 {
		if len(inputs) == 1 {
			return report.Files[0].Err
		}
		return fmt.Errorf("%w: %d of %d", errFailed, report.Totals.Failed, len(inputs))
	}
	return nil
}

func printResult(w io.Writer, opts *options, res *batch.FileResult, many bool) error {
	if res.Err != nil {
		msg := fmt.Sprintf("%s: %v", res.Name, res.Err)
		if off, ok := res.Offset(); ok {
			msg += fmt.Sprintf(" (at byte %d)", off)
		}
		// a single failing file is reported once, by the returned error
		if many {
			_, err := fmt.Fprintln(w, color.Red.Sprint(msg))
			return err
		}
		return nil
	}

	doc := res.Document
	if doc == nil {
		doc = &dump.Document{File: res.Name, Game: res.Game, Header: res.Header, Timing: res.Timing}
	}
	if many && !opts.json {
		if _, err := fmt.Fprintln(w, color.Green.Sprintf("== %s (%s)", res.Name, res.Game)); err != nil {
			return err
		}
	}
	if opts.dump {
		path, err := writeDumpFile(opts, doc)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "File created at: %s\n", path)
		return err
	}
	if err := render(w, opts, doc); err != nil {
		return err
	}
	if many && !opts.json {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

func render(w io.Writer, opts *options, doc *dump.Document) error {
	switch {
	case opts.json:
		return dump.JSON(w, doc)
	case opts.fc:
		return dump.FlattenedClasses(w, doc)
	case opts.verify:
		return dump.Verify(w, doc)
	case opts.dump:
		return dump.Text(w, doc)
	}
	return dump.Summary(w, doc)
}

// dumpPath is <name>-demo_dump.txt next to a local demo. Dumps of s3 objects go to
// the working directory.
func dumpPath(name string) string {
	if key, ok := strings.CutPrefix(name, "s3://"); ok {
		name = path.Base(key)
	}
	name = strings.TrimSuffix(name, ".zst")
	return strings.TrimSuffix(name, ".dem") + "-demo_dump.txt"
}

func writeDumpFile(opts *options, doc *dump.Document) (string, error) {
	name := dumpPath(doc.File)
	f, err := os.Create(name)
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	err = render(w, opts, doc)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return name, err
}

// longFlags are accepted with a single dash, the way the flags were always spelled.
var longFlags = map[string]string{
	"-dump": "--dump",
	"-fc":   "--fc",
	"-json": "--json",
	"-help": "--help",
}

// normalizeArgs rewrites single dash long flags for pflag, which reads -dump as the
// shorthands d, u, m and p.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if long, ok := longFlags[a]; ok {
			a = long
		}
		out[i] = a
	}
	return out
}

func printTotals(w io.Writer, t batch.Totals) {
	fmt.Fprintln(w, color.Cyan.Sprintf("Demos: %d decoded, %d failed", t.Files, t.Failed))
	fmt.Fprintf(w, "Total Measured Ticks: %d (%s)\n", t.MeasuredTicks, adjust.FormatTime(t.MeasuredTime))
	fmt.Fprintf(w, "Total Adjusted Ticks: %d (%s)\n", t.AdjustedTicks, adjust.FormatTime(t.AdjustedTime))
}
