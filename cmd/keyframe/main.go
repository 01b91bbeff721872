package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/leowmjw/go-keyframe-schedule/pkg/loader"
	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

// DefaultSampleTime is the time sampled when no other time is given
const DefaultSampleTime = 200

type options struct {
	path       string
	sampleTime float64
	at         string
	every      float64
	start      float64
	end        float64
	json       bool
	csv        bool
	logLevel   string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("keyframe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.path, "schedule", "schedule.toml", "Path to a schedule file (HCL, JSON, YAML or TOML) or a directory of HCL files")
	fs.Float64Var(&opts.sampleTime, "t", DefaultSampleTime, "Time to sample, in seconds since midnight")
	fs.StringVar(&opts.at, "at", "", "Time to sample as a 24-hour HH:MM label (overrides -t)")
	fs.Float64Var(&opts.every, "every", 0, "Print a series sampled every N seconds instead of a single value")
	fs.Float64Var(&opts.start, "start", 0, "First time of the series, in seconds since midnight")
	fs.Float64Var(&opts.end, "end", 24*60*60, "Last time of the series, in seconds since midnight")
	fs.BoolVar(&opts.json, "json", false, "Display results as JSON")
	fs.BoolVar(&opts.csv, "csv", false, "Display the series as CSV")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.json && opts.csv {
		return nil, errors.New("-json and -csv are mutually exclusive")
	}
	return opts, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(opts.logLevel, stderr)

	def, sched, ip, err := loader.Load(opts.path)
	if err != nil {
		return err
	}
	logger.Info("Loaded schedule",
		"path", opts.path,
		"name", def.Name,
		"keyframes", sched.Len(),
		"extrapolation", ip.Extrapolation,
	)

	if opts.every > 0 {
		series, err := ip.SampleEvery(sched, opts.start, opts.end, opts.every)
		if err != nil {
			return err
		}
		logger.Debug("Sampled series", "points", len(series))
		return displaySeries(stdout, def, sched, series, opts)
	}

	t := opts.sampleTime
	if opts.at != "" {
		if t, err = schedule.ParseClockTime(opts.at); err != nil {
			return err
		}
	}

	value, err := ip.Sample(sched, t)
	if err != nil {
		return err
	}
	logger.Debug("Sampled schedule", "time", t, "value", value)

	return displaySample(stdout, def, sched, schedule.Point{Time: t, Value: value}, opts)
}

type sampleOutput struct {
	Schedule      string                 `json:"schedule,omitempty"`
	Extrapolation schedule.Extrapolation `json:"extrapolation"`
	Keyframes     []schedule.Keyframe    `json:"keyframes"`
	Sample        *schedule.Point        `json:"sample,omitempty"`
	Series        schedule.Series        `json:"series,omitempty"`
}

func displaySample(w io.Writer, def *schedule.Definition, sched *schedule.Schedule, point schedule.Point, opts *options) error {
	if opts.json {
		return writeJSON(w, sampleOutput{
			Schedule:      def.Name,
			Extrapolation: extrapolationOf(def),
			Keyframes:     sched.Keyframes(),
			Sample:        &point,
		})
	}
	if opts.csv {
		return writeCSV(w, schedule.Series{point})
	}

	displayKeyframes(w, def, sched)
	_, err := fmt.Fprintf(w, "Sample at %s (%gs): %g\n", schedule.FormatClockTime(point.Time), point.Time, point.Value)
	return err
}

func displaySeries(w io.Writer, def *schedule.Definition, sched *schedule.Schedule, series schedule.Series, opts *options) error {
	if opts.json {
		return writeJSON(w, sampleOutput{
			Schedule:      def.Name,
			Extrapolation: extrapolationOf(def),
			Keyframes:     sched.Keyframes(),
			Series:        series,
		})
	}
	if opts.csv {
		return writeCSV(w, series)
	}

	displayKeyframes(w, def, sched)
	fmt.Fprintln(w, "Series:")
	for _, p := range series {
		fmt.Fprintf(w, "  %-8s %g\n", schedule.FormatClockTime(p.Time), p.Value)
	}
	return nil
}

func displayKeyframes(w io.Writer, def *schedule.Definition, sched *schedule.Schedule) {
	if def.Name != "" {
		fmt.Fprintf(w, "Schedule: %s\n", def.Name)
	}
	fmt.Fprintf(w, "Extrapolation: %s\n", extrapolationOf(def))
	fmt.Fprintln(w, "Keyframes:")
	for _, frame := range sched.Keyframes() {
		fmt.Fprintf(w, "  %-8s %g\n", schedule.FormatClockTime(frame.Time), frame.Value)
	}
}

func extrapolationOf(def *schedule.Definition) schedule.Extrapolation {
	policy, err := schedule.ParseExtrapolation(string(def.Extrapolation))
	if err != nil {
		return def.Extrapolation
	}
	return policy
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeCSV(w io.Writer, series schedule.Series) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"time_seconds", "clock", "value"})
	for _, p := range series {
		_ = cw.Write([]string{
			strconv.FormatFloat(p.Time, 'f', -1, 64),
			schedule.FormatClockTime(p.Time),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		})
	}
	cw.Flush()
	return cw.Error()
}
