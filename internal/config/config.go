package config

import (
	"flag"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config carries runtime options for diskpulse.
type Config struct {
	Interval       time.Duration
	TopN           int
	FileMultiplier int
	LogPrefix      string
	LogLevel       string
	Plain          bool
	JSONStream     bool
	MetricsAddr    string
	NoFiles        bool
}

func Default() Config {
	return Config{
		Interval:       time.Second,
		TopN:           5,
		FileMultiplier: 3,
		LogPrefix:      "disk_io",
		LogLevel:       "info",
	}
}

// FromFlags parses flags and environment overrides, then validates the result.
// Output is where flag usage and parse errors are printed; nil means stderr.
func FromFlags(args []string, output io.Writer) (Config, error) {
	cfg := Default()
	if output == nil {
		output = os.Stderr
	}
	fs := flag.NewFlagSet("diskpulse", flag.ContinueOnError)
	fs.SetOutput(output)

	seconds := cfg.Interval.Seconds()
	fs.IntVar(&cfg.TopN, "n", cfg.TopN, "number of top processes and files to display")
	fs.IntVar(&cfg.TopN, "top", cfg.TopN, "alias for -n")
	fs.IntVar(&cfg.TopN, "num-processes", cfg.TopN, "alias for -n")
	fs.Float64Var(&seconds, "t", seconds, "refresh time in seconds")
	fs.Float64Var(&seconds, "interval", seconds, "alias for -t")
	fs.Float64Var(&seconds, "refresh-time", seconds, "alias for -t")
	fs.IntVar(&cfg.FileMultiplier, "m", cfg.FileMultiplier, "refresh the file ranking every N intervals")
	fs.IntVar(&cfg.FileMultiplier, "file-multiplier", cfg.FileMultiplier, "alias for -m")
	fs.StringVar(&cfg.LogPrefix, "prefix", cfg.LogPrefix, "prefix for the CSV log files")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	fs.BoolVar(&cfg.Plain, "plain", cfg.Plain, "plain console output instead of the interactive view")
	fs.BoolVar(&cfg.JSONStream, "json-stream", cfg.JSONStream, "stream NDJSON reports to stdout until interrupted")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	fs.BoolVar(&cfg.NoFiles, "no-files", cfg.NoFiles, "disable the open-file ranking")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Interval = secondsToDuration(seconds)

	if v := os.Getenv("DISKPULSE_INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "DISKPULSE_INTERVAL=%q", v)
		}
		cfg.Interval = d
	}
	if v := os.Getenv("DISKPULSE_TOP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "DISKPULSE_TOP=%q", v)
		}
		cfg.TopN = n
	}
	if v := os.Getenv("DISKPULSE_FILE_MULTIPLIER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "DISKPULSE_FILE_MULTIPLIER=%q", v)
		}
		cfg.FileMultiplier = n
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the sampling loop cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return errors.Errorf("interval must be > 0, got %v", c.Interval)
	case c.TopN < 1:
		return errors.Errorf("top count must be >= 1, got %d", c.TopN)
	case c.FileMultiplier < 1:
		return errors.Errorf("file multiplier must be >= 1, got %d", c.FileMultiplier)
	case strings.TrimSpace(c.LogPrefix) == "":
		return errors.New("log file prefix must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// parseInterval accepts plain seconds ("2", "0.5") or Go durations ("500ms").
func parseInterval(v string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return secondsToDuration(f), nil
	}
	return time.ParseDuration(v)
}

func secondsToDuration(s float64) time.Duration {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
