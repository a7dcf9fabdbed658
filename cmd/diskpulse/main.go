package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/diskpulse/internal/config"
	"github.com/Dicklesworthstone/diskpulse/internal/report"
	"github.com/Dicklesworthstone/diskpulse/internal/sampler"
	"github.com/Dicklesworthstone/diskpulse/internal/source"
	"github.com/Dicklesworthstone/diskpulse/internal/ui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.FromFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	interactive := !cfg.Plain && !cfg.JSONStream && ui.IsTerminal(os.Stdout)

	logOut := io.Writer(os.Stderr)
	if interactive {
		f, err := os.OpenFile(cfg.LogPrefix+".log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		logOut = f
	}
	log := buildLogger(cfg.LogLevel, logOut)

	smp, err := sampler.New(cfg, source.NewHost(), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := smp.Prime(ctx); err != nil {
		return err
	}
	csvLog, err := report.NewCSVLog(cfg.LogPrefix)
	if err != nil {
		return err
	}
	sinks := report.Multi{csvLog}

	var feed *ui.Feed
	switch {
	case cfg.JSONStream:
		sinks = append(sinks, report.NewJSONStream(os.Stdout))
	case interactive:
		feed = ui.NewFeed()
		sinks = append(sinks, feed)
	default:
		sinks = append(sinks, ui.NewConsole(os.Stdout, cfg.TopN))
		fmt.Println("Monitoring IOPS for all disks. Press Ctrl+C to stop.")
	}
	var metrics *report.Metrics
	if cfg.MetricsAddr != "" {
		metrics = report.NewMetrics()
		sinks = append(sinks, metrics)
	}

	log.Info("monitoring started",
		"interval", cfg.Interval, "top", cfg.TopN, "file_multiplier", cfg.FileMultiplier,
		"prefix", cfg.LogPrefix, "interactive", interactive)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return smp.Run(gctx, sinks)
	})
	if feed != nil {
		g.Go(func() error {
			defer cancel()
			return ui.RunTUI(gctx, cfg, feed, cancel)
		})
	}
	if metrics != nil {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, log)
		})
	}
	err = g.Wait()
	if cerr := sinks.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "close logs")
	}

	log.Info("monitoring stopped")
	if !interactive && !cfg.JSONStream {
		fmt.Println("\nMonitoring stopped.")
	}
	return err
}

func buildLogger(level string, w io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
