package sampler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/diskpulse/internal/config"
	"github.com/Dicklesworthstone/diskpulse/internal/model"
	"github.com/Dicklesworthstone/diskpulse/internal/source"
)

// Sink receives one report per completed cycle.
type Sink interface {
	Emit(ctx context.Context, r model.Report) error
}

// Sampler periodically turns counter snapshots into Reports. It carries the
// state that survives between cycles: the previous device snapshot, the
// per-device maxima and the cached file ranking.
type Sampler struct {
	Interval       time.Duration
	TopN           int
	FileMultiplier int
	NoFiles        bool

	src source.Source
	log *slog.Logger

	prevDisk map[string]model.DeviceCounters
	maxima   *MaxTracker
	fileTick int
	topFiles []model.FileIO
	cycle    uint64
}

func New(cfg config.Config, src source.Source, log *slog.Logger) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		Interval:       cfg.Interval,
		TopN:           cfg.TopN,
		FileMultiplier: cfg.FileMultiplier,
		NoFiles:        cfg.NoFiles,
		src:            src,
		log:            log,
		maxima:         NewMaxTracker(),
	}, nil
}

// Prime captures the seed device snapshot the first cycle is measured against.
func (s *Sampler) Prime(ctx context.Context) error {
	disk, err := s.src.DeviceCounters(ctx)
	if err != nil {
		return errors.Wrap(err, "initial device snapshot")
	}
	s.prevDisk = disk
	return nil
}

// Run primes the sampler and then emits one report per interval to sink until
// ctx is cancelled. Cancellation is a clean stop and returns nil. A report
// that has started emitting is always finished; a cycle cancelled before that
// point emits nothing.
func (s *Sampler) Run(ctx context.Context, sink Sink) error {
	if s.prevDisk == nil {
		if err := s.Prime(ctx); err != nil {
			return err
		}
	}
	// The wait starts after the previous cycle finished, so consecutive device
	// snapshots are never closer than Interval.
	timer := time.NewTimer(s.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		rep, err := s.Sample(ctx, time.Now())
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			s.log.Warn("sample failed, skipping cycle", "error", err)
		} else if err := sink.Emit(context.WithoutCancel(ctx), rep); err != nil {
			s.log.Warn("emit report", "cycle", rep.Cycle, "error", err)
		}
		timer.Reset(s.Interval)
	}
}

// Sample runs one cycle against the current counters and advances the run
// state. On error the state is left untouched.
func (s *Sampler) Sample(ctx context.Context, now time.Time) (model.Report, error) {
	curr, err := s.src.DeviceCounters(ctx)
	if err != nil {
		return model.Report{}, errors.Wrap(err, "device snapshot")
	}
	s.cycle++
	rep := model.Report{
		Timestamp: now,
		Interval:  s.Interval,
		Cycle:     s.cycle,
		Devices:   s.deviceRates(curr),
	}

	s.fileTick++
	refresh := !s.NoFiles && s.fileTick >= s.FileMultiplier
	if refresh {
		s.fileTick = 0
	}

	var results []ProcessResult
	procs, err := s.src.Processes(ctx)
	if err != nil {
		s.log.Warn("list processes", "error", err)
	} else {
		results = ReadProcesses(ctx, procs, refresh)
		s.logUnexpected(results)
	}
	rep.Processes = RankProcesses(results, s.TopN)
	if refresh && err == nil {
		s.topFiles = RankFiles(results, s.TopN)
		rep.FilesRefreshed = true
	}
	rep.Files = s.topFiles

	if host, err := s.src.Load(ctx); err == nil {
		rep.Host = host
	} else {
		s.log.Debug("load average", "error", err)
	}

	s.prevDisk = curr
	return rep, nil
}

// deviceRates computes rates for devices present in both snapshots, sorted by
// device name. New devices wait one cycle for a baseline.
func (s *Sampler) deviceRates(curr map[string]model.DeviceCounters) []model.DeviceRate {
	names := make([]string, 0, len(curr))
	for name := range curr {
		if _, ok := s.prevDisk[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	secs := s.Interval.Seconds()
	rates := make([]model.DeviceRate, 0, len(names))
	for _, name := range names {
		r, w := ComputeRates(s.prevDisk[name], curr[name], secs)
		maxR, maxW := s.maxima.Update(name, r, w)
		rates = append(rates, model.DeviceRate{
			Device:       name,
			ReadIOPS:     r,
			WriteIOPS:    w,
			MaxReadIOPS:  maxR,
			MaxWriteIOPS: maxW,
		})
	}
	return rates
}

func (s *Sampler) logUnexpected(results []ProcessResult) {
	for _, r := range results {
		for _, err := range []error{r.Err, r.FilesErr} {
			if err != nil && !source.IsUnavailable(err) {
				s.log.Debug("skip process", "pid", r.IO.PID, "error", err)
			}
		}
	}
}
