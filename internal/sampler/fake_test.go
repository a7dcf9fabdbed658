package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
	"github.com/Dicklesworthstone/diskpulse/internal/source"
)

type fakeProc struct {
	pid         int32
	name        string
	read, write uint64
	files       []string
	ioErr       error
	filesErr    error
	fileCalls   *int
}

func (p *fakeProc) PID() int32 { return p.pid }

func (p *fakeProc) Name(context.Context) (string, error) { return p.name, nil }

func (p *fakeProc) IOCounters(context.Context) (uint64, uint64, error) {
	if p.ioErr != nil {
		return 0, 0, p.ioErr
	}
	return p.read, p.write, nil
}

func (p *fakeProc) OpenFiles(context.Context) ([]string, error) {
	if p.fileCalls != nil {
		*p.fileCalls++
	}
	if p.filesErr != nil {
		return nil, p.filesErr
	}
	return p.files, nil
}

func gone(pid int32) error {
	return errors.Wrapf(source.ErrProcessUnavailable, "pid %d", pid)
}

// fakeSource replays device snapshots in order, repeating the last one.
type fakeSource struct {
	mu       sync.Mutex
	disks    []map[string]model.DeviceCounters
	calls    int
	diskErr  error
	procs    []source.Process
	procsErr error

	// onProcesses runs outside the lock on every process listing.
	onProcesses func()
	snapshots   []time.Time
}

func (f *fakeSource) DeviceCounters(context.Context) (map[string]model.DeviceCounters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.diskErr != nil {
		return nil, f.diskErr
	}
	i := f.calls
	if i >= len(f.disks) {
		i = len(f.disks) - 1
	}
	f.calls++
	f.snapshots = append(f.snapshots, time.Now())
	return f.disks[i], nil
}

func (f *fakeSource) Processes(context.Context) ([]source.Process, error) {
	if f.onProcesses != nil {
		f.onProcesses()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procs, f.procsErr
}

func (f *fakeSource) Load(context.Context) (model.Host, error) {
	return model.Host{Load1: 0.5}, nil
}

func (f *fakeSource) deviceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) snapshotTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.snapshots...)
}

func disks(cs ...model.DeviceCounters) map[string]model.DeviceCounters {
	m := make(map[string]model.DeviceCounters, len(cs))
	for _, c := range cs {
		m[c.Device] = c
	}
	return m
}

type recordingSink struct {
	mu      sync.Mutex
	reports []model.Report
	onEmit  func(n int)
}

func (s *recordingSink) Emit(_ context.Context, r model.Report) error {
	s.mu.Lock()
	s.reports = append(s.reports, r)
	n := len(s.reports)
	s.mu.Unlock()
	if s.onEmit != nil {
		s.onEmit(n)
	}
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
