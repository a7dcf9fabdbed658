package source

import (
	"context"
	"io/fs"
	"syscall"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

// Host reads counters from the running system via gopsutil.
type Host struct{}

func NewHost() *Host { return &Host{} }

func (h *Host) DeviceCounters(ctx context.Context) (map[string]model.DeviceCounters, error) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "disk io counters")
	}
	out := make(map[string]model.DeviceCounters, len(counters))
	for name, st := range counters {
		out[name] = model.DeviceCounters{
			Device:   name,
			ReadOps:  st.ReadCount,
			WriteOps: st.WriteCount,
		}
	}
	return out, nil
}

func (h *Host) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		out = append(out, &hostProcess{p: p})
	}
	return out, nil
}

func (h *Host) Load(ctx context.Context) (model.Host, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return model.Host{}, errors.Wrap(err, "load average")
	}
	return model.Host{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}, nil
}

type hostProcess struct {
	p *process.Process
}

func (hp *hostProcess) PID() int32 { return hp.p.Pid }

func (hp *hostProcess) Name(ctx context.Context) (string, error) {
	name, err := hp.p.NameWithContext(ctx)
	if err != nil {
		return "", hp.classify(ctx, err)
	}
	return name, nil
}

func (hp *hostProcess) IOCounters(ctx context.Context) (uint64, uint64, error) {
	io, err := hp.p.IOCountersWithContext(ctx)
	if err != nil {
		return 0, 0, hp.classify(ctx, err)
	}
	if io == nil {
		return 0, 0, errors.Wrapf(ErrProcessUnavailable, "pid %d: no io counters", hp.p.Pid)
	}
	return io.ReadBytes, io.WriteBytes, nil
}

func (hp *hostProcess) OpenFiles(ctx context.Context) ([]string, error) {
	files, err := hp.p.OpenFilesWithContext(ctx)
	if err != nil {
		return nil, hp.classify(ctx, err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if f.Path != "" {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}

// classify maps gone, forbidden and zombie processes to ErrProcessUnavailable.
// Anything else is returned wrapped with the pid.
func (hp *hostProcess) classify(ctx context.Context, err error) error {
	if transientErr(err) {
		return errors.Wrapf(ErrProcessUnavailable, "pid %d: %v", hp.p.Pid, err)
	}
	if status, serr := hp.p.StatusWithContext(ctx); serr == nil {
		for _, s := range status {
			if s == process.Zombie {
				return errors.Wrapf(ErrProcessUnavailable, "pid %d: zombie", hp.p.Pid)
			}
		}
	} else if transientErr(serr) {
		return errors.Wrapf(ErrProcessUnavailable, "pid %d: %v", hp.p.Pid, err)
	}
	return errors.Wrapf(err, "pid %d", hp.p.Pid)
}

func transientErr(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, syscall.ESRCH)
}
