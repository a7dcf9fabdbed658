// Package source exposes the OS counters the sampler consumes: cumulative
// per-device operation counts and per-process byte counters with open files.
package source

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

// ErrProcessUnavailable marks a process that exited, is a zombie, or whose
// counters we are not allowed to read. Callers drop such processes.
var ErrProcessUnavailable = errors.New("process unavailable")

// Source returns point-in-time counter snapshots.
type Source interface {
	DeviceCounters(ctx context.Context) (map[string]model.DeviceCounters, error)
	Processes(ctx context.Context) ([]Process, error)
	Load(ctx context.Context) (model.Host, error)
}

// Process is a handle on one live process. Every accessor may fail with
// ErrProcessUnavailable.
type Process interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	IOCounters(ctx context.Context) (read, write uint64, err error)
	OpenFiles(ctx context.Context) ([]string, error)
}

// IsUnavailable reports whether err means the process should be skipped.
func IsUnavailable(err error) bool { return errors.Is(err, ErrProcessUnavailable) }
