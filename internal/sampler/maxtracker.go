package sampler

type peak struct {
	read  float64
	write float64
}

// MaxTracker keeps the highest read and write IOPS seen per device for the
// lifetime of a run. Entries are created on first observation and never
// removed.
type MaxTracker struct {
	byDevice map[string]*peak
}

func NewMaxTracker() *MaxTracker {
	return &MaxTracker{byDevice: make(map[string]*peak)}
}

// Update folds one tick's rates into the device's maxima and returns them.
// The first observation seeds the maxima with the given values, negative ones
// included.
func (m *MaxTracker) Update(device string, readIOPS, writeIOPS float64) (maxRead, maxWrite float64) {
	p, ok := m.byDevice[device]
	if !ok {
		p = &peak{read: readIOPS, write: writeIOPS}
		m.byDevice[device] = p
		return p.read, p.write
	}
	if readIOPS > p.read {
		p.read = readIOPS
	}
	if writeIOPS > p.write {
		p.write = writeIOPS
	}
	return p.read, p.write
}
