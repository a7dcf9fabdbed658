package model

import "time"

// bytesPerMB is the binary megabyte used for every *_mb figure.
const bytesPerMB = 1024 * 1024

// DeviceCounters is one device's cumulative operation counters at a tick.
type DeviceCounters struct {
	Device   string
	ReadOps  uint64
	WriteOps uint64
}

// DeviceRate is a device's instantaneous IOPS plus the run's maxima.
type DeviceRate struct {
	Device       string  `json:"device"`
	ReadIOPS     float64 `json:"read_iops"`
	WriteIOPS    float64 `json:"write_iops"`
	MaxReadIOPS  float64 `json:"max_read_iops"`
	MaxWriteIOPS float64 `json:"max_write_iops"`
}

// ProcessIO is a process's cumulative byte counters and open files.
type ProcessIO struct {
	PID        int32
	Name       string
	ReadBytes  uint64
	WriteBytes uint64
	OpenFiles  []string
}

// ProcessRank is one entry of the top-N process ranking.
type ProcessRank struct {
	PID        int32  `json:"pid"`
	Name       string `json:"name"`
	TotalBytes uint64 `json:"total_bytes"`
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
}

// FileIO attributes the cumulative bytes of every process holding Path open.
// It is an approximation: a process's whole I/O is charged to each of its files.
type FileIO struct {
	Path       string `json:"path"`
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
}

func (f FileIO) TotalBytes() uint64 { return f.ReadBytes + f.WriteBytes }

// Host is context shown next to the report; it is not logged to CSV.
type Host struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// Report is everything one sampling cycle produces.
type Report struct {
	Timestamp      time.Time     `json:"timestamp"`
	Interval       time.Duration `json:"interval"`
	Cycle          uint64        `json:"cycle"`
	Devices        []DeviceRate  `json:"devices"`
	Processes      []ProcessRank `json:"processes"`
	Files          []FileIO      `json:"files"`
	FilesRefreshed bool          `json:"files_refreshed"`
	Host           Host          `json:"host"`
}

// DeviceIopsRow is the per-device record written each cycle.
type DeviceIopsRow struct {
	Timestamp    time.Time
	Device       string
	ReadIOPS     float64
	WriteIOPS    float64
	MaxReadIOPS  float64
	MaxWriteIOPS float64
}

// ProcessIoRow is the per-process record written each cycle.
type ProcessIoRow struct {
	Timestamp time.Time
	PID       int32
	Name      string
	TotalMB   float64
	ReadMB    float64
	WriteMB   float64
}

// FileIoRow is the per-file record written each cycle.
type FileIoRow struct {
	Timestamp time.Time
	Path      string
	ReadMB    float64
	WriteMB   float64
}

func (r Report) DeviceRows() []DeviceIopsRow {
	rows := make([]DeviceIopsRow, 0, len(r.Devices))
	for _, d := range r.Devices {
		rows = append(rows, DeviceIopsRow{
			Timestamp:    r.Timestamp,
			Device:       d.Device,
			ReadIOPS:     d.ReadIOPS,
			WriteIOPS:    d.WriteIOPS,
			MaxReadIOPS:  d.MaxReadIOPS,
			MaxWriteIOPS: d.MaxWriteIOPS,
		})
	}
	return rows
}

func (r Report) ProcessRows() []ProcessIoRow {
	rows := make([]ProcessIoRow, 0, len(r.Processes))
	for _, p := range r.Processes {
		rows = append(rows, ProcessIoRow{
			Timestamp: r.Timestamp,
			PID:       p.PID,
			Name:      p.Name,
			TotalMB:   MB(p.TotalBytes),
			ReadMB:    MB(p.ReadBytes),
			WriteMB:   MB(p.WriteBytes),
		})
	}
	return rows
}

func (r Report) FileRows() []FileIoRow {
	rows := make([]FileIoRow, 0, len(r.Files))
	for _, f := range r.Files {
		rows = append(rows, FileIoRow{
			Timestamp: r.Timestamp,
			Path:      f.Path,
			ReadMB:    MB(f.ReadBytes),
			WriteMB:   MB(f.WriteBytes),
		})
	}
	return rows
}

// MB converts bytes to binary megabytes.
func MB(b uint64) float64 { return float64(b) / bytesPerMB }
