package report

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

// TimeFormat is the timestamp layout of every CSV row.
const TimeFormat = "2006-01-02 15:04:05"

var (
	deviceHeader  = []string{"timestamp", "device", "read_iops", "write_iops", "max_read_iops", "max_write_iops"}
	processHeader = []string{"timestamp", "pid", "name", "total_mb", "read_mb", "write_mb"}
	fileHeader    = []string{"timestamp", "file_path", "read_mb", "write_mb"}
)

// CSVPaths returns the three stream file names derived from prefix.
func CSVPaths(prefix string) (devices, processes, files string) {
	return prefix + "_iops.csv", prefix + "_processes.csv", prefix + "_files.csv"
}

type csvStream struct {
	f *os.File
	w *csv.Writer
}

func openStream(path string, header []string) (*csvStream, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	s := &csvStream{f: f, w: csv.NewWriter(f)}
	if err := s.write([][]string{header}); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "write header to %s", path)
	}
	return s, nil
}

func (s *csvStream) write(records [][]string) error {
	if err := s.w.WriteAll(records); err != nil {
		return errors.Wrap(err, s.f.Name())
	}
	return nil
}

func (s *csvStream) close() error {
	s.w.Flush()
	werr := s.w.Error()
	cerr := s.f.Close()
	if werr != nil {
		return errors.Wrap(werr, s.f.Name())
	}
	return errors.Wrap(cerr, s.f.Name())
}

// CSVLog appends one row per device, process and file to three CSV files,
// each starting with a header row.
type CSVLog struct {
	devices   *csvStream
	processes *csvStream
	files     *csvStream
}

func NewCSVLog(prefix string) (*CSVLog, error) {
	dp, pp, fp := CSVPaths(prefix)
	l := &CSVLog{}
	var err error
	if l.devices, err = openStream(dp, deviceHeader); err != nil {
		return nil, err
	}
	if l.processes, err = openStream(pp, processHeader); err != nil {
		l.devices.close()
		return nil, err
	}
	if l.files, err = openStream(fp, fileHeader); err != nil {
		l.devices.close()
		l.processes.close()
		return nil, err
	}
	return l, nil
}

func (l *CSVLog) Emit(_ context.Context, r model.Report) error {
	devRows := r.DeviceRows()
	dev := make([][]string, 0, len(devRows))
	for _, d := range devRows {
		dev = append(dev, []string{
			d.Timestamp.Format(TimeFormat), d.Device,
			ftoa(d.ReadIOPS), ftoa(d.WriteIOPS), ftoa(d.MaxReadIOPS), ftoa(d.MaxWriteIOPS),
		})
	}
	procRows := r.ProcessRows()
	proc := make([][]string, 0, len(procRows))
	for _, p := range procRows {
		proc = append(proc, []string{
			p.Timestamp.Format(TimeFormat), strconv.FormatInt(int64(p.PID), 10), p.Name,
			mbtoa(p.TotalMB), mbtoa(p.ReadMB), mbtoa(p.WriteMB),
		})
	}
	fileRows := r.FileRows()
	file := make([][]string, 0, len(fileRows))
	for _, f := range fileRows {
		file = append(file, []string{f.Timestamp.Format(TimeFormat), f.Path, mbtoa(f.ReadMB), mbtoa(f.WriteMB)})
	}

	if err := l.devices.write(dev); err != nil {
		return err
	}
	if err := l.processes.write(proc); err != nil {
		return err
	}
	return l.files.write(file)
}

func (l *CSVLog) Close() error {
	var first error
	for _, s := range []*csvStream{l.devices, l.processes, l.files} {
		if err := s.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// mbtoa keeps every digit so small byte counts do not log as zero.
func mbtoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
