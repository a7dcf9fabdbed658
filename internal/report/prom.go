package report

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

const namespace = "diskpulse"

// Metrics mirrors the latest report as Prometheus gauges. Ranking gauges are
// reset every cycle so only the current top entries are exported.
type Metrics struct {
	reg *prometheus.Registry

	readIOPS     *prometheus.GaugeVec
	writeIOPS    *prometheus.GaugeVec
	maxReadIOPS  *prometheus.GaugeVec
	maxWriteIOPS *prometheus.GaugeVec
	procBytes    *prometheus.GaugeVec
	fileBytes    *prometheus.GaugeVec
	cycles       prometheus.Counter
}

func NewMetrics() *Metrics {
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	m := &Metrics{
		reg:          prometheus.NewRegistry(),
		readIOPS:     gauge("device_read_iops", "Read operations per second.", "device"),
		writeIOPS:    gauge("device_write_iops", "Write operations per second.", "device"),
		maxReadIOPS:  gauge("device_max_read_iops", "Highest read IOPS seen this run.", "device"),
		maxWriteIOPS: gauge("device_max_write_iops", "Highest write IOPS seen this run.", "device"),
		procBytes:    gauge("top_process_bytes", "Cumulative bytes of the top processes.", "pid", "name", "op"),
		fileBytes:    gauge("top_file_bytes", "Cumulative bytes attributed to the top open files.", "path", "op"),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cycles_total", Help: "Completed sampling cycles.",
		}),
	}
	m.reg.MustRegister(m.readIOPS, m.writeIOPS, m.maxReadIOPS, m.maxWriteIOPS, m.procBytes, m.fileBytes, m.cycles)
	return m
}

func (m *Metrics) Emit(_ context.Context, r model.Report) error {
	for _, d := range r.Devices {
		m.readIOPS.WithLabelValues(d.Device).Set(d.ReadIOPS)
		m.writeIOPS.WithLabelValues(d.Device).Set(d.WriteIOPS)
		m.maxReadIOPS.WithLabelValues(d.Device).Set(d.MaxReadIOPS)
		m.maxWriteIOPS.WithLabelValues(d.Device).Set(d.MaxWriteIOPS)
	}
	m.procBytes.Reset()
	for _, p := range r.Processes {
		pid := strconv.FormatInt(int64(p.PID), 10)
		m.procBytes.WithLabelValues(pid, p.Name, "read").Set(float64(p.ReadBytes))
		m.procBytes.WithLabelValues(pid, p.Name, "write").Set(float64(p.WriteBytes))
	}
	if r.FilesRefreshed {
		m.fileBytes.Reset()
		for _, f := range r.Files {
			m.fileBytes.WithLabelValues(f.Path, "read").Set(float64(f.ReadBytes))
			m.fileBytes.WithLabelValues(f.Path, "write").Set(float64(f.WriteBytes))
		}
	}
	m.cycles.Inc()
	return nil
}

func (m *Metrics) Close() error { return nil }

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("serving metrics", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
