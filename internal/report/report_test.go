package report_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
	"github.com/Dicklesworthstone/diskpulse/internal/report"
)

var ts = time.Date(2024, 3, 1, 12, 30, 5, 0, time.Local)

func sampleReport() model.Report {
	return model.Report{
		Timestamp: ts,
		Cycle:     3,
		Devices: []model.DeviceRate{
			{Device: "sda", ReadIOPS: 50, WriteIOPS: 0, MaxReadIOPS: 50, MaxWriteIOPS: 1.5},
		},
		Processes: []model.ProcessRank{
			{PID: 42, Name: "postgres, main", TotalBytes: 3 << 20, ReadBytes: 1 << 20, WriteBytes: 2 << 20},
		},
		Files: []model.FileIO{
			{Path: "/var/lib/pg/base", ReadBytes: 1 << 20, WriteBytes: 1 << 19},
		},
		FilesRefreshed: true,
	}
}

func readCSV(path string) [][]string {
	f, err := os.Open(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	Expect(err).NotTo(HaveOccurred())
	return rows
}

type failingSink struct{ emits int }

func (f *failingSink) Emit(context.Context, model.Report) error {
	f.emits++
	return errors.New("disk full")
}
func (f *failingSink) Close() error { return errors.New("close failed") }

var _ = Describe("CSVLog", func() {
	var prefix string

	BeforeEach(func() {
		prefix = filepath.Join(GinkgoT().TempDir(), "run")
	})

	It("writes a header row to each stream at startup", func() {
		l, err := report.NewCSVLog(prefix)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Close()).To(Succeed())

		dp, pp, fp := report.CSVPaths(prefix)
		Expect(readCSV(dp)).To(Equal([][]string{{"timestamp", "device", "read_iops", "write_iops", "max_read_iops", "max_write_iops"}}))
		Expect(readCSV(pp)).To(Equal([][]string{{"timestamp", "pid", "name", "total_mb", "read_mb", "write_mb"}}))
		Expect(readCSV(fp)).To(Equal([][]string{{"timestamp", "file_path", "read_mb", "write_mb"}}))
	})

	It("appends one row per entity per cycle", func() {
		l, err := report.NewCSVLog(prefix)
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Emit(context.Background(), sampleReport())).To(Succeed())
		Expect(l.Emit(context.Background(), sampleReport())).To(Succeed())
		Expect(l.Close()).To(Succeed())

		dp, pp, fp := report.CSVPaths(prefix)
		dev := readCSV(dp)
		Expect(dev).To(HaveLen(3))
		Expect(dev[1]).To(Equal([]string{"2024-03-01 12:30:05", "sda", "50.00", "0.00", "50.00", "1.50"}))

		proc := readCSV(pp)
		Expect(proc).To(HaveLen(3))
		Expect(proc[1]).To(Equal([]string{"2024-03-01 12:30:05", "42", "postgres, main", "3", "1", "2"}))

		files := readCSV(fp)
		Expect(files).To(HaveLen(3))
		Expect(files[2]).To(Equal([]string{"2024-03-01 12:30:05", "/var/lib/pg/base", "1", "0.5"}))
	})

	It("keeps full precision for small byte counts", func() {
		l, err := report.NewCSVLog(prefix)
		Expect(err).NotTo(HaveOccurred())
		r := sampleReport()
		r.Processes = []model.ProcessRank{{PID: 9, Name: "cron", TotalBytes: 1024, ReadBytes: 1024}}
		Expect(l.Emit(context.Background(), r)).To(Succeed())
		Expect(l.Close()).To(Succeed())

		_, pp, _ := report.CSVPaths(prefix)
		proc := readCSV(pp)
		Expect(proc).To(HaveLen(2))
		Expect(proc[1]).To(Equal([]string{"2024-03-01 12:30:05", "9", "cron", "0.0009765625", "0.0009765625", "0"}))
	})

	It("fails when the directory does not exist", func() {
		_, err := report.NewCSVLog(filepath.Join(prefix, "missing", "run"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("JSONStream", func() {
	It("writes one line per report", func() {
		var buf bytes.Buffer
		s := report.NewJSONStream(&buf)
		Expect(s.Emit(context.Background(), sampleReport())).To(Succeed())
		Expect(s.Emit(context.Background(), sampleReport())).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(ContainSubstring(`"device":"sda"`))
		Expect(lines[0]).To(ContainSubstring(`"files_refreshed":true`))
	})
})

var _ = Describe("Metrics", func() {
	It("exports device rates and the current rankings", func() {
		m := report.NewMetrics()
		Expect(m.Emit(context.Background(), sampleReport())).To(Succeed())

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body := rec.Body.String()
		Expect(body).To(ContainSubstring(`diskpulse_device_read_iops{device="sda"} 50`))
		Expect(body).To(ContainSubstring(`diskpulse_device_max_write_iops{device="sda"} 1.5`))
		Expect(body).To(ContainSubstring(`diskpulse_top_process_bytes{name="postgres, main",op="write",pid="42"}`))
		Expect(body).To(ContainSubstring(`diskpulse_top_file_bytes{op="read",path="/var/lib/pg/base"}`))
		Expect(body).To(ContainSubstring(`diskpulse_cycles_total 1`))
	})

	It("drops processes that left the ranking", func() {
		m := report.NewMetrics()
		Expect(m.Emit(context.Background(), sampleReport())).To(Succeed())
		next := sampleReport()
		next.Processes = []model.ProcessRank{{PID: 7, Name: "rsync", TotalBytes: 10, ReadBytes: 10}}
		next.FilesRefreshed = false
		next.Files = nil
		Expect(m.Emit(context.Background(), next)).To(Succeed())

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body := rec.Body.String()
		Expect(body).NotTo(ContainSubstring(`pid="42"`))
		Expect(body).To(ContainSubstring(`pid="7"`))
		Expect(body).To(ContainSubstring(`path="/var/lib/pg/base"`), "cached file ranking stays exported")
	})

	It("counts cycles", func() {
		m := report.NewMetrics()
		for i := 0; i < 3; i++ {
			Expect(m.Emit(context.Background(), model.Report{})).To(Succeed())
		}
		body := scrape(m)
		Expect(body).To(ContainSubstring("diskpulse_cycles_total 3"))
		n, err := testutil.GatherAndCount(m.Gatherer(), "diskpulse_device_read_iops")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})
})

var _ = Describe("Multi", func() {
	It("keeps emitting to the remaining sinks when one fails", func() {
		bad := &failingSink{}
		var buf bytes.Buffer
		m := report.Multi{bad, report.NewJSONStream(&buf)}
		err := m.Emit(context.Background(), sampleReport())
		Expect(err).To(MatchError(ContainSubstring("1 of 2 sinks failed")))
		Expect(bad.emits).To(Equal(1))
		Expect(buf.Len()).To(BeNumerically(">", 0))
		Expect(m.Close()).To(MatchError("close failed"))
	})
})

func scrape(m *report.Metrics) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}
