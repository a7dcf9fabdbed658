package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	freshStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1)
)

const nameWidth = 19

// Render lays out one report. width bounds the file path column; 0 means the
// default of 80 columns.
func Render(r model.Report, topN, width int) string {
	if width <= 0 {
		width = 80
	}
	header := titleStyle.Render("Disk I/O Monitor") + "  " +
		subtleStyle.Render(fmt.Sprintf("%s  every %s  load %.2f %.2f %.2f",
			r.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"), r.Interval,
			r.Host.Load1, r.Host.Load5, r.Host.Load15))

	devices := card("Disk IOPS", renderDevices(r.Devices))
	procs := card(fmt.Sprintf("Top %d I/O Processes", topN), renderProcesses(r.Processes))

	filesTitle := fmt.Sprintf("Top %d I/O Files", topN)
	if r.FilesRefreshed {
		filesTitle += " " + freshStyle.Render("(refreshed)")
	}
	files := card(filesTitle, renderFiles(r.Files, width))

	return lipgloss.JoinVertical(lipgloss.Left, header, devices, procs, files)
}

func renderDevices(rows []model.DeviceRate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-15s %-15s %-15s %-15s", "Drive", "Read IOPS", "Write IOPS", "Max Read IOPS", "Max Write IOPS")
	for _, d := range rows {
		fmt.Fprintf(&b, "\n%-15s %-15.2f %-15.2f %-15.2f %-15.2f",
			truncate(d.Device, 15), d.ReadIOPS, d.WriteIOPS, d.MaxReadIOPS, d.MaxWriteIOPS)
	}
	return b.String()
}

func renderProcesses(rows []model.ProcessRank) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-20s %-15s %-15s %-15s %s", "PID", "Process", "Total I/O (MB)", "Read I/O (MB)", "Write I/O (MB)", "Total")
	for _, p := range rows {
		fmt.Fprintf(&b, "\n%-10d %-20s %-15.2f %-15.2f %-15.2f %s",
			p.PID, truncate(p.Name, nameWidth), model.MB(p.TotalBytes), model.MB(p.ReadBytes), model.MB(p.WriteBytes),
			humanize.IBytes(p.TotalBytes))
	}
	return b.String()
}

func renderFiles(rows []model.FileIO, width int) string {
	pathWidth := width - 40
	if pathWidth < 20 {
		pathWidth = 20
	}
	var b strings.Builder
	if len(rows) == 0 {
		b.WriteString(subtleStyle.Render("waiting for the first file scan"))
		return b.String()
	}
	fmt.Fprintf(&b, "%-*s %-13s %-13s", pathWidth, "File", "Read (MB)", "Write (MB)")
	for _, f := range rows {
		fmt.Fprintf(&b, "\n%-*s %-13.2f %-13.2f", pathWidth, truncateLeft(f.Path, pathWidth), model.MB(f.ReadBytes), model.MB(f.WriteBytes))
	}
	return b.String()
}

func card(title, body string) string {
	return cardStyle.Render(labelStyle.Render(title) + "\n" + body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// truncateLeft keeps the tail of a path, which is the informative part.
func truncateLeft(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
