package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dicklesworthstone/diskpulse/internal/config"
	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

// Feed hands reports from the sampler to the interactive view. Only the
// newest unread report is kept so a slow screen never stalls sampling.
type Feed struct {
	ch chan model.Report
}

func NewFeed() *Feed { return &Feed{ch: make(chan model.Report, 1)} }

func (f *Feed) Emit(_ context.Context, r model.Report) error {
	select {
	case f.ch <- r:
		return nil
	default:
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- r
	return nil
}

func (f *Feed) Close() error { return nil }

func (f *Feed) Reports() <-chan model.Report { return f.ch }

// Model renders live reports from a Feed.
type Model struct {
	cfg       config.Config
	latest    model.Report
	received  bool
	stream    <-chan model.Report
	ctxCancel context.CancelFunc
	width     int
	height    int
}

// New builds the view. cancel stops the whole run when the user quits.
func New(cfg config.Config, stream <-chan model.Report, cancel context.CancelFunc) *Model {
	return &Model{
		cfg:       cfg,
		stream:    stream,
		ctxCancel: cancel,
		width:     120,
		height:    40,
	}
}

// Messages
type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.ctxCancel()
			return m, tea.Quit
		}
	case tickMsg:
		select {
		case r, ok := <-m.stream:
			if ok {
				m.latest = r
				m.received = true
			}
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

func (m *Model) View() string {
	if !m.received {
		return titleStyle.Render("Disk I/O Monitor") + "\n" +
			subtleStyle.Render("Monitoring IOPS for all disks. Press q to stop.")
	}
	return Render(m.latest, m.cfg.TopN, m.width)
}

// RunTUI runs the interactive view until the user quits or ctx is done.
func RunTUI(ctx context.Context, cfg config.Config, feed *Feed, cancel context.CancelFunc) error {
	prog := tea.NewProgram(New(cfg, feed.Reports(), cancel), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		prog.Quit()
	}()
	_, err := prog.Run()
	return err
}
