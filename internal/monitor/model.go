package monitor

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/musclemate/internal/config"
	"github.com/sweeney/musclemate/internal/control"
	"github.com/sweeney/musclemate/internal/gesture"
	"github.com/sweeney/musclemate/internal/workflow"
)

const (
	headerHeight = 4 // title, context line, blank
	legendHeight = 2
	footerHeight = 8 // log box
	maxLogs      = 6
	borderSize   = 2

	ch1Name = "ch1"
	ch2Name = "ch2"
)

var channelColors = map[string]string{
	ch1Name: "46", // green
	ch2Name: "51", // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	stateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226"))
	abortStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Model is the bubbletea model for the monitor.
type Model struct {
	feed       *Feed
	thresholds config.Thresholds
	chart      *streamlinechart.Model
	width      int
	height     int
	logs       []string
	quitting   bool

	last    workflow.Event
	ch1     float64
	ch2     float64
	ticks   int
	counts  gesture.IntentCounts
	stopped string
}

type sampleMsg control.Sample
type logMsg string

// StoppedMsg tells the monitor the control loop has returned.
type StoppedMsg struct {
	Reason control.StopReason
	Err    error
}

func waitForSample(f *Feed) tea.Cmd {
	return func() tea.Msg {
		return sampleMsg(<-f.samples)
	}
}

func waitForLog(f *Feed) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-f.logs)
	}
}

// New creates a monitor model reading from feed.
func New(feed *Feed, th config.Thresholds) Model {
	chart := streamlinechart.New(80, 16,
		streamlinechart.WithYRange(-0.1, 1.1),
	)
	for _, name := range []string{ch1Name, ch2Name} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return Model{
		feed:       feed,
		thresholds: th,
		chart:      &chart,
		last:       workflow.Event{State: workflow.Idle, Intent: gesture.None},
	}
}

func (m *Model) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *Model) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 8 {
		height = 8
	}
	return width, height
}

// Init starts listening for samples and log lines.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForSample(m.feed),
		waitForLog(m.feed),
	)
}

// Update handles terminal, sample and log messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case sampleMsg:
		m.apply(control.Sample(msg))
		return m, waitForSample(m.feed)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.feed)

	case StoppedMsg:
		m.stopped = string(msg.Reason)
		if msg.Err != nil {
			m.addLog(fmt.Sprintf("stopped: %v", msg.Err))
		} else {
			m.addLog("stopped: " + string(msg.Reason))
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) apply(s control.Sample) {
	m.chart.PushDataSet(ch1Name, s.Ch1)
	m.chart.PushDataSet(ch2Name, s.Ch2)
	m.chart.DrawAll()

	if s.Intent != "" && s.Intent != gesture.None {
		m.addLog(fmt.Sprintf("%s %s", s.Time.Format("15:04:05.000"), s.Intent))
	}
	if s.Event.State != m.last.State {
		m.addLog(fmt.Sprintf("%s %s -> %s", s.Time.Format("15:04:05.000"), m.last.State, s.Event.State))
	}

	m.last = s.Event
	m.ch1, m.ch2 = s.Ch1, s.Ch2
	m.counts = s.Counts
	m.ticks++
}

// View renders the monitor.
func (m Model) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("MuscleMate"))
	sb.WriteString(fmt.Sprintf(" - on %.2f / off %.2f", m.thresholds.EMGOn, m.thresholds.EMGOff))
	if m.stopped != "" {
		sb.WriteString(abortStyle.Render("  [" + m.stopped + "]"))
	}
	sb.WriteString("\n")

	style := stateStyle
	if m.last.State == workflow.Abort {
		style = abortStyle
	}
	sb.WriteString(style.Render(string(m.last.State)))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("  bin %d  door %s  grip %s  ticks %d  start %d grip %d door %d abort %d",
		m.last.SelectedBin, openClosed(m.last.DoorOpen), openClosed(!m.last.LastGripClosed), m.ticks,
		m.counts.Start, m.counts.Grip, m.counts.OpenDoor, m.counts.Abort)))
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend(m.ch1, m.ch2))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))
	if m.width > 4 {
		logStyle = logStyle.Width(m.width - 4)
	}

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func openClosed(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

func renderLegend(ch1, ch2 float64) string {
	items := make([]string, 0, 2)
	for _, c := range []struct {
		name string
		v    float64
	}{{ch1Name, ch1}, {ch2Name, ch2}} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[c.name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+fmt.Sprintf(" %s %.3f", c.name, c.v))
	}
	return strings.Join(items, "  ")
}
