// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/parhelion/pkg/afhds"
	"github.com/Thermoquad/parhelion/pkg/bind"
	"github.com/Thermoquad/parhelion/pkg/link"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// snapshotPeriod is how often the engine loop hands the TUI a snapshot
const snapshotPeriod = 50 * time.Millisecond

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for link loss and failures
}

// candidateItem is a bind candidate shown in the candidate list
type candidateItem struct {
	slot      bind.Slot
	threshold uint16
}

// Implement list.Item interface
func (c candidateItem) Title() string { return fmt.Sprintf("TX %s", c.slot.ID) }
func (c candidateItem) Description() string {
	hops := "derived hops"
	if c.slot.Hops.Valid() {
		hops = "advertised hops"
	}
	return fmt.Sprintf("%d/%d bind packets, %s", c.slot.Count, c.threshold, hops)
}
func (c candidateItem) FilterValue() string { return c.slot.ID.String() }

// TUI model
type monitorModel struct {
	connInfo string
	cfg      link.Config

	snap     link.Snapshot
	hasSnap  bool
	outputs  afhds.Sticks
	failsafe bool
	elapsed  time.Duration

	candidates list.Model
	stickBars  [afhds.ControlChannels]progress.Model

	eventLog      []logEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

// Messages
type snapshotMsg struct {
	snap     link.Snapshot
	outputs  afhds.Sticks
	failsafe bool
	elapsed  time.Duration
}
type linkEventMsg link.Event
type logLineMsg string

func newMonitorModel(connInfo string, cfg link.Config) monitorModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	candidates := list.New([]list.Item{}, delegate, 40, 10)
	candidates.Title = "Bind Candidates"
	candidates.SetShowStatusBar(false)
	candidates.SetShowHelp(false)
	candidates.SetFilteringEnabled(false)

	m := monitorModel{
		connInfo:      connInfo,
		cfg:           cfg,
		candidates:    candidates,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		failsafe:      true,
		outputs:       afhds.NeutralSticks(),
		width:         80,
		height:        24,
	}
	for i := range m.stickBars {
		m.stickBars[i] = progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(32),
			progress.WithoutPercentage(),
		)
	}
	return m
}

func (m monitorModel) Init() tea.Cmd {
	return nil
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := m.width/2 - 20
		if barWidth < 10 {
			barWidth = 10
		}
		for i := range m.stickBars {
			m.stickBars[i].Width = barWidth
		}
		m.candidates.SetSize(40, 10)

	case snapshotMsg:
		m.snap = msg.snap
		m.hasSnap = true
		m.outputs = msg.outputs
		m.failsafe = msg.failsafe
		m.elapsed = msg.elapsed
		return m, m.candidates.SetItems(m.candidateItems())

	case linkEventMsg:
		m.addLogEntry(formatEvent(link.Event(msg)), isAlarm(msg.Kind))

	case logLineMsg:
		m.addLogEntry(string(msg), strings.Contains(string(msg), "not saved"))
	}

	return m, nil
}

func (m *monitorModel) candidateItems() []list.Item {
	items := make([]list.Item, len(m.snap.Candidates))
	for i, slot := range m.snap.Candidates {
		items[i] = candidateItem{slot: slot, threshold: m.cfg.BindThreshold}
	}
	return items
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// isAlarm reports whether an event means the vehicle is not under control
func isAlarm(k link.EventKind) bool {
	switch k {
	case link.EventLinkLost, link.EventRebind, link.EventSaveFailed:
		return true
	}
	return false
}

// formatEvent returns a log line for a link event
func formatEvent(ev link.Event) string {
	switch ev.Kind {
	case link.EventEnteredBind:
		return "Listening for transmitters on the bind channel"
	case link.EventBound:
		return fmt.Sprintf("Bound to transmitter %s", ev.ID)
	case link.EventResumed:
		return fmt.Sprintf("Resumed stored bind with %s", ev.ID)
	case link.EventSynced:
		return fmt.Sprintf("Synchronized with %s", ev.ID)
	case link.EventLinkLost:
		return fmt.Sprintf("LINK LOST after %d missed packets", ev.Missed)
	case link.EventLinkRecovered:
		return "Link recovered"
	case link.EventRebind:
		return fmt.Sprintf("Gave up on %s after %d missed packets", ev.ID, ev.Missed)
	case link.EventSaveFailed:
		return fmt.Sprintf("Bind record for %s not saved", ev.ID)
	default:
		return ev.Kind.String()
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("PARHELION - LINK MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Bind threshold: %d | Failsafe: %d | Rebind: %d | Press 'q' to quit",
		m.connInfo, m.cfg.BindThreshold, m.cfg.FailsafeMisses, m.cfg.RebindMisses)))
	s.WriteString("\n\n")

	if !m.hasSnap {
		s.WriteString(warningStyle.Render("⏳ Starting link engine..."))
		s.WriteString("\n")
		return s.String()
	}
	snap := &m.snap

	// Link state
	status := strings.Builder{}
	health := valueStyle.Render("✓ HEALTHY")
	if !snap.Healthy {
		health = errorStyle.Render("✗ FAILSAFE")
	}
	status.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("State:"), valueStyle.Render(snap.State.String()),
		labelStyle.Render("Channel:"), valueStyle.Render(fmt.Sprintf("0x%02X", snap.Channel)),
		labelStyle.Render("Link:"), health,
	))
	if snap.State == link.StateHopping {
		status.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Transmitter:"), valueStyle.Render(snap.ID.String()),
			labelStyle.Render("Hop:"), valueStyle.Render(fmt.Sprintf("%2d/16", snap.Cursor)),
			labelStyle.Render("Missed:"), missedStyle(snap.Missed, m.cfg.FailsafeMisses, valueStyle, warningStyle, errorStyle),
		))
		status.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Hops:"), headerStyle.Render(snap.Hops.String()),
		))
	}
	status.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Radio:"), valueStyle.Render(snap.Radio.Chip.String()),
		labelStyle.Render("Overruns:"), valueStyle.Render(fmt.Sprintf("%d", snap.Radio.Overruns)),
	))
	s.WriteString(boxStyle.Render(status.String()))
	s.WriteString("\n")

	// Sticks and outputs, or candidates while binding
	if snap.State == link.StateBind {
		if len(snap.Candidates) == 0 {
			s.WriteString(boxStyle.Render(headerStyle.Render("(no bind packets yet)")))
		} else {
			s.WriteString(boxStyle.Render(m.candidates.View()))
		}
	} else {
		sticks := strings.Builder{}
		for i, v := range snap.Sticks {
			sticks.WriteString(fmt.Sprintf("%s %s %s   %s\n",
				labelStyle.Render(fmt.Sprintf("CH%d", i+1)),
				m.stickBars[i].ViewAs(stickFraction(v)),
				valueStyle.Render(fmt.Sprintf("%4d", v)),
				outputStyle(m.failsafe, warningStyle, valueStyle).Render(fmt.Sprintf("out %4d", m.outputs[i])),
			))
		}
		if snap.HasTxFailsafe {
			sticks.WriteString(headerStyle.Render("Transmitter failsafe: " + afhds.FormatSticks(snap.TxFailsafe)))
		} else {
			sticks.WriteString(headerStyle.Render("Transmitter failsafe: not received (neutral, throttle low)"))
		}
		s.WriteString(boxStyle.Render(sticks.String()))
	}
	s.WriteString("\n")

	// Statistics
	st := snap.Stats
	stats := strings.Builder{}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", st.Frames)),
		labelStyle.Render("Accepted:"), valueStyle.Render(fmt.Sprintf("%d", st.Accepted)),
		labelStyle.Render("Quality:"), valueStyle.Render(fmt.Sprintf("%.1f%%", st.Quality())),
	))
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Missed:"), warningStyle.Render(fmt.Sprintf("%d", st.Misses)),
		labelStyle.Render("Rejected:"), warningStyle.Render(fmt.Sprintf("%d", st.Rejected())),
		labelStyle.Render("Link losses:"), errorStyle.Render(fmt.Sprintf("%d", st.LinkLosses)),
	))
	if secs := m.elapsed.Seconds(); secs > 0 {
		stats.WriteString(fmt.Sprintf("\n%s %s",
			labelStyle.Render("Packet Rate:"), valueStyle.Render(fmt.Sprintf("%.1f pkts/s", float64(st.Accepted)/secs)),
		))
	}
	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 30
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for i := startIdx; i < len(m.eventLog); i++ {
		entry := m.eventLog[i]
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

// stickFraction maps a stick value onto 0..1 across StickLow..StickHigh
func stickFraction(v uint16) float64 {
	switch {
	case v <= afhds.StickLow:
		return 0
	case v >= afhds.StickHigh:
		return 1
	}
	return float64(v-afhds.StickLow) / float64(afhds.StickHigh-afhds.StickLow)
}

func missedStyle(missed, failsafe uint16, ok, warn, bad lipgloss.Style) string {
	text := fmt.Sprintf("%d", missed)
	switch {
	case missed >= failsafe:
		return bad.Render(text)
	case missed > 0:
		return warn.Render(text)
	}
	return ok.Render(text)
}

func outputStyle(failsafe bool, warn, ok lipgloss.Style) lipgloss.Style {
	if failsafe {
		return warn
	}
	return ok
}
