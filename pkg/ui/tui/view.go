package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"postarchiver/pkg/ui"
)

// stallThreshold mirrors the collector's default for coloring only
const stallThreshold = 3

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderCollectionPanel(width),
		m.renderEnrichmentPanel(width),
	)
	right := m.renderLogsPanel(width)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to stop"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderHeader() string {
	stats := m.Stats()
	status := m.spinner.View() + " " + stats.Phase
	if stats.Phase == ui.PhaseDone {
		status = successStyle.Render("✓ done")
	}
	line := fmt.Sprintf("postarchiver · @%s · %s · %s", m.channel, status, formatDuration(time.Since(m.startTime)))
	return headerStyle.Width(m.width).Render(line)
}

// renderCollectionPanel shows the scroll loop counters
func (m *Model) renderCollectionPanel(width int) string {
	stats := m.Stats()
	title := titleStyle.Render(" COLLECTION ")

	rows := []string{
		row("Posts:", statsValueStyle.Render(fmt.Sprintf("%d", stats.Collected))),
		row("Scroll cycle:", statsValueStyle.Render(fmt.Sprintf("%d", stats.Cycle))),
		row("Idle cycles:", StallStyle(stats.Stalled, stallThreshold).Render(fmt.Sprintf("%d/%d", stats.Stalled, stallThreshold))),
		row("Page height:", statsValueStyle.Render(fmt.Sprintf("%dpx", stats.Height))),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

// renderEnrichmentPanel shows image, download and comment progress
func (m *Model) renderEnrichmentPanel(width int) string {
	stats := m.Stats()
	title := titleStyle.Render(" ENRICHMENT ")

	m.progress.Width = width - 8
	rows := []string{
		row("Post:", statsValueStyle.Render(fmt.Sprintf("%d/%d", stats.Index, stats.Total))),
		m.progress.ViewAs(stats.ratio()),
		row("Comments:", statsValueStyle.Render(fmt.Sprintf("%d", stats.Comments))),
		row("Images saved:", statsValueStyle.Render(fmt.Sprintf("%d (%s)", stats.Images, FormatBytes(stats.Bytes)))),
	}
	if stats.Failed > 0 {
		rows = append(rows, row("Failed:", errorStyle.Render(fmt.Sprintf("%d", stats.Failed))))
	}
	if stats.Checkpoints > 0 {
		rows = append(rows, row("Last save:", statsValueStyle.Render(stats.LastSave)))
	}

	m.mu.RLock()
	summary := m.summary
	m.mu.RUnlock()
	if summary != nil {
		rows = append(rows, "", successStyle.Render("Saved "+summary.OutputPath))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

// renderLogsPanel shows the most recent log lines
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 15
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		msg := log.Message
		if maxMsgLen > 3 && len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(msg)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := m.height - 10
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	lines := make([]string, 0, len(keys.bindings())+2)
	for _, b := range keys.bindings() {
		h := b.Help()
		lines = append(lines, fmt.Sprintf("  %-8s %s", h.Key, h.Desc))
	}
	lines = append(lines, "",
		"  Idle cycles: "+successStyle.Render("green")+" none, "+
			warningStyle.Render("orange")+" waiting, "+errorStyle.Render("red")+" about to finish")
	return panelStyle.Width(m.width).Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), value)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
