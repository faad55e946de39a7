package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"postarchiver/pkg/ui"
)

// Stats is a snapshot of the counters shown on the dashboard
type Stats struct {
	Phase       string
	Collected   int
	Cycle       int
	Stalled     int
	Height      int64
	Index       int
	Total       int
	Comments    int
	Images      int
	Failed      int
	Bytes       int64
	Checkpoints int
	LastSave    string
}

// Model is the dashboard state
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	channel   string
	stats     Stats
	summary   *ui.Summary
	startTime time.Time

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a dashboard for channel
func NewModel(channel string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:        s,
		progress:       p,
		channel:        channel,
		stats:          Stats{Phase: ui.PhaseStartup},
		startTime:      time.Now(),
		logMessages:    []LogMessage{},
		maxLogMessages: 50,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetPhase switches the current phase and resets per-post progress
func (m *Model) SetPhase(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Phase = name
	m.stats.Index, m.stats.Total = 0, 0
}

// RecordScroll records one scroll cycle
func (m *Model) RecordScroll(cycle, collected, stalled int, height int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Cycle = cycle
	m.stats.Collected = collected
	m.stats.Stalled = stalled
	m.stats.Height = height
}

// RecordPost records that phase finished post index of total
func (m *Model) RecordPost(phase string, index, total, found int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Phase = phase
	m.stats.Index = index
	m.stats.Total = total
	if phase == ui.PhaseComments {
		m.stats.Comments += found
	}
}

// RecordDownload records one image download
func (m *Model) RecordDownload(size int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.stats.Failed++
		return
	}
	m.stats.Images++
	m.stats.Bytes += int64(size)
}

// RecordCheckpoint records a progress snapshot
func (m *Model) RecordCheckpoint(processed int, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.Checkpoints++
	m.stats.LastSave = fmt.Sprintf("%d posts", processed)
}

// SetSummary marks the run finished
func (m *Model) SetSummary(s ui.Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summary = &s
	m.stats.Phase = ui.PhaseDone
}

// Stats returns a copy of the current counters
func (m *Model) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR", "FATAL":
		color = errorRed
	case "WARN":
		color = warnOrange
	case "SUCCESS":
		color = okGreen
	case "INFO":
		color = accent
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// ratio returns the completed share of the current phase
func (s Stats) ratio() float64 {
	if s.Total <= 0 {
		return 0
	}
	r := float64(s.Index) / float64(s.Total)
	if r > 1 {
		r = 1
	}
	return r
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
