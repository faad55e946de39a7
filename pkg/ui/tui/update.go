package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"postarchiver/pkg/ui"
)

// Messages sent by TUI to the running program. Each one mirrors a
// ui.Reporter callback.
type (
	PhaseMsg struct{ Name string }

	ScrollMsg struct {
		Cycle     int
		Collected int
		Stalled   int
		Height    int64
	}

	PostMsg struct {
		Phase string
		Index int
		Total int
		Found int
	}

	DownloadMsg struct {
		URL  string
		Path string
		Size int
		Err  error
	}

	CheckpointMsg struct {
		Processed int
		Path      string
	}

	CompleteMsg struct{ Summary ui.Summary }

	LogMsg struct {
		Level   string
		Message string
	}

	// TickMsg refreshes the elapsed time once a second
	TickMsg time.Time
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmd = m.onKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
	case TickMsg:
		cmd = tickCmd()

	case PhaseMsg:
		m.SetPhase(msg.Name)
		m.AddLogMessage("INFO", "Phase: "+msg.Name)
	case ScrollMsg:
		m.RecordScroll(msg.Cycle, msg.Collected, msg.Stalled, msg.Height)
	case PostMsg:
		m.RecordPost(msg.Phase, msg.Index, msg.Total, msg.Found)
	case DownloadMsg:
		m.RecordDownload(msg.Size, msg.Err)
		if msg.Err != nil {
			m.AddLogMessage("ERROR", "Download failed: "+msg.URL+" - "+msg.Err.Error())
		}
	case CheckpointMsg:
		m.RecordCheckpoint(msg.Processed, msg.Path)
	case CompleteMsg:
		m.SetSummary(msg.Summary)
		m.AddLogMessage("SUCCESS", "Saved "+msg.Summary.OutputPath)
	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
	}

	return m, cmd
}

func (m *Model) onKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, keys.ClearLog):
		m.mu.Lock()
		m.logMessages = m.logMessages[:0]
		m.mu.Unlock()
	}
	return nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return TickMsg(t) })
}
