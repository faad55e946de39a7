package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"postarchiver/pkg/ui"
)

// TUI is the full-screen dashboard. It implements ui.Reporter so a run can
// report to it the same way it reports to the console display.
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ ui.Reporter = (*TUI)(nil)

// NewTUI creates a dashboard for channel
func NewTUI(channel string, opts ...tea.ProgramOption) *TUI {
	model := NewModel(channel)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}

	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Start shows the dashboard and blocks until the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Send forwards msg to the program. It blocks until Start is running and
// is a no-op once the program has exited.
func (t *TUI) Send(msg tea.Msg) {
	t.program.Send(msg)
}

func (t *TUI) Phase(name string) {
	t.Send(PhaseMsg{Name: name})
}

func (t *TUI) ScrollCycle(cycle, collected, stalled int, height int64) {
	t.Send(ScrollMsg{Cycle: cycle, Collected: collected, Stalled: stalled, Height: height})
}

func (t *TUI) PostProgress(phase string, index, total, found int) {
	t.Send(PostMsg{Phase: phase, Index: index, Total: total, Found: found})
}

func (t *TUI) ImageDownloaded(url, path string, size int, err error) {
	t.Send(DownloadMsg{URL: url, Path: path, Size: size, Err: err})
}

func (t *TUI) Checkpoint(processed int, path string) {
	t.Send(CheckpointMsg{Processed: processed, Path: path})
}

func (t *TUI) Complete(summary ui.Summary) {
	t.Send(CompleteMsg{Summary: summary})
}

// Log sends a log line to the log panel
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}
