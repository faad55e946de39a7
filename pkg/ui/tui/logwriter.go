package tui

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// LogWriter turns JSON log lines into log panel messages. Pass it to
// logger.NewWithWriter with the json format while the dashboard is up, so
// log output does not tear the alternate screen.
type LogWriter struct {
	send func(tea.Msg)

	mu      sync.Mutex
	pending []byte
}

// NewLogWriter forwards log lines to t
func NewLogWriter(t *TUI) *LogWriter {
	return &LogWriter{send: t.Send}
}

// Write splits p into lines and sends one LogMsg per complete line
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(w.pending[:i])
		w.pending = w.pending[i+1:]
		if len(line) > 0 {
			w.send(parseLine(line))
		}
	}
	return len(p), nil
}

// parseLine reads level and message from a zerolog JSON line. Anything
// else is shown verbatim.
func parseLine(line []byte) LogMsg {
	var entry struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(line, &entry); err != nil || entry.Message == "" {
		return LogMsg{Level: "INFO", Message: string(line)}
	}

	msg := entry.Message
	if entry.Error != "" {
		msg += ": " + entry.Error
	}
	return LogMsg{Level: strings.ToUpper(entry.Level), Message: msg}
}
