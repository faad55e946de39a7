package ui

import "time"

// Run phases shown to the user
const (
	PhaseStartup  = "startup"
	PhaseCollect  = "collect"
	PhaseImages   = "images"
	PhaseDownload = "download"
	PhaseComments = "comments"
	PhaseDone     = "done"
)

// Summary describes a finished run
type Summary struct {
	Channel         string
	Posts           int
	Images          int
	Comments        int
	FailedDownloads int
	OutputPath      string
	Elapsed         time.Duration
	Interrupted     bool
}

// Reporter receives progress events from a run. The console display and the
// dashboard both implement it.
type Reporter interface {
	Phase(name string)
	ScrollCycle(cycle, collected, stalled int, height int64)
	PostProgress(phase string, index, total, found int)
	ImageDownloaded(url, path string, size int, err error)
	Checkpoint(processed int, path string)
	Complete(summary Summary)
	LogInfo(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}

// NopReporter discards every event
type NopReporter struct{}

func (NopReporter) Phase(string) {}
func (NopReporter) ScrollCycle(int, int, int, int64) {}
func (NopReporter) PostProgress(string, int, int, int) {}
func (NopReporter) ImageDownloaded(string, string, int, error) {}
func (NopReporter) Checkpoint(int, string) {}
func (NopReporter) Complete(Summary) {}
func (NopReporter) LogInfo(string, ...interface{}) {}
func (NopReporter) LogWarning(string, ...interface{}) {}
func (NopReporter) LogError(string, ...interface{}) {}
