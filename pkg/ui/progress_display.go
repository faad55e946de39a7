package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressDisplay renders run progress as a single, continuously rewritten
// console line
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	channel    string
	phase      string
	collected  int
	cycle      int
	stalled    int
	index      int
	total      int
	downloaded int
	failed     int
	bytes      int64
	saves      int
	startTime  time.Time
	verbose    bool
}

var _ Reporter = (*ProgressDisplay)(nil)

// NewProgressDisplay creates a display for channel. In verbose mode log
// output shares the terminal, so events are printed on their own lines
// instead of rewriting the status line.
func NewProgressDisplay(channel string, verbose bool) *ProgressDisplay {
	return NewProgressDisplayWithWriter(os.Stderr, channel, verbose)
}

// NewProgressDisplayWithWriter creates a display that writes to out
func NewProgressDisplayWithWriter(out io.Writer, channel string, verbose bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		channel:   channel,
		phase:     PhaseStartup,
		startTime: time.Now(),
		verbose:   verbose,
	}
}

// Phase switches the label shown on the status line
func (p *ProgressDisplay) Phase(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.phase = name
	p.index, p.total = 0, 0
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s\n", Magenta("→"), name)
		return
	}
	p.printProgress()
}

// ScrollCycle records one pass of the feed scroll loop
func (p *ProgressDisplay) ScrollCycle(cycle, collected, stalled int, height int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cycle, p.collected, p.stalled = cycle, collected, stalled
	if !p.verbose {
		p.printProgress()
	}
}

// PostProgress records that phase finished post index of total
func (p *ProgressDisplay) PostProgress(phase string, index, total, found int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.phase, p.index, p.total = phase, index, total
	if p.verbose {
		fmt.Fprintf(p.out, "%s %s %d/%d • %d found\n", Green("✓"), phase, index, total, found)
		return
	}
	p.printProgress()
}

// ImageDownloaded records one image download
func (p *ProgressDisplay) ImageDownloaded(url, path string, size int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.failed++
		if p.verbose {
			fmt.Fprintf(p.out, "%s %s - %v\n", Red("✗"), url, err)
			return
		}
	} else {
		p.downloaded++
		p.bytes += int64(size)
	}
	if !p.verbose {
		p.printProgress()
	}
}

// Checkpoint records a progress snapshot
func (p *ProgressDisplay) Checkpoint(processed int, path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.saves++
	if p.verbose {
		fmt.Fprintf(p.out, "%s saved %d posts to %s\n", Dim("•"), processed, path)
	}
}

// printProgress rewrites the status line
func (p *ProgressDisplay) printProgress() {
	var line string
	switch p.phase {
	case PhaseCollect:
		line = fmt.Sprintf("%s %s • %d posts • cycle %d", Cyan(p.channel), p.phase, p.collected, p.cycle)
		if p.stalled > 0 {
			line += " • " + Yellow(fmt.Sprintf("%d idle", p.stalled))
		}
	case PhaseImages, PhaseDownload, PhaseComments:
		line = fmt.Sprintf("%s %s [%s] %d/%d", Cyan(p.channel), p.phase, bar(p.index, p.total, 20), p.index, p.total)
	default:
		line = fmt.Sprintf("%s %s", Cyan(p.channel), p.phase)
	}

	if p.downloaded > 0 {
		line += fmt.Sprintf(" • %d images (%s)", p.downloaded, formatBytes(p.bytes))
	}
	if p.failed > 0 {
		line += " • " + Red(fmt.Sprintf("%d failed", p.failed))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

// Complete prints the run summary
func (p *ProgressDisplay) Complete(s Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	verb := "Archived"
	if s.Interrupted {
		verb = "Interrupted after archiving"
	}
	fmt.Fprintf(p.out, "\n\n%s %s %d posts from @%s\n", Green("✓"), verb, s.Posts, s.Channel)
	fmt.Fprintf(p.out, "  %s %d comments, %d images in %s\n", Dim("•"), s.Comments, s.Images, formatDuration(s.Elapsed))
	if s.FailedDownloads > 0 {
		fmt.Fprintf(p.out, "  %s %d downloads failed\n", Dim("•"), s.FailedDownloads)
	}
	if s.OutputPath != "" {
		fmt.Fprintf(p.out, "  %s %s\n", Dim("•"), s.OutputPath)
	}
}

// LogInfo prints an informational line
func (p *ProgressDisplay) LogInfo(format string, args ...interface{}) {
	p.printLine(Cyan("i"), fmt.Sprintf(format, args...))
}

// LogWarning prints a warning line
func (p *ProgressDisplay) LogWarning(format string, args ...interface{}) {
	p.printLine(Yellow("⚠"), fmt.Sprintf(format, args...))
}

// LogError prints an error line
func (p *ProgressDisplay) LogError(format string, args ...interface{}) {
	p.printLine(Red("✗"), fmt.Sprintf(format, args...))
}

func (p *ProgressDisplay) printLine(icon, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s %s\n", icon, msg)
}

// bar renders a fixed width progress bar
func bar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("━", filled) + strings.Repeat("─", width-filled)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatBytes formats bytes in a human-readable way
func formatBytes(bytes int64) string {
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
