package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	accent     = lipgloss.Color("#FF4E45")
	highlight  = lipgloss.Color("#3EA6FF")
	okGreen    = lipgloss.Color("#2BA640")
	warnOrange = lipgloss.Color("#F9A825")
	errorRed   = lipgloss.Color("#E53935")
	valueGold  = lipgloss.Color("#F1F1F1")
	darkBg     = lipgloss.Color("#0F0F0F")
	panelBg    = lipgloss.Color("#181818")
	dimWhite   = lipgloss.Color("#AAAAAA")
	faint      = lipgloss.Color("#606060")
)

var (
	bold = lipgloss.NewStyle().Bold(true)

	baseStyle   = lipgloss.NewStyle().Background(darkBg).Foreground(dimWhite)
	headerStyle = bold.Foreground(accent).Padding(1, 0).Align(lipgloss.Center)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Background(panelBg).
			Padding(1, 2)
	titleStyle = bold.Background(highlight).Foreground(darkBg).Padding(0, 1)

	statsLabelStyle = bold.Foreground(highlight)
	statsValueStyle = lipgloss.NewStyle().Foreground(valueGold)

	successStyle = bold.Foreground(okGreen)
	warningStyle = bold.Foreground(warnOrange)
	errorStyle   = bold.Foreground(errorRed)

	logTimestampStyle = lipgloss.NewStyle().Foreground(faint)
	logMessageStyle   = lipgloss.NewStyle().Foreground(dimWhite)
	helpStyle         = lipgloss.NewStyle().Foreground(faint).PaddingTop(1).PaddingLeft(2)
)

// StallStyle colours the idle cycle counter: green while posts keep
// arriving, red one cycle before the collector gives up
func StallStyle(stalled, threshold int) lipgloss.Style {
	if threshold > 0 && stalled >= threshold-1 {
		return errorStyle
	}
	if stalled > 0 {
		return warningStyle
	}
	return successStyle
}
