package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Banner printed before a run starts
const Banner = `
  ┌─────────────────────────────────────────┐
  │  postarchiver · community post archive  │
  └─────────────────────────────────────────┘
`

// Console colours. lipgloss drops the escape codes when the output is not a
// terminal, so redirected runs stay clean.
var (
	Cyan    = paint("6")
	Yellow  = paint("3")
	Red     = paint("1")
	Green   = paint("2")
	Magenta = paint("5")
	Dim     = func(s string) string { return lipgloss.NewStyle().Faint(true).Render(s) }
)

func paint(ansi string) func(string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ansi))
	return func(s string) string { return style.Render(s) }
}

// PrintBanner writes the banner to stderr, next to the progress line
func PrintBanner() {
	fmt.Fprint(os.Stderr, Cyan(Banner))
}

// PrintInfo prints "label: value"
func PrintInfo(label, value string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", Cyan(label), Yellow(value))
}

func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}
