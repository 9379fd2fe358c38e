package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Accent = lipgloss.Color("#667eea")

	Heading = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	Prompt  = lipgloss.NewStyle().Foreground(Accent)
	Dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	Warn    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	Failure = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	Star    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// Stars renders a 0-5 rating in half steps, e.g. "★★★½☆".
func Stars(v float64) string {
	return Star.Render(stars(v))
}

func stars(v float64) string {
	full := int(v)
	half := v-float64(full) >= 0.5
	var b strings.Builder
	b.WriteString(strings.Repeat("★", full))
	empty := 5 - full
	if half {
		b.WriteString("½")
		empty--
	}
	if empty > 0 {
		b.WriteString(strings.Repeat("☆", empty))
	}
	return b.String()
}

// KeyValue renders aligned "key  value" rows.
func KeyValue(rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s  %s\n", Dim.Render(r[0]+strings.Repeat(" ", width-lipgloss.Width(r[0]))), r[1])
	}
	return b.String()
}
