// Package theme holds the terminal styles of the deepread CLI.
package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette: warm paper tones for a reading app
var (
	Primary = lipgloss.Color("#B45309") // Amber
	Accent  = lipgloss.Color("#0E7490") // Teal
	Success = lipgloss.Color("#15803D") // Green
	Warning = lipgloss.Color("#CA8A04") // Ochre
	Error   = lipgloss.Color("#BE123C") // Rose
	Text    = lipgloss.Color("#F5F5F4") // Stone
	TextDim = lipgloss.Color("#A8A29E") // Warm grey
	Border  = lipgloss.Color("#57534E")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// States
var (
	Passed = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Failed = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Placeholder = lipgloss.NewStyle().
			Foreground(Warning)
)

// LevelBadge renders "Level N · Name" for the header of a batch.
func LevelBadge(level int, name string) string {
	return lipgloss.NewStyle().
		Foreground(Text).
		Background(Accent).
		Bold(true).
		Padding(0, 1).
		Render(fmt.Sprintf("Level %d · %s", level, name))
}

// ScoreBar renders a 0..5 score as a five-cell bar.
func ScoreBar(score float64) string {
	filled := int(score + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 5 {
		filled = 5
	}
	style := Failed
	if score >= 3 {
		style = Passed
	}
	return style.Render(strings.Repeat("■", filled)) +
		lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("□", 5-filled))
}
