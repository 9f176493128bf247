// Package tui provides terminal output styling for lplocker.
package tui

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	ColorPrimary = lipgloss.Color("39")  // Blue
	ColorSuccess = lipgloss.Color("42")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorMuted   = lipgloss.Color("240") // Dark gray
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	StatusLocked = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	StatusMatured = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	StatusWithdrawn = lipgloss.NewStyle().
			Foreground(ColorMuted)

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("245")).
			Width(18)
)

// RenderLockStatus renders a lock's state for table output: locked while
// before maturity, matured once withdrawable, withdrawn when terminal.
func RenderLockStatus(active bool, unlockAt time.Time, now time.Time) string {
	switch {
	case !active:
		return StatusWithdrawn.Render("withdrawn")
	case now.Before(unlockAt):
		return StatusLocked.Render("locked")
	default:
		return StatusMatured.Render("matured")
	}
}
