package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"

	"github.com/yumet023/proplate/pkg/types"
)

var errorLabelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(lipgloss.Color("#D7263D")).
	Padding(0, 1)

var errorMessageStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#D7263D"))

var warnLabelStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#1D1D1D")).
	Background(lipgloss.Color("#F4A261")).
	Padding(0, 1)

var (
	mutedStyle = pterm.NewStyle(pterm.FgGray)
	keyStyle   = pterm.NewStyle(pterm.FgCyan, pterm.Bold)
)

// actionStyle colors plan actions in the terminal table
func actionStyle(kind types.ActionKind) *pterm.Style {
	switch kind {
	case types.ActionRender:
		return pterm.NewStyle(pterm.FgGreen)
	case types.ActionCopy:
		return pterm.NewStyle(pterm.FgBlue)
	case types.ActionMkdir:
		return pterm.NewStyle(pterm.FgCyan)
	default:
		return mutedStyle
	}
}
