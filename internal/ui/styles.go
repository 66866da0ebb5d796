package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#1E88E5") // Blue - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - on, connected
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - connecting
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info, off
	TextColor    = lipgloss.Color("#FFFFFF")
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
	volumeBarWidth   = 20
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	keyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	onStyle = lipgloss.NewStyle().
		Foreground(SuccessColor).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	successTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	volumeFillStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)
)

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	StatusDot     = "●"
)

// StatusStyle returns the badge style for a connection status name
func StatusStyle(status string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch status {
	case "connected":
		return s.Foreground(SuccessColor)
	case "connecting":
		return s.Foreground(WarningColor)
	case "error":
		return s.Foreground(ErrorColor)
	default:
		return s.Foreground(MutedColor)
	}
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _ := GetTerminalSize()
	return width
}

// GetTerminalSize returns the current terminal width and height
func GetTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth, 24
	}
	return clampWidth(width), height
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// PanelBoxStyle returns the border style for the control panel
func PanelBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width-2).
		Padding(0, 1)
}

// SuccessBoxStyle returns the border style for success result boxes
func SuccessBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SuccessColor).
		Width(width-2).
		Padding(0, 2)
}

// ErrorBoxStyle returns the border style for error result boxes
func ErrorBoxStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ErrorColor).
		Width(width-2).
		Padding(0, 2)
}

// RenderDivider draws a horizontal rule in the primary color
func RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return lipgloss.NewStyle().
		Foreground(PrimaryColor).
		Render(strings.Repeat("─", width))
}

// RenderVolumeBar draws level (0-100) as a fixed-width bar
func RenderVolumeBar(level byte) string {
	if level > 100 {
		level = 100
	}
	filled := int(level) * volumeBarWidth / 100
	return volumeFillStyle.Render(strings.Repeat("█", filled)) +
		offStyle.Render(strings.Repeat("░", volumeBarWidth-filled))
}

// RenderOnOff renders a boolean mirrored value
func RenderOnOff(on bool) string {
	if on {
		return onStyle.Render("ON")
	}
	return offStyle.Render("OFF")
}
