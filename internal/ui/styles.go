package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, X marks
	WarningColor = lipgloss.Color("#FFA500") // Orange - in-flight states
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	// HeaderTitleStyle is for box titles (e.g., "PROVISIONING PORTAL")
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	// HeaderSubtitleStyle is for the line under the title
	HeaderSubtitleStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	// ParamKeyStyle is for parameter keys (e.g., "Network:")
	ParamKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2).
			Width(14)

	// ParamValueStyle is for parameter values
	ParamValueStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// SuccessTitleStyle is for the success result title
	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	// ErrorTitleStyle is for the error result title
	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// ErrorMessageStyle is for error message text
	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// HintStyle is for troubleshooting text
	HintStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// SpinnerStyle colors the watch spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// StateStyles color provisioning states by name
	StateStyles = map[string]lipgloss.Style{
		"unconfigured": lipgloss.NewStyle().Foreground(MutedColor),
		"ap_active":    lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true),
		"connecting":   lipgloss.NewStyle().Foreground(WarningColor).Bold(true),
		"configured":   lipgloss.NewStyle().Foreground(SuccessColor).Bold(true),
	}
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	RunningMarker = "●"
)

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// clampWidth keeps a caller-supplied width within the supported range
func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// StateStyle returns the style for a state name
func StateStyle(state string) lipgloss.Style {
	if s, ok := StateStyles[state]; ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(TextColor)
}

// boxStyle returns a bordered box of the given width and color
func boxStyle(width int, border lipgloss.Border, color lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Width(width-2). // Account for border characters
		Padding(0, 1)
}
