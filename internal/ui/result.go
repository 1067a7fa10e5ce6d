package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Result is a success or failure box
type Result struct {
	Type    ResultType
	Title   string  // e.g., "Device provisioned"
	Details []Param // Key-value details to display
	Error   error   // Error (for failure results)
	Hint    string  // Troubleshooting text (for failure results)
	Width   int     // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Param) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, hint string) *Result {
	return &Result{
		Type:  ResultFailure,
		Title: title,
		Error: err,
		Hint:  hint,
		Width: GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	titleStyle, marker, label, color := SuccessTitleStyle, SuccessMarker, "SUCCESS", SuccessColor
	if r.Type == ResultFailure {
		titleStyle, marker, label, color = ErrorTitleStyle, FailureMarker, "FAILED", ErrorColor
	}

	lines := []string{"", titleStyle.Render(fmt.Sprintf(" %s  %s  ─  %s", marker, label, r.Title)), ""}

	for _, d := range r.Details {
		lines = append(lines, ParamKeyStyle.Render(d.Key+":")+ParamValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render(" Error: "+r.Error.Error()), "")
	}
	if r.Hint != "" {
		for _, line := range strings.Split(r.Hint, "\n") {
			lines = append(lines, HintStyle.Render(" "+line))
		}
		lines = append(lines, "")
	}

	return boxStyle(width, lipgloss.DoubleBorder(), color).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
