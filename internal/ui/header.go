package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Param is one key/value line in a header. Params keep their order.
type Param struct {
	Key   string
	Value string
}

// Header is a bordered box with a title, a subtitle and parameter lines
type Header struct {
	Title    string  // e.g., "PROVISIONING PORTAL"
	Subtitle string  // e.g., "softap-server v1.2.0"
	Params   []Param // e.g., {"Network", "SoftAP-Provision"}
	Width    int     // Terminal width for responsive rendering
}

// NewHeader creates a new header sized to the terminal
func NewHeader(title, subtitle string, params ...Param) *Header {
	return &Header{
		Title:    title,
		Subtitle: subtitle,
		Params:   params,
		Width:    GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	sections := []string{HeaderTitleStyle.Render(strings.ToUpper(h.Title))}
	if h.Subtitle != "" {
		sections = append(sections, HeaderSubtitleStyle.Render(h.Subtitle))
	}

	if len(h.Params) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		sections = append(sections, lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", dividerWidth)))

		for _, p := range h.Params {
			sections = append(sections, ParamKeyStyle.Render(p.Key+":")+ParamValueStyle.Render(p.Value))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	return boxStyle(width, lipgloss.RoundedBorder(), PrimaryColor).Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
