package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the CLI color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme matches the project's terminal branding.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00b4ff"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#ff5f56"),
}

// Styles holds the derived lipgloss styles used by the commands.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Help  lipgloss.Style
	Error lipgloss.Style
}

// NewStyles derives styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Value: lipgloss.NewStyle(),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
		Error: lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// Banner renders a one-line startup banner.
func (s Styles) Banner(name, detail string) string {
	return fmt.Sprintf("%s %s", s.Title.Render(name), s.Help.Render(detail))
}

// KV renders an aligned "label: value" line.
func (s Styles) KV(label, value string) string {
	return fmt.Sprintf("%s %s", s.Label.Render(label+":"), s.Value.Render(value))
}
