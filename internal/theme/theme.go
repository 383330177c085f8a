package theme

import (
	"github.com/charmbracelet/lipgloss"

	"ragdesk/pkg/chat"
	"ragdesk/pkg/notify"
)

// Theme represents the terminal colour scheme shared by the console and
// the TUI.
type Theme struct {
	Name           string
	PrimaryColor   lipgloss.Color
	SecondaryColor lipgloss.Color
	AccentColor    lipgloss.Color
	MutedColor     lipgloss.Color
	SuccessColor   lipgloss.Color
	WarningColor   lipgloss.Color
	ErrorColor     lipgloss.Color
}

// DefaultTheme returns the default theme configuration
func DefaultTheme() *Theme {
	return &Theme{
		Name:           "Default",
		PrimaryColor:   lipgloss.Color("63"),
		SecondaryColor: lipgloss.Color("39"),
		AccentColor:    lipgloss.Color("99"),
		MutedColor:     lipgloss.Color("242"),
		SuccessColor:   lipgloss.Color("42"),
		WarningColor:   lipgloss.Color("214"),
		ErrorColor:     lipgloss.Color("196"),
	}
}

// Styles are the rendered styles built from a Theme.
type Styles struct {
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Help      lipgloss.Style
	Prompt    lipgloss.Style
	Modal     lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Typing    lipgloss.Style

	severity map[notify.Severity]lipgloss.Style
}

func (t *Theme) Styles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.PrimaryColor).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.SecondaryColor),
		Dim:    lipgloss.NewStyle().Foreground(t.MutedColor),
		Help:   lipgloss.NewStyle().Foreground(t.MutedColor),
		Prompt: lipgloss.NewStyle().Bold(true).Foreground(t.AccentColor),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.ErrorColor).
			Padding(0, 1),
		User: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.SecondaryColor),
		Assistant: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.AccentColor),
		Typing: lipgloss.NewStyle().
			Foreground(t.MutedColor).
			Italic(true),
		severity: map[notify.Severity]lipgloss.Style{
			notify.Info:    lipgloss.NewStyle().Foreground(t.SecondaryColor),
			notify.Success: lipgloss.NewStyle().Foreground(t.SuccessColor),
			notify.Warning: lipgloss.NewStyle().Foreground(t.WarningColor),
			notify.Error:   lipgloss.NewStyle().Bold(true).Foreground(t.ErrorColor),
		},
	}
}

// Notice colours a notice line by severity. It has the shape of
// notify.Writer.Style.
func (s *Styles) Notice(severity notify.Severity, line string) string {
	style, ok := s.severity[severity]
	if !ok {
		return line
	}
	return style.Render(line)
}

// Bubble renders one transcript line.
func (s *Styles) Bubble(b chat.Bubble) string {
	switch {
	case b.Typing:
		return s.Typing.Render(b.Line())
	case b.Sender == chat.SenderUser:
		return s.User.Render(b.Line())
	default:
		return s.Assistant.Render(b.Line())
	}
}
