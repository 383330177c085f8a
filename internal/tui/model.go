// Package tui is the full-screen chat surface. The transcript scrolls in a
// viewport above a single line input; tab swaps the transcript for the
// document table.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragdesk/internal/theme"
	"ragdesk/pkg/chat"
	"ragdesk/pkg/documents"
	"ragdesk/pkg/notify"
)

type pane int

const (
	paneChat pane = iota
	paneDocuments
)

// lines kept for the input, notices and help under the viewport
const chromeHeight = 6

type replyMsg struct {
	bubble chat.Bubble
}

type documentsLoadedMsg struct{}

type Model struct {
	ctx     context.Context
	widget  *chat.Widget
	docs    *documents.View
	stats   *documents.Panel
	notices *notify.Recorder
	styles  *theme.Styles

	input    textinput.Model
	viewport viewport.Model
	pane     pane
	shown    []notify.Notice
	inflight int
	width    int
	height   int
	quitting bool
}

// NewModel builds the model. notices must be the recorder the components
// report to; the model drains it after every update.
func NewModel(ctx context.Context, widget *chat.Widget, docs *documents.View, stats *documents.Panel, notices *notify.Recorder, styles *theme.Styles) Model {
	in := textinput.New()
	in.Placeholder = "Ask something..."
	in.CharLimit = 2000
	in.Prompt = "> "
	in.Focus()

	m := Model{
		ctx:      ctx,
		widget:   widget,
		docs:     docs,
		stats:    stats,
		notices:  notices,
		styles:   styles,
		input:    in,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   20 + chromeHeight,
	}
	m.refreshTranscript()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.shown = append(m.shown, m.notices.Drain()...)
	if len(m.shown) > 3 {
		m.shown = m.shown[len(m.shown)-3:]
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeHeight)
		m.input.Width = max(10, msg.Width-4)
		m.refreshTranscript()
		return m, nil

	case replyMsg:
		m.inflight--
		m.refreshTranscript()
		return m, nil

	case documentsLoadedMsg:
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		if m.pane == paneChat {
			m.pane = paneDocuments
			return m, m.loadDocuments()
		}
		m.pane = paneChat
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case "enter":
		if m.pane != paneChat {
			return m, nil
		}
		ex, err := m.widget.Start(m.input.Value())
		if err != nil {
			return m, nil
		}
		m.input.Reset()
		m.inflight++
		m.refreshTranscript()
		return m, m.finish(ex)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// finish waits for the reply off the update loop. Several may be in flight
// at once; each settles its own placeholder.
func (m Model) finish(ex *chat.Exchange) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return replyMsg{bubble: ex.Finish(ctx)}
	}
}

func (m Model) loadDocuments() tea.Cmd {
	ctx := m.ctx
	docs, stats := m.docs, m.stats
	return func() tea.Msg {
		_ = docs.Load(ctx)
		_ = stats.Load(ctx)
		return documentsLoadedMsg{}
	}
}

func (m *Model) refreshTranscript() {
	bubbles := m.widget.Transcript().Bubbles()
	if len(bubbles) == 0 {
		m.viewport.SetContent(m.styles.Dim.Render("No messages yet. Type below and press enter."))
		return
	}

	lines := make([]string, len(bubbles))
	for i, b := range bubbles {
		lines[i] = m.styles.Bubble(b)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	title := "ragdesk chat"
	if m.pane == paneDocuments {
		title = "ragdesk documents"
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n")

	switch m.pane {
	case paneDocuments:
		if err := m.docs.Render(&b, m.styles.Header); err != nil {
			b.WriteString(err.Error())
		}
		b.WriteString("\n")
		_ = m.stats.Render(&b)
	default:
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")

	for _, n := range m.shown {
		b.WriteString(m.styles.Notice(n.Severity, n.Message))
		b.WriteString("\n")
	}

	if m.pane == paneChat {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render(m.help()))

	return lipgloss.NewStyle().MaxWidth(m.width).Render(b.String())
}

func (m Model) help() string {
	if m.pane == paneDocuments {
		return "tab: chat  esc: quit"
	}
	help := "enter: send  pgup/pgdown: scroll  tab: documents  esc: quit"
	if m.inflight > 0 {
		help = "waiting for reply  " + help
	}
	return help
}

// Run starts the program on the alternate screen and blocks until the user
// quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	return err
}
