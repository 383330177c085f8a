package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ragdesk/internal/theme"
	"ragdesk/pkg/api"
	"ragdesk/pkg/chat"
	"ragdesk/pkg/documents"
	"ragdesk/pkg/notify"
)

type echoClient struct{}

func (echoClient) Chat(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	return &api.ChatResponse{Response: "re: " + req.Message}, nil
}

func (echoClient) ChatHistory(context.Context, string) ([]api.HistoryEntry, error) {
	return nil, nil
}

type lister struct {
	docs []api.Document
	err  error
}

func (l lister) ListDocuments(context.Context) ([]api.Document, error) {
	return l.docs, l.err
}

func newTestModel(l lister) (Model, *notify.Recorder) {
	rec := &notify.Recorder{}
	docs := documents.NewView(l, documents.WithNotifier(rec))
	stats := documents.NewPanel(l)
	widget := chat.NewWidget(echoClient{})
	return NewModel(context.Background(), widget, docs, stats, rec, theme.DefaultTheme().Styles()), rec
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func TestModel_SendAndReply(t *testing.T) {
	m, _ := newTestModel(lister{})
	m = typeText(t, m, "hello")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("Expected a command waiting for the reply")
	}
	if m.input.Value() != "" {
		t.Errorf("Expected input to be cleared, got %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "Assistant is typing...") {
		t.Errorf("Expected typing placeholder in view:\n%s", m.View())
	}
	if !strings.Contains(m.View(), "waiting for reply") {
		t.Error("Expected in-flight hint")
	}

	next, _ = m.Update(cmd())
	m = next.(Model)
	view := m.View()
	if !strings.Contains(view, "re: hello") {
		t.Errorf("Expected reply in view:\n%s", view)
	}
	if strings.Contains(view, "Assistant is typing...") {
		t.Error("Expected placeholder to be replaced")
	}
	if m.inflight != 0 {
		t.Errorf("Expected nothing in flight, got %d", m.inflight)
	}
}

func TestModel_EmptyEnterDoesNothing(t *testing.T) {
	m, _ := newTestModel(lister{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Expected no command for empty input")
	}
	if n := len(next.(Model).widget.Transcript().Bubbles()); n != 0 {
		t.Errorf("Expected no bubbles, got %d", n)
	}
}

func TestModel_DocumentsPane(t *testing.T) {
	m, _ := newTestModel(lister{docs: []api.Document{
		{ID: "1", Filename: "report.pdf", FileType: "pdf", FileSize: 1536, Chunks: 3, Processed: true},
	}})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.pane != paneDocuments {
		t.Fatal("Expected documents pane")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)

	view := m.View()
	for _, want := range []string{"report.pdf", "1.5 KB", "Total documents: 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected %q in view:\n%s", want, view)
		}
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if next.(Model).pane != paneChat {
		t.Error("Expected tab to return to chat")
	}
}

func TestModel_ShowsNotices(t *testing.T) {
	m, _ := newTestModel(lister{err: errors.New("down")})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)

	if !strings.Contains(m.View(), "Failed to load documents") {
		t.Errorf("Expected load failure notice in view:\n%s", m.View())
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(lister{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if next.(Model).View() != "" {
		t.Error("Expected empty view after quitting")
	}
}
