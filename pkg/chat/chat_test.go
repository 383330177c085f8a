package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ragdesk/pkg/api"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []api.ChatRequest
	reply    func(req api.ChatRequest) (*api.ChatResponse, error)
	history  []api.HistoryEntry
	histErr  error
}

func (c *fakeClient) Chat(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	reply := c.reply
	c.mu.Unlock()
	if reply == nil {
		return &api.ChatResponse{Response: "You said: " + req.Message}, nil
	}
	return reply(req)
}

func (c *fakeClient) ChatHistory(_ context.Context, _ string) ([]api.HistoryEntry, error) {
	return c.history, c.histErr
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 5, 0, 0, time.Local)
}

func TestNewWidget_SessionID(t *testing.T) {
	w := NewWidget(&fakeClient{})
	if !strings.HasPrefix(w.SessionID(), "session_") {
		t.Errorf("Expected session_ prefix, got %s", w.SessionID())
	}
	if w.SessionID() != w.SessionID() {
		t.Error("Session id must be stable")
	}
	if NewWidget(&fakeClient{}).SessionID() == w.SessionID() {
		t.Error("Expected distinct session ids per widget")
	}

	resumed := NewWidget(&fakeClient{}, WithSessionID("session_abc"))
	if resumed.SessionID() != "session_abc" {
		t.Errorf("Expected resumed id, got %s", resumed.SessionID())
	}
}

func TestSend_Empty(t *testing.T) {
	client := &fakeClient{}
	w := NewWidget(client)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := w.Send(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q): expected ErrEmptyMessage, got %v", text, err)
		}
	}
	if len(w.Transcript().Bubbles()) != 0 || len(client.requests) != 0 {
		t.Error("Empty sends must not touch the transcript or the backend")
	}
}

func TestStart_AddsUserBubbleAndPlaceholder(t *testing.T) {
	w := NewWidget(&fakeClient{}, WithClock(fixedClock))

	ex, err := w.Start("  hello  ")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	bubbles := w.Transcript().Bubbles()
	if len(bubbles) != 2 {
		t.Fatalf("Expected 2 bubbles, got %d", len(bubbles))
	}
	if bubbles[0].Sender != SenderUser || bubbles[0].Text != "hello" {
		t.Errorf("Unexpected user bubble: %+v", bubbles[0])
	}
	if !bubbles[1].Typing || bubbles[1].ID != ex.Placeholder.ID {
		t.Errorf("Expected typing placeholder, got %+v", bubbles[1])
	}
	if w.Transcript().Pending() != 1 {
		t.Errorf("Expected one pending reply")
	}
	if bubbles[0].Line() != "[09:05] You: hello" {
		t.Errorf("Unexpected line: %s", bubbles[0].Line())
	}
}

func TestSend_Replies(t *testing.T) {
	tests := []struct {
		name     string
		reply    func(api.ChatRequest) (*api.ChatResponse, error)
		expected string
	}{
		{
			name: "success",
			reply: func(api.ChatRequest) (*api.ChatResponse, error) {
				return &api.ChatResponse{Response: "Hello! How can I help you?"}, nil
			},
			expected: "Hello! How can I help you?",
		},
		{
			name: "empty response",
			reply: func(api.ChatRequest) (*api.ChatResponse, error) {
				return &api.ChatResponse{}, nil
			},
			expected: NoResponse,
		},
		{
			name: "transport failure",
			reply: func(api.ChatRequest) (*api.ChatResponse, error) {
				return nil, &api.TransportError{Op: "POST /api/chat", Err: errors.New("connection refused")}
			},
			expected: ConnectFailure,
		},
		{
			name: "application error",
			reply: func(api.ChatRequest) (*api.ChatResponse, error) {
				return nil, &api.Error{Status: 500, Detail: "boom"}
			},
			expected: NoResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{reply: tt.reply}
			w := NewWidget(client, WithClock(fixedClock))

			bot, err := w.Send(context.Background(), "hello")
			if err != nil {
				t.Fatalf("Send failed: %v", err)
			}
			if bot.Text != tt.expected || bot.Sender != SenderBot || bot.Typing {
				t.Errorf("Unexpected reply bubble: %+v", bot)
			}

			bubbles := w.Transcript().Bubbles()
			if len(bubbles) != 2 {
				t.Fatalf("Expected user bubble and reply, got %d", len(bubbles))
			}
			if bubbles[0].Text != "hello" || bubbles[1].Text != tt.expected {
				t.Errorf("Unexpected transcript: %+v", bubbles)
			}
			if w.Transcript().Pending() != 0 {
				t.Error("Placeholder should be gone")
			}

			if client.requests[0].Message != "hello" || client.requests[0].SessionID != w.SessionID() {
				t.Errorf("Unexpected request: %+v", client.requests[0])
			}
		})
	}
}

func TestSend_OverlappingRepliesReplaceTheirOwnPlaceholder(t *testing.T) {
	release := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	client := &fakeClient{reply: func(req api.ChatRequest) (*api.ChatResponse, error) {
		<-release[req.Message]
		return &api.ChatResponse{Response: "re: " + req.Message}, nil
	}}
	w := NewWidget(client)

	first, _ := w.Start("first")
	second, _ := w.Start("second")

	var wg sync.WaitGroup
	results := make(map[string]Bubble)
	var mu sync.Mutex
	for name, ex := range map[string]*Exchange{"first": first, "second": second} {
		wg.Add(1)
		go func(name string, ex *Exchange) {
			defer wg.Done()
			b := ex.Finish(context.Background())
			mu.Lock()
			results[name] = b
			mu.Unlock()
		}(name, ex)
	}

	// The second reply arrives first.
	close(release["second"])
	waitFor(t, func() bool { return w.Transcript().Pending() == 1 })
	close(release["first"])
	wg.Wait()

	if results["first"].Text != "re: first" || results["second"].Text != "re: second" {
		t.Errorf("Replies crossed: %+v", results)
	}

	var lines []string
	for _, b := range w.Transcript().Bubbles() {
		lines = append(lines, b.Text)
	}
	expected := "first,second,re: second,re: first"
	if strings.Join(lines, ",") != expected {
		t.Errorf("Expected completion order %s, got %s", expected, strings.Join(lines, ","))
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoadHistory(t *testing.T) {
	created := api.Timestamp{Time: fixedClock()}
	client := &fakeClient{history: []api.HistoryEntry{
		{ID: "1", Message: "hello", IsUser: true, CreatedAt: created},
		{ID: "2", Message: "Hello! How can I help you?", IsUser: false, CreatedAt: created},
	}}
	w := NewWidget(client)
	_, _ = w.Send(context.Background(), "stale")

	if err := w.LoadHistory(context.Background()); err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}

	bubbles := w.Transcript().Bubbles()
	if len(bubbles) != 2 {
		t.Fatalf("Expected history to replace transcript, got %d bubbles", len(bubbles))
	}
	if bubbles[0].Sender != SenderUser || bubbles[1].Sender != SenderBot {
		t.Errorf("Unexpected senders: %+v", bubbles)
	}
	if bubbles[1].Line() != "[09:05] Assistant: Hello! How can I help you?" {
		t.Errorf("Unexpected line: %s", bubbles[1].Line())
	}

	client.histErr = &api.TransportError{Op: "GET", Err: errors.New("down")}
	if err := w.LoadHistory(context.Background()); err == nil {
		t.Error("Expected error")
	}
	if len(w.Transcript().Bubbles()) != 2 {
		t.Error("Failed load should keep the transcript")
	}
}
