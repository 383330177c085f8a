// Package chat is the chat widget: it owns the session id and the
// transcript, and turns each send into a user bubble plus a placeholder that
// the reply later replaces.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragdesk/pkg/api"
	"ragdesk/pkg/logging"
	"ragdesk/pkg/metrics"
)

const (
	NoResponse     = "No response"
	ConnectFailure = "Error: Could not connect"
)

var ErrEmptyMessage = errors.New("message is empty")

// Client is the backend the widget talks to. *api.Client satisfies it.
type Client interface {
	Chat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
	ChatHistory(ctx context.Context, sessionID string) ([]api.HistoryEntry, error)
}

type Widget struct {
	client     Client
	sessionID  string
	transcript *Transcript
	now        func() time.Time
	logger     *slog.Logger
}

type Option func(*Widget)

func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) { w.logger = l }
}

// WithClock replaces time.Now for bubble timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Widget) { w.now = now }
}

// WithSessionID resumes an existing session instead of starting a new one.
func WithSessionID(id string) Option {
	return func(w *Widget) { w.sessionID = id }
}

func NewWidget(client Client, opts ...Option) *Widget {
	w := &Widget{
		client:     client,
		transcript: &Transcript{},
		now:        time.Now,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.sessionID == "" {
		w.sessionID = NewSessionID()
	}
	return w
}

// NewSessionID returns a fresh "session_<uuid>" identifier.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}

func (w *Widget) SessionID() string {
	return w.sessionID
}

func (w *Widget) Transcript() *Transcript {
	return w.transcript
}

// Exchange is one sent message whose reply has not arrived yet.
type Exchange struct {
	widget      *Widget
	message     string
	User        Bubble
	Placeholder Bubble
	started     time.Time
}

// Start adds the user bubble and the typing placeholder without calling the
// backend. Surfaces that render between the two steps call Start and then
// Finish; everyone else calls Send.
func (w *Widget) Start(text string) (*Exchange, error) {
	message := strings.TrimSpace(text)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	now := w.now()
	user := w.transcript.add(Bubble{Sender: SenderUser, Text: message, Time: now})
	placeholder := w.transcript.add(Bubble{Sender: SenderBot, Time: now, Typing: true})

	return &Exchange{
		widget:      w,
		message:     message,
		User:        user,
		Placeholder: placeholder,
		started:     time.Now(),
	}, nil
}

// Finish posts the message and replaces this exchange's placeholder with
// the reply. It always settles the placeholder, even on error.
func (e *Exchange) Finish(ctx context.Context) Bubble {
	w := e.widget

	resp, err := w.client.Chat(ctx, api.ChatRequest{Message: e.message, SessionID: w.sessionID})
	metrics.RecordChat(time.Since(e.started), err == nil)

	text := NoResponse
	if err != nil {
		w.logger.Error("chat request failed", "session_id", w.sessionID, "error", err)
		// An error reply has no response field; anything else never reached
		// the server.
		if _, ok := api.AsAPIError(err); !ok {
			text = ConnectFailure
		}
	} else if resp.Response != "" {
		text = resp.Response
	}

	return w.transcript.replace(e.Placeholder.ID, Bubble{Sender: SenderBot, Text: text, Time: w.now()})
}

// Send is Start followed by Finish. Empty or whitespace text returns
// ErrEmptyMessage and leaves the transcript untouched.
func (w *Widget) Send(ctx context.Context, text string) (Bubble, error) {
	ex, err := w.Start(text)
	if err != nil {
		return Bubble{}, err
	}
	return ex.Finish(ctx), nil
}

// LoadHistory replaces the transcript with the turns the backend stored for
// this session.
func (w *Widget) LoadHistory(ctx context.Context) error {
	entries, err := w.client.ChatHistory(ctx, w.sessionID)
	if err != nil {
		w.logger.Error("failed to load chat history", "session_id", w.sessionID, "error", err)
		return fmt.Errorf("failed to load chat history: %w", err)
	}

	bubbles := make([]Bubble, len(entries))
	for i, e := range entries {
		sender := SenderBot
		if e.IsUser {
			sender = SenderUser
		}
		bubbles[i] = Bubble{Sender: sender, Text: e.Message, Time: e.CreatedAt.Time}
	}
	w.transcript.reset(bubbles)
	return nil
}
