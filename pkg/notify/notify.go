// Package notify is the single user-facing notification channel. Callers pick
// a severity; the surface decides whether that becomes a toast, a styled line
// or a blocking prompt.
package notify

import (
	"fmt"
	"io"
	"sync"
)

type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

type Notice struct {
	Severity Severity
	Message  string
}

type Notifier interface {
	Notify(severity Severity, message string)
}

// Func adapts a plain function to Notifier.
type Func func(severity Severity, message string)

func (f Func) Notify(severity Severity, message string) {
	f(severity, message)
}

// Discard drops every notice.
var Discard Notifier = Func(func(Severity, string) {})

// Writer prints one line per notice. Style, when set, decorates the line
// (the console passes lipgloss renderers here).
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	Style func(Severity, string) string
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Notify(severity Severity, message string) {
	line := fmt.Sprintf("[%s] %s", severity, message)
	if n.Style != nil {
		line = n.Style(severity, line)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.w, line)
}

// Recorder keeps every notice in order. Surfaces that render on their own
// schedule (the TUI) drain it; tests inspect it.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Severity: severity, Message: message})
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Drain returns the recorded notices and clears the recorder.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// Messages returns just the message text of each notice.
func (r *Recorder) Messages() []string {
	notices := r.Notices()
	out := make([]string, len(notices))
	for i, n := range notices {
		out[i] = n.Message
	}
	return out
}

// Multi fans a notice out to several notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(severity Severity, message string) {
		for _, n := range notifiers {
			n.Notify(severity, message)
		}
	})
}
