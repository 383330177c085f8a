package chat

import (
	"fmt"
	"sync"
	"time"

	"ragdesk/pkg/format"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Bubble is one message in the transcript. A Typing bubble is the
// placeholder shown while a reply is pending.
type Bubble struct {
	ID     int
	Sender Sender
	Text   string
	Time   time.Time
	Typing bool
}

// Line renders b as a single plain-text transcript line.
func (b Bubble) Line() string {
	if b.Typing {
		return "Assistant is typing..."
	}
	who := "You"
	if b.Sender == SenderBot {
		who = "Assistant"
	}
	return fmt.Sprintf("[%s] %s: %s", format.Clock(b.Time), who, b.Text)
}

// Transcript is the ordered list of bubbles. It is safe for concurrent use.
type Transcript struct {
	mu      sync.Mutex
	bubbles []Bubble
	nextID  int
}

func (t *Transcript) add(b Bubble) Bubble {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	b.ID = t.nextID
	t.bubbles = append(t.bubbles, b)
	return b
}

// replace removes the placeholder with the given id and appends the reply at
// the end, so replies land in completion order.
func (t *Transcript) replace(placeholderID int, reply Bubble) Bubble {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, b := range t.bubbles {
		if b.ID == placeholderID {
			t.bubbles = append(t.bubbles[:i], t.bubbles[i+1:]...)
			break
		}
	}

	t.nextID++
	reply.ID = t.nextID
	t.bubbles = append(t.bubbles, reply)
	return reply
}

func (t *Transcript) reset(bubbles []Bubble) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bubbles = nil
	for _, b := range bubbles {
		t.nextID++
		b.ID = t.nextID
		t.bubbles = append(t.bubbles, b)
	}
}

// Bubbles returns a snapshot in display order.
func (t *Transcript) Bubbles() []Bubble {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Bubble(nil), t.bubbles...)
}

// Pending counts typing placeholders still waiting for a reply.
func (t *Transcript) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, b := range t.bubbles {
		if b.Typing {
			n++
		}
	}
	return n
}
