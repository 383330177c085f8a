package documents

import (
	"context"
	"errors"
	"sync"
	"time"

	"ragdesk/pkg/api"
	"ragdesk/pkg/notify"
)

// ErrNothingPending is returned by Confirm when no deletion is open.
var ErrNothingPending = errors.New("no deletion pending")

// Deleter is the backend side of a delete. *api.Client satisfies it.
type Deleter interface {
	Capabilities() api.Capabilities
	DeleteDocument(ctx context.Context, id api.DocumentID) error
}

// Scheduler runs fn once after d.
type Scheduler func(d time.Duration, fn func())

// AfterFunc schedules on a timer goroutine.
func AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

type State int

const (
	Idle State = iota
	Confirming
	Deleted
)

func (s State) String() string {
	switch s {
	case Confirming:
		return "confirming"
	case Deleted:
		return "deleted"
	default:
		return "idle"
	}
}

type Pending struct {
	ID       api.DocumentID
	Filename string
}

// DeleteFlow is the delete confirmation modal.
type DeleteFlow struct {
	deleter Deleter
	refresh func(ctx context.Context)
	opts    options

	mu      sync.Mutex
	state   State
	pending *Pending
}

// NewDeleteFlow builds the flow. refresh reloads the document table and the
// stats panel after a delete.
func NewDeleteFlow(deleter Deleter, refresh func(ctx context.Context), opts ...Option) *DeleteFlow {
	if refresh == nil {
		refresh = func(context.Context) {}
	}
	return &DeleteFlow{deleter: deleter, refresh: refresh, opts: newOptions(opts)}
}

// Open asks for confirmation to delete id. A second Open replaces the
// pending document.
func (f *DeleteFlow) Open(id api.DocumentID, filename string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = &Pending{ID: id, Filename: filename}
	f.state = Confirming
}

func (f *DeleteFlow) Pending() (Pending, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return Pending{}, false
	}
	return *f.pending, true
}

func (f *DeleteFlow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *DeleteFlow) Cancel() {
	f.close()
}

// Dismiss is a click outside the modal. It behaves like Cancel.
func (f *DeleteFlow) Dismiss() {
	f.close()
}

func (f *DeleteFlow) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
	f.state = Idle
}

// take clears the pending deletion and returns it.
func (f *DeleteFlow) take() (*Pending, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pending
	f.pending = nil
	if p == nil {
		f.state = Idle
		return nil, ErrNothingPending
	}
	return p, nil
}

func (f *DeleteFlow) settle(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Confirm deletes the pending document. Without backend delete support it
// simulates the delete: the table is refreshed after the configured delay
// and nothing is removed.
func (f *DeleteFlow) Confirm(ctx context.Context) error {
	p, err := f.take()
	if err != nil {
		return err
	}

	if !f.deleter.Capabilities().Delete {
		f.opts.notifier.Notify(notify.Info, "Delete functionality coming soon")

		detached := context.WithoutCancel(ctx)
		f.opts.schedule(f.opts.delay, func() {
			f.refresh(detached)
			f.opts.notifier.Notify(notify.Info, "Document deleted (simulated)")
		})
		f.settle(Deleted)
		return nil
	}

	if err := f.deleter.DeleteDocument(ctx, p.ID); err != nil {
		f.opts.logger.Error("delete failed", "id", p.ID, "filename", p.Filename, "error", err)
		if apiErr, ok := api.AsAPIError(err); ok && apiErr.Detail != "" {
			f.opts.notifier.Notify(notify.Error, "Failed to delete document: "+apiErr.Detail)
		} else {
			f.opts.notifier.Notify(notify.Error, "Failed to delete document")
		}
		f.settle(Idle)
		return err
	}

	f.opts.logger.Info("document deleted", "id", p.ID, "filename", p.Filename)
	f.opts.notifier.Notify(notify.Success, p.Filename+" deleted")
	f.refresh(ctx)
	f.settle(Deleted)
	return nil
}
