// Package documents holds the admin side of the client: the document table,
// its delete confirmation flow, the stats panel and table export.
package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"ragdesk/pkg/api"
	"ragdesk/pkg/format"
	"ragdesk/pkg/logging"
	"ragdesk/pkg/notify"
)

const (
	EmptyPlaceholder = "No documents uploaded yet"
	DefaultDelay     = time.Second
)

// Lister fetches the document collection. *api.Client satisfies it.
type Lister interface {
	ListDocuments(ctx context.Context) ([]api.Document, error)
}

// Row is one document as the table shows it.
type Row struct {
	api.Document
}

func (r Row) Type() string {
	return strings.ToUpper(r.FileType)
}

func (r Row) Size() string {
	return format.Bytes(r.FileSize)
}

func (r Row) Uploaded() string {
	return format.Date(r.UploadedAt.Time)
}

func (r Row) Status() string {
	if r.Processed {
		return "Processed"
	}
	return "Processing"
}

func (r Row) matches(term string) bool {
	return strings.Contains(strings.ToLower(r.Filename), term) ||
		strings.Contains(strings.ToLower(r.Type()), term)
}

type options struct {
	notifier notify.Notifier
	logger   *slog.Logger
	caps     api.Capabilities
	delay    time.Duration
	schedule Scheduler
}

type Option func(*options)

func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCapabilities tells the view which row actions the backend serves.
func WithCapabilities(caps api.Capabilities) Option {
	return func(o *options) { o.caps = caps }
}

// WithDelay sets how long the simulated delete waits before refreshing.
func WithDelay(d time.Duration) Option {
	return func(o *options) { o.delay = d }
}

func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.schedule = s }
}

func newOptions(opts []Option) options {
	o := options{
		notifier: notify.Discard,
		logger:   logging.Discard(),
		delay:    DefaultDelay,
		schedule: AfterFunc,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// View is the document table. Load replaces its rows wholesale; Filter only
// hides rows.
type View struct {
	lister Lister
	opts   options

	mu     sync.Mutex
	rows   []Row
	term   string
	loaded bool
}

func NewView(lister Lister, opts ...Option) *View {
	return &View{lister: lister, opts: newOptions(opts)}
}

// Load fetches the collection and replaces the table. On failure the
// previous rows stay and the user gets an error notice.
func (v *View) Load(ctx context.Context) error {
	docs, err := v.lister.ListDocuments(ctx)
	if err != nil {
		v.opts.logger.Error("failed to load documents", "error", err)
		v.opts.notifier.Notify(notify.Error, "Failed to load documents")
		return fmt.Errorf("failed to load documents: %w", err)
	}

	rows := make([]Row, len(docs))
	for i, d := range docs {
		rows[i] = Row{Document: d}
	}

	v.mu.Lock()
	v.rows = rows
	v.term = ""
	v.loaded = true
	v.mu.Unlock()

	v.opts.logger.Debug("documents loaded", "count", len(rows))
	return nil
}

// Filter shows only rows whose filename or type contains term, ignoring
// case. An empty term shows everything.
func (v *View) Filter(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.term = strings.ToLower(strings.TrimSpace(term))
}

func (v *View) Term() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.term
}

// Rows returns every loaded row regardless of the filter.
func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Row(nil), v.rows...)
}

// Visible returns the rows that pass the current filter.
func (v *View) Visible() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.term == "" {
		return append([]Row(nil), v.rows...)
	}
	var out []Row
	for _, r := range v.rows {
		if r.matches(v.term) {
			out = append(out, r)
		}
	}
	return out
}

// Empty reports whether the last load returned no documents, in which case
// the table shows the placeholder row.
func (v *View) Empty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded && len(v.rows) == 0
}

// Find returns the loaded row with the given id.
func (v *View) Find(id api.DocumentID) (Row, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range v.rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// Preview is the row's view action. It returns api.ErrNotImplemented, after
// telling the user, when the backend has no preview.
func (v *View) Preview(id api.DocumentID) (Row, error) {
	if !v.opts.caps.Preview {
		v.opts.notifier.Notify(notify.Info, "View document feature coming soon")
		return Row{}, api.ErrNotImplemented
	}

	row, ok := v.Find(id)
	if !ok {
		v.opts.notifier.Notify(notify.Error, "Document not found: "+string(id))
		return Row{}, fmt.Errorf("document %s not loaded", id)
	}
	return row, nil
}

// Render writes the visible rows as a table. Header styling is left to the
// caller through headerStyle; a zero style renders plain text.
func (v *View) Render(w io.Writer, headerStyle lipgloss.Style) error {
	t := table.New().
		Headers("ID", "Name", "Type", "Size", "Chunks", "Uploaded", "Status").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})

	if v.Empty() {
		t.Row("", EmptyPlaceholder, "", "", "", "", "")
	}
	for _, r := range v.Visible() {
		t.Row(string(r.ID), r.Filename, r.Type(), r.Size(), strconv.Itoa(r.Chunks), r.Uploaded(), r.Status())
	}

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return fmt.Errorf("failed to render documents: %w", err)
	}
	return nil
}
