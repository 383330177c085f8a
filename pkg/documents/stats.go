package documents

import (
	"context"
	"fmt"
	"io"
	"sync"

	"ragdesk/pkg/api"
	"ragdesk/pkg/format"
)

type Stats struct {
	Documents int
	Chunks    int
	TotalSize int64
	Processed int
}

// Compute aggregates docs in a single pass.
func Compute(docs []api.Document) Stats {
	var s Stats
	for _, d := range docs {
		s.Documents++
		s.Chunks += d.Chunks
		s.TotalSize += d.FileSize
		if d.Processed {
			s.Processed++
		}
	}
	return s
}

// Panel is the stats card. It fetches the collection on its own and never
// reads the table's rows.
type Panel struct {
	lister Lister
	opts   options

	mu    sync.Mutex
	stats Stats
}

func NewPanel(lister Lister, opts ...Option) *Panel {
	return &Panel{lister: lister, opts: newOptions(opts)}
}

// Load recomputes the stats. Failures are logged and otherwise silent; the
// previous figures stay.
func (p *Panel) Load(ctx context.Context) error {
	docs, err := p.lister.ListDocuments(ctx)
	if err != nil {
		p.opts.logger.Error("failed to load stats", "error", err)
		return fmt.Errorf("failed to load stats: %w", err)
	}

	s := Compute(docs)
	p.mu.Lock()
	p.stats = s
	p.mu.Unlock()
	return nil
}

func (p *Panel) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Panel) Render(w io.Writer) error {
	s := p.Stats()
	_, err := fmt.Fprintf(w,
		"Total documents: %d\nTotal chunks:    %d\nTotal size:      %s\nProcessed:       %d\n%d documents\n",
		s.Documents, s.Chunks, format.Bytes(s.TotalSize), s.Processed, s.Documents)
	if err != nil {
		return fmt.Errorf("failed to render stats: %w", err)
	}
	return nil
}
