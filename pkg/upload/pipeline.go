// Package upload validates candidate files and sends them to the backend
// one at a time.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"ragdesk/pkg/api"
	"ragdesk/pkg/logging"
	"ragdesk/pkg/metrics"
	"ragdesk/pkg/notify"
)

// Uploader is the backend call the pipeline drives.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*api.UploadResult, error)
}

type Outcome int

const (
	Uploaded Outcome = iota + 1
	Rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Uploaded:
		return metrics.OutcomeUploaded
	case Rejected:
		return metrics.OutcomeRejected
	case Failed:
		return metrics.OutcomeFailed
	default:
		return "unknown"
	}
}

type Result struct {
	Name    string
	Outcome Outcome
	Err     error
	Upload  *api.UploadResult
}

// Report has one Result per input file, in input order.
type Report struct {
	Results []Result
}

func (r Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

type Pipeline struct {
	rules    Rules
	uploader Uploader
	notifier notify.Notifier
	logger   *slog.Logger
	refresh  func(ctx context.Context)
}

type Option func(*Pipeline)

func WithNotifier(n notify.Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRefresh sets the hook run after each successful upload, normally a
// document list and stats reload.
func WithRefresh(fn func(ctx context.Context)) Option {
	return func(p *Pipeline) { p.refresh = fn }
}

func NewPipeline(rules Rules, uploader Uploader, opts ...Option) *Pipeline {
	p := &Pipeline{
		rules:    rules,
		uploader: uploader,
		notifier: notify.Discard,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Rules() Rules {
	return p.rules
}

// HandleFiles rejects invalid files with one notice each, then uploads the
// valid ones sequentially. A failed upload does not stop later ones.
func (p *Pipeline) HandleFiles(ctx context.Context, files []File) Report {
	results := make([]Result, len(files))
	var valid []int

	for i, f := range files {
		results[i] = Result{Name: f.Name()}
		if err := p.rules.Validate(f); err != nil {
			results[i].Outcome = Rejected
			results[i].Err = err
			metrics.RecordUpload(metrics.OutcomeRejected)
			p.logger.Debug("upload rejected", "file", f.Name(), "size", f.Size(), "reason", err)
			p.notifier.Notify(notify.Error, err.Error())
			continue
		}
		valid = append(valid, i)
	}

	for _, i := range valid {
		if ctx.Err() != nil {
			results[i].Outcome = Failed
			results[i].Err = ctx.Err()
			continue
		}

		res, err := p.UploadFile(ctx, files[i])
		if err != nil {
			results[i].Outcome = Failed
			results[i].Err = err
			continue
		}
		results[i].Outcome = Uploaded
		results[i].Upload = res
	}

	return Report{Results: results}
}

// UploadFile sends one file without validating it and reports the outcome
// to the user.
func (p *Pipeline) UploadFile(ctx context.Context, f File) (*api.UploadResult, error) {
	rc, err := f.Open()
	if err != nil {
		metrics.RecordUpload(metrics.OutcomeFailed)
		p.notifier.Notify(notify.Error, fmt.Sprintf("Upload failed: could not read %s", f.Name()))
		return nil, fmt.Errorf("failed to open %s: %w", f.Name(), err)
	}
	defer rc.Close()

	res, err := p.uploader.Upload(ctx, f.Name(), rc)
	if err != nil {
		metrics.RecordUpload(metrics.OutcomeFailed)
		p.logger.Error("upload failed", "file", f.Name(), "error", err)

		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			p.notifier.Notify(notify.Error, "Upload failed: "+apiErr.Detail)
		} else {
			p.notifier.Notify(notify.Error, "Error: Could not connect to server")
		}
		return nil, err
	}

	metrics.RecordUpload(metrics.OutcomeUploaded)
	p.logger.Info("uploaded", "file", f.Name(), "size", f.Size())
	p.notifier.Notify(notify.Success, f.Name()+" uploaded successfully!")

	if p.refresh != nil {
		p.refresh(ctx)
	}
	return res, nil
}
