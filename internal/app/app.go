// Package app wires the client components from a Config. Every surface
// (CLI commands, console, TUI) builds one App and drives it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"ragdesk/pkg/api"
	"ragdesk/pkg/auth"
	"ragdesk/pkg/chat"
	"ragdesk/pkg/config"
	"ragdesk/pkg/documents"
	"ragdesk/pkg/notify"
	"ragdesk/pkg/storage"
	"ragdesk/pkg/upload"
)

// KeySession stores the chat session id so that it survives between
// command invocations.
const KeySession = "chat_session"

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Notifier *Notifier

	Store     storage.Store
	Auth      *auth.Manager
	Client    *api.Client
	Documents *documents.View
	Stats     *documents.Panel
	Delete    *documents.DeleteFlow
	Uploads   *upload.Pipeline
	Chat      *chat.Widget

	closer func() error
}

// Notifier forwards to whichever surface is currently attached. Components
// get it at construction; surfaces attach themselves later.
type Notifier struct {
	mu     sync.RWMutex
	target notify.Notifier
}

func (n *Notifier) Notify(severity notify.Severity, message string) {
	n.mu.RLock()
	target := n.target
	n.mu.RUnlock()
	if target != nil {
		target.Notify(severity, message)
	}
}

func (n *Notifier) Attach(target notify.Notifier) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = target
}

type settings struct {
	schedule documents.Scheduler
}

type Option func(*settings)

// WithDeleteScheduler replaces how the simulated delete defers its
// follow-up. One-shot commands run it inline so it lands before exit.
func WithDeleteScheduler(s documents.Scheduler) Option {
	return func(o *settings) {
		o.schedule = s
	}
}

// New opens the session store at cfg.Storage.Path and builds every
// component on top of it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	if err := store.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	a, err := NewWithStore(ctx, cfg, store, logger, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.closer = store.Close
	return a, nil
}

// NewWithStore builds the components on an already open store.
func NewWithStore(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger, opts ...Option) (*App, error) {
	o := settings{schedule: documents.AfterFunc}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	timeout, _ := cfg.RequestTimeout()
	delay, _ := cfg.DeleteDelay()

	rules, err := upload.NewRules(cfg.Upload.AllowedExtensions, cfg.Upload.MaxSize, cfg.Upload.VerifyPDF)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Notifier: &Notifier{},
		Store:    store,
	}

	a.Auth = auth.NewManager(store,
		auth.WithNotifier(a.Notifier),
		auth.WithLogger(logger.With("component", "auth")),
		auth.WithAttachToken(cfg.Auth.AttachToken),
	)

	caps := api.Capabilities{Delete: cfg.Backend.SupportsDelete, Preview: cfg.Backend.SupportsPreview}
	a.Client = api.New(cfg.Backend.URL,
		api.WithHTTPClient(&http.Client{
			Transport: a.Auth.Transport(http.DefaultTransport),
			Timeout:   timeout,
		}),
		api.WithLogger(logger.With("component", "api")),
		api.WithCapabilities(caps),
	)

	docLogger := logger.With("component", "documents")
	a.Documents = documents.NewView(a.Client,
		documents.WithNotifier(a.Notifier),
		documents.WithLogger(docLogger),
		documents.WithCapabilities(caps),
	)
	a.Stats = documents.NewPanel(a.Client, documents.WithLogger(docLogger))
	a.Delete = documents.NewDeleteFlow(a.Client, a.Refresh,
		documents.WithNotifier(a.Notifier),
		documents.WithLogger(docLogger),
		documents.WithDelay(delay),
		documents.WithScheduler(o.schedule),
	)

	a.Uploads = upload.NewPipeline(rules, a.Client,
		upload.WithNotifier(a.Notifier),
		upload.WithLogger(logger.With("component", "upload")),
		upload.WithRefresh(a.Refresh),
	)

	sessionID, err := a.sessionID(ctx)
	if err != nil {
		return nil, err
	}
	a.Chat = chat.NewWidget(a.Client,
		chat.WithSessionID(sessionID),
		chat.WithLogger(logger.With("component", "chat")),
	)

	return a, nil
}

func (a *App) sessionID(ctx context.Context) (string, error) {
	id, ok, err := a.Store.Get(ctx, KeySession)
	if err != nil {
		return "", fmt.Errorf("failed to read chat session: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = chat.NewSessionID()
	if err := a.Store.Set(ctx, KeySession, id); err != nil {
		return "", fmt.Errorf("failed to save chat session: %w", err)
	}
	return id, nil
}

// Refresh reloads the document table and the stats panel.
func (a *App) Refresh(ctx context.Context) {
	_ = a.Documents.Load(ctx)
	_ = a.Stats.Load(ctx)
}

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}
