// Package auth holds the client's demo session: who is logged in and the
// placeholder token. It is not a security boundary; gating happens by
// client-side redirect only.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"ragdesk/pkg/logging"
	"ragdesk/pkg/notify"
	"ragdesk/pkg/storage"
)

const (
	KeyToken = "token"
	KeyUser  = "user"

	// DemoToken is stored on every login; there is no server round-trip.
	DemoToken = "demo_token_123"

	DemoUsername = "demo"
	DemoPassword = "demo123"
)

// Routes the manager navigates between.
const (
	RouteHome  = "/"
	RouteChat  = "/chat"
	RouteAdmin = "/admin"
)

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Navigator is the surface's notion of the current page.
type Navigator interface {
	Location() string
	Navigate(path string)
}

// View is the part of the surface that reflects auth state.
type View interface {
	CloseModals()
	ShowLogin()
	// Refresh redraws auth-dependent chrome; user is nil when logged out.
	Refresh(user *User)
}

type Manager struct {
	store       storage.Store
	notifier    notify.Notifier
	nav         Navigator
	view        View
	logger      *slog.Logger
	attachToken bool
}

type Option func(*Manager)

func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithNavigator(nav Navigator) Option {
	return func(m *Manager) { m.nav = nav }
}

func WithView(v View) Option {
	return func(m *Manager) { m.view = v }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithAttachToken makes Transport send the stored token as a bearer header.
func WithAttachToken(attach bool) Option {
	return func(m *Manager) { m.attachToken = attach }
}

func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		notifier: notify.Discard,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSurface attaches the navigator and view after construction, for
// surfaces that themselves need the manager to be built first.
func (m *Manager) SetSurface(nav Navigator, view View) {
	m.nav = nav
	m.view = view
}

// Login accepts any credentials. Blank fields fall back to the demo account.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	if username == "" {
		username = DemoUsername
	}
	if password == "" {
		password = DemoPassword
	}

	user := User{Username: username, Email: username + "@example.com"}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := m.store.Set(ctx, KeyToken, DemoToken); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := m.store.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if m.view != nil {
		m.view.CloseModals()
		m.view.Refresh(&user)
	}
	m.notifier.Notify(notify.Success, "Login successful!")
	m.logger.Info("logged in", "username", username)

	if m.nav != nil && m.nav.Location() == RouteHome {
		m.nav.Navigate(RouteChat)
	}
	return nil
}

func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Remove(ctx, KeyToken); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	if err := m.store.Remove(ctx, KeyUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	if m.view != nil {
		m.view.Refresh(nil)
	}
	m.logger.Info("logged out")

	if m.nav != nil {
		m.nav.Navigate(RouteHome)
	}
	return nil
}

// Register has no backend in demo mode; it points the user at Login.
func (m *Manager) Register() {
	m.notifier.Notify(notify.Info, "Demo: Use Login with any username/password")
	if m.view != nil {
		m.view.ShowLogin()
	}
}

// IsLoggedIn reports whether a session record is present. Storage errors
// count as logged out.
func (m *Manager) IsLoggedIn(ctx context.Context) bool {
	_, ok, err := m.store.Get(ctx, KeyUser)
	if err != nil {
		m.logger.Error("failed to read session", "error", err)
		return false
	}
	return ok
}

func (m *Manager) Token(ctx context.Context) string {
	token, _, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		m.logger.Error("failed to read token", "error", err)
		return ""
	}
	return token
}

// User returns the stored session, or nil when logged out.
func (m *Manager) User(ctx context.Context) (*User, error) {
	raw, ok, err := m.store.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &user, nil
}

// Transport wraps base for backend calls made on behalf of the session.
// Unless token attaching is enabled the requests go out exactly as they
// would unauthenticated.
func (m *Manager) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{manager: m, base: base}
}

type transport struct {
	manager *Manager
	base    http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.manager.attachToken {
		return t.base.RoundTrip(req)
	}

	token := t.manager.Token(req.Context())
	if token == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}
