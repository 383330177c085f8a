// Package api is the client for the document/chat backend. It owns the wire
// contract and classifies every failure as transport or application.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ragdesk/pkg/logging"
	"ragdesk/pkg/metrics"
)

const (
	PathUpload      = "/api/documents/upload"
	PathDocuments   = "/api/documents"
	PathChat        = "/api/chat"
	PathChatHistory = "/api/chat/history"
	PathHealth      = "/api/health"
)

// Doer is the subset of *http.Client the client needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL      string
	http         Doer
	logger       *slog.Logger
	capabilities Capabilities
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client. The auth manager's
// transport is installed this way.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithCapabilities(caps Capabilities) Option {
	return func(c *Client) { c.capabilities = caps }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Capabilities() Capabilities {
	return c.capabilities
}

// Upload posts the file as multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathUpload, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResult
	if err := c.do(req, "documents.upload", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, PathDocuments, nil)
	if err != nil {
		return nil, err
	}

	var list DocumentList
	if err := c.do(req, "documents.list", &list); err != nil {
		return nil, err
	}

	if list.Documents == nil {
		list.Documents = []Document{}
	}
	metrics.UpdateDocumentCount(len(list.Documents))
	return list.Documents, nil
}

func (c *Client) Chat(ctx context.Context, message ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, PathChat, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp ChatResponse
	if err := c.do(req, "chat", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChatHistory returns the turns the backend stored for sessionID, oldest
// first. An empty sessionID returns every turn for the caller.
func (c *Client) ChatHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	path := PathChatHistory
	if sessionID != "" {
		path += "?" + url.Values{"session_id": {sessionID}}.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var history ChatHistory
	if err := c.do(req, "chat.history", &history); err != nil {
		return nil, err
	}
	return history.Chats, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := c.newRequest(ctx, http.MethodGet, PathHealth, nil)
	if err != nil {
		return nil, err
	}

	var health Health
	if err := c.do(req, "health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// DeleteDocument calls DELETE /api/documents/{id} when the backend is
// known to support it, and returns ErrNotImplemented otherwise.
func (c *Client) DeleteDocument(ctx context.Context, id DocumentID) error {
	if !c.capabilities.Delete {
		return ErrNotImplemented
	}

	req, err := c.newRequest(ctx, http.MethodDelete, PathDocuments+"/"+url.PathEscape(string(id)), nil)
	if err != nil {
		return err
	}
	return c.do(req, "documents.delete", nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and decodes a 2xx body into out (when non-nil). Non-2xx
// replies become *Error with the server's detail; everything else that
// prevents a usable reply becomes *TransportError.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(endpoint, 0, time.Since(start))
		c.logger.Debug("backend request failed", "endpoint", endpoint, "error", err)
		return &TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	metrics.RecordAPIRequest(endpoint, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "read " + req.URL.Path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var body ErrorBody
		if json.Unmarshal(data, &body) == nil {
			apiErr.Detail = body.Detail
		}
		c.logger.Debug("backend returned error", "endpoint", endpoint, "status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: "decode " + req.URL.Path, Err: err}
	}
	return nil
}
