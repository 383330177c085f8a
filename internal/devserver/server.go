// Package devserver is an in-memory implementation of the document and chat
// backend, for running the client without the real service.
package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ragdesk/pkg/api"
	"ragdesk/pkg/logging"
	"ragdesk/pkg/metrics"
	"ragdesk/pkg/upload"
)

const (
	ServiceName     = "rag-chatbot"
	RequestIDHeader = "X-Request-ID"
)

type Handler struct {
	store        *Store
	rules        upload.Rules
	chunker      *Chunker
	version      string
	enableDelete bool
	logger       *slog.Logger
}

type Option func(*Handler)

func WithVersion(v string) Option {
	return func(h *Handler) { h.version = v }
}

func WithRules(r upload.Rules) Option {
	return func(h *Handler) { h.rules = r }
}

// WithDelete serves DELETE /api/documents/{id}. Without it the route
// answers 405, like a backend that never implemented delete.
func WithDelete(enabled bool) Option {
	return func(h *Handler) { h.enableDelete = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func WithStore(s *Store) Option {
	return func(h *Handler) { h.store = s }
}

func New(opts ...Option) *Handler {
	h := &Handler{
		store:   NewStore(),
		rules:   upload.DefaultRules(),
		chunker: NewChunker(ChunkSize, ChunkOverlap),
		version: "dev",
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Store() *Store {
	return h.store
}

// Routes returns the full backend mux wrapped in the logging middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(api.PathHealth, h.Health())
	mux.Handle(api.PathDocuments, h.Documents())
	mux.Handle(api.PathUpload, h.Upload())
	mux.Handle(api.PathDocuments+"/", h.DocumentRouter())
	mux.Handle(api.PathChat, h.Chat())
	mux.Handle(api.PathChatHistory, h.History())
	mux.Handle("/metrics", promhttp.Handler())
	return LoggingMiddleware(h.logger, mux)
}

// LoggingMiddleware logs HTTP requests and records Prometheus metrics. Each
// request gets an id echoed in the X-Request-ID header.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		wrappedWriter := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrappedWriter, r)

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, endpointLabel(r.URL.Path), wrappedWriter.statusCode, duration)

		logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrappedWriter.statusCode,
			"duration", duration,
		)
	})
}

// endpointLabel folds per-document paths into one metrics label.
func endpointLabel(path string) string {
	if strings.HasPrefix(path, api.PathDocuments+"/") && path != api.PathUpload {
		return api.PathDocuments + "/{id}"
	}
	return path
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (h *Handler) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.writeJSON(w, http.StatusOK, api.Health{Status: "healthy", Service: ServiceName, Version: h.version})
	}
}

func (h *Handler) Documents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		documents := h.store.Documents()
		metrics.UpdateDocumentCount(len(documents))
		h.writeJSON(w, http.StatusOK, api.DocumentList{Documents: documents})
	}
}

func (h *Handler) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		// Leave room for the multipart framing around the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, h.rules.MaxSize+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.writeError(w, http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			h.writeError(w, http.StatusBadRequest, "Invalid upload form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil || header.Filename == "" {
			h.writeError(w, http.StatusBadRequest, "No file")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "Failed to read file")
			return
		}

		if err := h.rules.Validate(upload.Bytes(header.Filename, data)); err != nil {
			h.writeRejection(w, err)
			return
		}

		text, err := extractText(header.Filename, data)
		if err != nil {
			h.logger.Warn("text extraction failed", "file", header.Filename, "error", err)
			h.writeError(w, http.StatusUnprocessableEntity, "Could not extract text from "+header.Filename)
			return
		}

		doc := h.store.AddDocument(api.Document{
			Filename:  header.Filename,
			FileType:  upload.Extension(header.Filename),
			FileSize:  int64(len(data)),
			Chunks:    len(h.chunker.Split(text)),
			Processed: true,
		})
		h.logger.Info("document uploaded", "id", doc.ID, "file", doc.Filename, "chunks", doc.Chunks)

		h.writeJSON(w, http.StatusOK, api.UploadResult{Message: "Document uploaded", Document: doc})
	}
}

func (h *Handler) writeRejection(w http.ResponseWriter, err error) {
	var rej *upload.RejectionError
	if !errors.As(err, &rej) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch rej.Reason {
	case upload.ReasonType:
		h.writeError(w, http.StatusBadRequest, "File type not allowed")
	case upload.ReasonSize:
		h.writeError(w, http.StatusRequestEntityTooLarge, "File too large")
	default:
		h.writeError(w, http.StatusUnprocessableEntity, rej.Error())
	}
}

// DocumentRouter handles /api/documents/{id}.
func (h *Handler) DocumentRouter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || !h.enableDelete {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		path := strings.TrimPrefix(r.URL.Path, api.PathDocuments+"/")
		documentID := strings.TrimSuffix(path, "/")
		if documentID == "" {
			h.writeError(w, http.StatusBadRequest, "Document ID required")
			return
		}

		if err := h.store.DeleteDocument(api.DocumentID(documentID)); err != nil {
			h.writeError(w, http.StatusNotFound, "Document not found")
			return
		}

		h.logger.Info("document deleted", "id", documentID)
		h.writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
	}
}

func (h *Handler) Chat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req api.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		message := strings.TrimSpace(req.Message)
		if message == "" {
			h.writeError(w, http.StatusBadRequest, "Message empty")
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		response := Reply(message)
		h.store.AddTurn(sessionID, message, true)
		h.store.AddTurn(sessionID, response, false)

		h.writeJSON(w, http.StatusOK, api.ChatResponse{
			Response:    response,
			SessionID:   sessionID,
			Sources:     h.recentSources(2),
			Suggestions: []string{},
		})
	}
}

// recentSources names the n most recently uploaded documents.
func (h *Handler) recentSources(n int) []map[string]any {
	docs := h.store.Documents()
	if len(docs) > n {
		docs = docs[:n]
	}
	sources := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, map[string]any{"name": d.Filename})
	}
	return sources
}

func (h *Handler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		sessionID := r.URL.Query().Get("session_id")
		h.writeJSON(w, http.StatusOK, api.ChatHistory{Chats: h.store.History(sessionID)})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, api.ErrorBody{Detail: detail})
}
