package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ragdesk/pkg/api"
	"ragdesk/pkg/upload"
)

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func doUpload(t *testing.T, h http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, api.PathUpload, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body api.ErrorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body.Detail
}

func TestHandler_Health(t *testing.T) {
	h := New(WithVersion("1.2.3")).Routes()

	req := httptest.NewRequest(http.MethodGet, api.PathHealth, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var health api.Health
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if health.Status != "healthy" || health.Service != ServiceName || health.Version != "1.2.3" {
		t.Errorf("Unexpected health: %+v", health)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}

	req = httptest.NewRequest(http.MethodPost, api.PathHealth, nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestHandler_UploadAndList(t *testing.T) {
	handler := New()
	h := handler.Routes()

	text := strings.Repeat("a", 2000)
	w := doUpload(t, h, "notes.md", []byte(text))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result api.UploadResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if result.Document.ID != "1" || result.Document.Filename != "notes.md" {
		t.Errorf("Unexpected document: %+v", result.Document)
	}
	// 2000 chars with 800-wide windows stepping 650: 0, 650, 1300.
	if result.Document.Chunks != 3 {
		t.Errorf("Expected 3 chunks, got %d", result.Document.Chunks)
	}

	doUpload(t, h, "second.txt", []byte("hello"))

	req := httptest.NewRequest(http.MethodGet, api.PathDocuments, nil)
	lw := httptest.NewRecorder()
	h.ServeHTTP(lw, req)

	var list api.DocumentList
	if err := json.NewDecoder(lw.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if len(list.Documents) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(list.Documents))
	}
	first := list.Documents[0]
	if first.Filename != "second.txt" || first.FileType != "txt" || first.FileSize != 5 || !first.Processed {
		t.Errorf("Expected newest first with metadata, got %+v", first)
	}
	if first.UploadedAt.IsZero() {
		t.Error("Expected upload time")
	}
}

func TestHandler_UploadRejections(t *testing.T) {
	rules := upload.DefaultRules()
	rules.MaxSize = 10
	h := New(WithRules(rules)).Routes()

	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		detail   string
	}{
		{"type", "virus.exe", "x", http.StatusBadRequest, "File type not allowed"},
		{"size", "big.txt", strings.Repeat("x", 11), http.StatusRequestEntityTooLarge, "File too large"},
		{"unreadable pdf", "fake.pdf", "not a pdf", http.StatusUnprocessableEntity, "Could not extract text from fake.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doUpload(t, h, tt.filename, []byte(tt.content))
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, w.Code)
			}
			if detail := decodeDetail(t, w); detail != tt.detail {
				t.Errorf("Expected detail %q, got %q", tt.detail, detail)
			}
		})
	}
}

func TestHandler_UploadMissingFile(t *testing.T) {
	h := New().Routes()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, api.PathUpload, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest || decodeDetail(t, w) != "No file" {
		t.Errorf("Expected 400 No file, got %d", w.Code)
	}
}

func TestHandler_Chat(t *testing.T) {
	handler := New()
	h := handler.Routes()

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, api.PathChat, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := post(`{"message":"hello","session_id":"session_1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp api.ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if resp.Response != "Hello! How can I help you?" || resp.SessionID != "session_1" {
		t.Errorf("Unexpected response: %+v", resp)
	}

	w = post(`{"message":"   "}`)
	if w.Code != http.StatusBadRequest || decodeDetail(t, w) != "Message empty" {
		t.Errorf("Expected 400 Message empty, got %d", w.Code)
	}

	w = post(`{"message":"what is this"}`)
	resp = api.ChatResponse{}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.SessionID == "" {
		t.Error("Expected a generated session id")
	}

	w = post(`not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad body, got %d", w.Code)
	}
}

func TestHandler_ChatSources(t *testing.T) {
	h := New().Routes()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		doUpload(t, h, name, []byte("content"))
	}

	req := httptest.NewRequest(http.MethodPost, api.PathChat, strings.NewReader(`{"message":"price?","session_id":"s"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp api.ChatResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Sources) != 2 || resp.Sources[0]["name"] != "c.txt" {
		t.Errorf("Expected the two newest documents as sources, got %v", resp.Sources)
	}
}

func TestHandler_History(t *testing.T) {
	h := New().Routes()
	for _, body := range []string{
		`{"message":"hello","session_id":"s1"}`,
		`{"message":"price","session_id":"s2"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, api.PathChat, strings.NewReader(body))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	get := func(path string) api.ChatHistory {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		var history api.ChatHistory
		if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
			t.Fatalf("Failed to decode: %v", err)
		}
		return history
	}

	s1 := get(api.PathChatHistory + "?session_id=s1")
	if len(s1.Chats) != 2 {
		t.Fatalf("Expected 2 turns for s1, got %d", len(s1.Chats))
	}
	if !s1.Chats[0].IsUser || s1.Chats[0].Message != "hello" || s1.Chats[1].IsUser {
		t.Errorf("Unexpected turns: %+v", s1.Chats)
	}

	if all := get(api.PathChatHistory); len(all.Chats) != 4 {
		t.Errorf("Expected 4 turns overall, got %d", len(all.Chats))
	}
	if none := get(api.PathChatHistory + "?session_id=missing"); none.Chats == nil || len(none.Chats) != 0 {
		t.Errorf("Expected empty list, got %+v", none.Chats)
	}
}

func TestHandler_Delete(t *testing.T) {
	disabled := New().Routes()
	doUpload(t, disabled, "a.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodDelete, api.PathDocuments+"/1", nil)
	w := httptest.NewRecorder()
	disabled.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 without delete support, got %d", w.Code)
	}

	handler := New(WithDelete(true))
	h := handler.Routes()
	doUpload(t, h, "a.txt", []byte("x"))

	req = httptest.NewRequest(http.MethodDelete, api.PathDocuments+"/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(handler.Store().Documents()) != 0 {
		t.Error("Expected document to be removed")
	}

	req = httptest.NewRequest(http.MethodDelete, api.PathDocuments+"/1", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}
}

func TestHandler_WithClient(t *testing.T) {
	server := httptest.NewServer(New(WithDelete(true)).Routes())
	defer server.Close()

	client := api.New(server.URL, api.WithCapabilities(api.Capabilities{Delete: true}))
	ctx := context.Background()

	res, err := client.Upload(ctx, "report.pdf", strings.NewReader("broken"))
	if err == nil {
		t.Fatalf("Expected unreadable PDF to fail, got %+v", res)
	}
	if apiErr, ok := api.AsAPIError(err); !ok || apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("Expected application error, got %v", err)
	}

	if _, err := client.Upload(ctx, "notes.txt", strings.NewReader("hello")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	docs, err := client.ListDocuments(ctx)
	if err != nil || len(docs) != 1 {
		t.Fatalf("Expected one document, got %v %v", docs, err)
	}

	reply, err := client.Chat(ctx, api.ChatRequest{Message: "Tell me about your service", SessionID: "s"})
	if err != nil || reply.Response != "We offer AI chatbot development and consulting." {
		t.Errorf("Unexpected chat reply %+v %v", reply, err)
	}

	if err := client.DeleteDocument(ctx, docs[0].ID); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/api/documents/42":     "/api/documents/{id}",
		"/api/documents/upload": "/api/documents/upload",
		"/api/documents":        "/api/documents",
		"/api/chat":             "/api/chat",
	}
	for path, expected := range tests {
		if got := endpointLabel(path); got != expected {
			t.Errorf("endpointLabel(%q) = %q, expected %q", path, got, expected)
		}
	}
}
