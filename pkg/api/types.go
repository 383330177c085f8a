package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DocumentID accepts either a JSON number or a JSON string. The backend
// emits integer ids; the client only ever treats them as opaque text.
type DocumentID string

func (id *DocumentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = DocumentID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid document id %s: %w", data, err)
	}
	*id = DocumentID(n.String())
	return nil
}

// MarshalJSON writes numeric ids back as numbers.
func (id DocumentID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Timestamp parses RFC 3339 as well as the zone-less ISO form produced by
// Python's isoformat(), which it treats as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp format: %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

type Document struct {
	ID         DocumentID `json:"id"`
	Filename   string     `json:"filename"`
	FileType   string     `json:"file_type"`
	FileSize   int64      `json:"file_size"`
	Chunks     int        `json:"chunks"`
	UploadedAt Timestamp  `json:"uploaded_at"`
	Processed  bool       `json:"processed"`
}

type DocumentList struct {
	Documents []Document `json:"documents"`
}

type UploadResult struct {
	Message  string   `json:"message"`
	Document Document `json:"document"`
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	Response    string           `json:"response"`
	SessionID   string           `json:"session_id,omitempty"`
	Sources     []map[string]any `json:"sources,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

type HistoryEntry struct {
	ID        DocumentID `json:"id"`
	Message   string     `json:"message"`
	IsUser    bool       `json:"is_user"`
	CreatedAt Timestamp  `json:"created_at"`
}

type ChatHistory struct {
	Chats []HistoryEntry `json:"chats"`
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorBody is the failure payload the backend sends with non-2xx replies.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Capabilities lists backend features that the UI can offer only when the
// backend implements them.
type Capabilities struct {
	Delete  bool
	Preview bool
}
