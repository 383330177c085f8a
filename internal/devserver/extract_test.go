package devserver

import (
	"strings"
	"testing"
)

func TestChunker_Split(t *testing.T) {
	c := NewChunker(ChunkSize, ChunkOverlap)

	tests := []struct {
		name     string
		length   int
		expected int
	}{
		{"empty", 0, 0},
		{"short", 10, 1},
		{"exactly one window", 800, 1},
		{"one over", 801, 2},
		{"two windows", 1450, 2},
		{"three windows", 1451, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := c.Split(strings.Repeat("x", tt.length))
			if len(chunks) != tt.expected {
				t.Errorf("Expected %d chunks, got %d", tt.expected, len(chunks))
			}
		})
	}
}

func TestChunker_Overlap(t *testing.T) {
	c := NewChunker(10, 4)
	chunks := c.Split("abcdefghijklmnopqrst")

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "abcdefghij" || chunks[1].Text != "ghijklmnop" || chunks[2].Text != "mnopqrst" {
		t.Errorf("Unexpected chunks: %q %q %q", chunks[0].Text, chunks[1].Text, chunks[2].Text)
	}
	if chunks[1].StartPos != 6 || chunks[2].Index != 2 {
		t.Errorf("Unexpected positions: %+v", chunks)
	}
}

func TestNewChunker_OverlapTooLarge(t *testing.T) {
	c := NewChunker(5, 5)
	if c.Overlap != 0 {
		t.Errorf("Expected overlap to be dropped, got %d", c.Overlap)
	}
	if len(c.Split("abcdefghij")) != 2 {
		t.Error("Expected two windows")
	}
}

func TestExtractText(t *testing.T) {
	text, err := extractText("notes.md", []byte("# Title"))
	if err != nil || text != "# Title" {
		t.Errorf("Unexpected text %q %v", text, err)
	}

	if _, err := extractText("broken.PDF", []byte("nope")); err == nil {
		t.Error("Expected error for invalid PDF")
	}
}

func TestReply(t *testing.T) {
	tests := map[string]string{
		"Hello there":           "Hello! How can I help you?",
		"hi":                    "Hello! How can I help you?",
		"what service?":         "We offer AI chatbot development and consulting.",
		"PRICE":                 "Pricing starts at $99/month.",
		"how much does it cost": "Pricing starts at $99/month.",
		"upload a document":     "Upload files in the Admin panel.",
		"Yes":                   "You said: yes. How can I assist?",
	}
	for msg, expected := range tests {
		if got := Reply(msg); got != expected {
			t.Errorf("Reply(%q) = %q, expected %q", msg, got, expected)
		}
	}
}
