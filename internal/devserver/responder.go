package devserver

import (
	"fmt"
	"strings"
)

// Reply is the canned keyword responder the dev backend answers chat
// messages with.
func Reply(message string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "hello") || strings.Contains(m, "hi"):
		return "Hello! How can I help you?"
	case strings.Contains(m, "service"):
		return "We offer AI chatbot development and consulting."
	case strings.Contains(m, "price") || strings.Contains(m, "cost"):
		return "Pricing starts at $99/month."
	case strings.Contains(m, "document") || strings.Contains(m, "file"):
		return "Upload files in the Admin panel."
	default:
		return fmt.Sprintf("You said: %s. How can I assist?", m)
	}
}
