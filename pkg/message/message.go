package message

import (
	"time"
)

// Message is a structured, protocol-agnostic payload produced by the pipeline.
type Message struct {
	// ContentType declares the media type used to select a formatter
	// (e.g. "application/json; charset=utf-8")
	ContentType string

	// Headers are transport-independent key-value metadata
	Headers map[string]string

	// Body is the structured payload. Its accepted shapes depend on the formatter.
	Body any

	// Timestamp is when this message was created
	Timestamp time.Time
}

// NewMessage creates a Message with the given content type and body.
func NewMessage(contentType string, body any) *Message {
	return &Message{
		ContentType: contentType,
		Headers:     make(map[string]string),
		Body:        body,
		Timestamp:   time.Now().UTC(),
	}
}

// NewMessageWithHeaders creates a Message with headers.
// The headers are copied so later changes by the caller are not observed.
func NewMessageWithHeaders(contentType string, body any, headers map[string]string) *Message {
	headersCopy := make(map[string]string, len(headers))
	for k, v := range headers {
		headersCopy[k] = v
	}

	msg := NewMessage(contentType, body)
	msg.Headers = headersCopy
	return msg
}

// Header returns the header value for key, or "" when absent.
func (m *Message) Header(key string) string {
	if m == nil || m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}
