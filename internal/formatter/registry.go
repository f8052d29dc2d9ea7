// Package formatter renders structured messages into text frames.
//
// A Registry selects a Formatter by the message's media type. Lookup ignores media
// type parameters and case, then falls back to structured-syntax suffixes
// ("application/vnd.acme+json" uses the JSON formatter), and finally to the
// registry's default content type when the message declares none.
package formatter

import (
	"fmt"
	"mime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rmacdonaldsmith/wsgateway/pkg/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// DefaultContentType is used when neither the message nor the registry names one
const DefaultContentType = "application/json"

// Registry maps media types to formatters.
type Registry struct {
	mu                 sync.RWMutex
	formatters         map[string]Formatter
	suffixes           map[string]Formatter
	defaultContentType string
}

// NewRegistry creates a registry with the built-in formatters registered.
// An empty defaultContentType selects DefaultContentType.
func NewRegistry(defaultContentType string) *Registry {
	if defaultContentType == "" {
		defaultContentType = DefaultContentType
	}

	r := &Registry{
		formatters:         make(map[string]Formatter),
		suffixes:           make(map[string]Formatter),
		defaultContentType: defaultContentType,
	}

	r.Register("application/json", JSON)
	r.Register("text/json", JSON)
	r.Register("application/xml", XML)
	r.Register("text/xml", XML)
	r.Register("application/soap+xml", XML)
	r.Register("text/plain", Text)
	r.Register("application/x-protobuf", ProtoText)
	r.Register("application/protobuf", ProtoText)
	r.Register("application/x-www-form-urlencoded", Form)

	r.RegisterSuffix("json", JSON)
	r.RegisterSuffix("xml", XML)

	return r
}

// Register installs f for an exact media type, replacing any previous formatter.
func (r *Registry) Register(mediaType string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[strings.ToLower(mediaType)] = f
}

// RegisterSuffix installs f for a structured-syntax suffix such as "json".
func (r *Registry) RegisterSuffix(suffix string, f Formatter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suffixes[strings.ToLower(strings.TrimPrefix(suffix, "+"))] = f
}

// DefaultContentType returns the content type used for messages that declare none
func (r *Registry) DefaultContentType() string {
	return r.defaultContentType
}

// Lookup returns the formatter and normalized media type for contentType.
func (r *Registry) Lookup(contentType string) (Formatter, string, error) {
	if strings.TrimSpace(contentType) == "" {
		contentType = r.defaultContentType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, "", fmt.Errorf("parse content type %q: %w", contentType, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.formatters[mediaType]; ok {
		return f, mediaType, nil
	}
	if i := strings.LastIndex(mediaType, "+"); i >= 0 {
		if f, ok := r.suffixes[mediaType[i+1:]]; ok {
			return f, mediaType, nil
		}
	}

	return nil, mediaType, fmt.Errorf("%w: %s", ErrUnsupportedContentType, mediaType)
}

// Serialize renders msg with the formatter selected by its content type.
// Every failure is returned as a *SerializationError.
func (r *Registry) Serialize(msg *message.Message) (string, error) {
	if msg == nil {
		return "", &SerializationError{Err: ErrNilMessage}
	}

	f, mediaType, err := r.Lookup(msg.ContentType)
	if err != nil {
		return "", &SerializationError{ContentType: msg.ContentType, Err: err}
	}

	var sb strings.Builder
	if err := f.Format(&sb, msg); err != nil {
		return "", &SerializationError{ContentType: mediaType, Err: err}
	}

	out := sb.String()
	if !utf8.ValidString(out) {
		return "", &SerializationError{ContentType: mediaType, Err: ErrInvalidUTF8}
	}
	return out, nil
}

var _ dispatch.Serializer = (*Registry)(nil)
