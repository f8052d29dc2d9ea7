package formatter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedContentType is returned when no formatter handles a media type
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrUnsupportedBody is returned when a formatter cannot handle the body's Go type
	ErrUnsupportedBody = errors.New("unsupported body type")

	// ErrMalformed is returned when a pre-encoded body is not well-formed
	ErrMalformed = errors.New("malformed payload")

	// ErrNilMessage is returned when serializing a nil message
	ErrNilMessage = errors.New("message cannot be nil")

	// ErrInvalidUTF8 is returned when the rendered text is not valid UTF-8
	ErrInvalidUTF8 = errors.New("formatted payload is not valid UTF-8")
)

// SerializationError reports a structured message that could not be rendered as text.
type SerializationError struct {
	ContentType string
	Err         error
}

func (e *SerializationError) Error() string {
	if e.ContentType == "" {
		return fmt.Sprintf("serialize message: %v", e.Err)
	}
	return fmt.Sprintf("serialize %s message: %v", e.ContentType, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
