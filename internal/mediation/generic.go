package mediation

import (
	"context"

	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// Generic converts text frames into structured messages of a fixed content type,
// so replies go through the formatter instead of being sent as ready frames.
// Binary frames pass through unchanged.
type Generic struct {
	contentType string
}

// NewGeneric creates a Generic mediator producing contentType messages
func NewGeneric(contentType string) *Generic {
	return &Generic{contentType: contentType}
}

// ContentType returns the content type of produced messages
func (g *Generic) ContentType() string {
	return g.contentType
}

// Mediate implements Mediator
func (g *Generic) Mediate(_ context.Context, in *message.Context) ([]*message.Context, error) {
	if in == nil {
		return nil, nil
	}
	if isHandshake(in) {
		return []*message.Context{in}, nil
	}
	if _, ok := in.Bytes(message.BinaryFrame); ok {
		return []*message.Context{in}, nil
	}

	text, ok := in.String(message.TextFrame)
	if !ok {
		// already structured
		return []*message.Context{in}, nil
	}

	return []*message.Context{message.NewContext(message.NewMessage(g.contentType, text))}, nil
}

var _ Mediator = (*Generic)(nil)
