// Package mediation provides the message pipelines that sit between an inbound
// connection's read loop and its response sender.
//
// A Mediator turns one inbound context into zero or more outbound contexts. It never
// writes to a connection; every result goes back through the dispatch layer.
package mediation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// Mode names a mediation pipeline in configuration
type Mode string

const (
	// ModeEcho returns every inbound frame unchanged
	ModeEcho Mode = "echo"

	// ModeGeneric wraps text frames into structured messages
	ModeGeneric Mode = "generic"
)

// ErrUnknownMode is returned for a mode outside {echo, generic}
var ErrUnknownMode = errors.New("unknown mediation mode")

// Mediator processes one inbound context
type Mediator interface {
	Mediate(ctx context.Context, in *message.Context) ([]*message.Context, error)
}

// New returns the mediator for mode. contentType is used by ModeGeneric only.
func New(mode Mode, contentType string) (Mediator, error) {
	switch mode {
	case ModeEcho, "":
		return Echo{}, nil
	case ModeGeneric:
		return NewGeneric(contentType), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// FrameContext builds the inbound context for a frame read from a connection
func FrameContext(frame channel.Frame) *message.Context {
	msgCtx := message.NewContext(nil)
	if frame.Type == channel.FrameBinary {
		msgCtx.SetBinaryFrame(frame.Data)
	} else {
		msgCtx.SetTextFrame(string(frame.Data))
	}
	return msgCtx
}

// isHandshake reports whether in is handshake bookkeeping
func isHandshake(in *message.Context) bool {
	return in.Flag(message.SourceHandshakePresent) || in.Flag(message.TargetHandshakePresent)
}
