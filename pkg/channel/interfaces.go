package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when writing to a connection that has shut down
	ErrClosed = errors.New("channel closed")

	// ErrQueueFull is returned when the connection's send queue cannot take another frame
	ErrQueueFull = errors.New("channel send queue full")
)

// BroadcastLevel selects how a response fans out from its originating connection
type BroadcastLevel int

const (
	// Unicast delivers to the originating connection only
	Unicast BroadcastLevel = 0

	// Broadcast delivers to every member of the origin's subscriber group
	Broadcast BroadcastLevel = 1

	// ExclusiveBroadcast delivers to every member of the group except the origin
	ExclusiveBroadcast BroadcastLevel = 2
)

// Valid reports whether l is one of the known levels
func (l BroadcastLevel) Valid() bool {
	return l == Unicast || l == Broadcast || l == ExclusiveBroadcast
}

// String returns a readable level name
func (l BroadcastLevel) String() string {
	switch l {
	case Unicast:
		return "unicast"
	case Broadcast:
		return "broadcast"
	case ExclusiveBroadcast:
		return "exclusive-broadcast"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Info holds the attributes of a connection fixed at establishment time
type Info struct {
	// Port is the listener port that accepted the connection
	Port int

	// Tenant is the tenant/domain identity of the listener
	Tenant string

	// BroadcastLevel is the configured fan-out level
	BroadcastLevel BroadcastLevel

	// SubscriberPath is the logical topic grouping connections for fan-out.
	// Empty means no grouping.
	SubscriberPath string
}

// Channel represents one live streaming connection.
type Channel interface {
	// ID returns the unique identifier of the connection
	ID() string

	// Info returns the establishment-time attributes
	Info() Info

	// Write hands frame to the connection's send queue without waiting for it to be flushed.
	// Returns ErrClosed or ErrQueueFull when the frame was not accepted.
	Write(frame Frame) error

	// LinkClose registers target to be closed when this connection closes.
	LinkClose(target Channel)

	// Close shuts the connection down. Safe to call more than once.
	Close() error

	// Done is closed once the connection has fully shut down
	Done() <-chan struct{}
}
