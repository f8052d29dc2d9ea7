package subscriberpath

import (
	"context"
	"io"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/endpoint"
)

// Group identifies a subscriber group
type Group struct {
	Identity endpoint.Identity
	Path     string
}

// Registry tracks live connections per (identity, subscriber path).
type Registry interface {
	io.Closer

	// Join adds conn to the group for (identity, path). A connection already in another
	// group of the same identity is moved. An empty path is a no-op.
	Join(ctx context.Context, identity endpoint.Identity, path string, conn channel.Channel) error

	// Leave removes the connection with connID from the group for (identity, path).
	Leave(ctx context.Context, identity endpoint.Identity, path string, connID string) error

	// Members returns a snapshot of the connections in the group.
	Members(ctx context.Context, identity endpoint.Identity, path string) ([]channel.Channel, error)

	// Broadcast hands frame to every member of the group.
	// Returns the number of members that accepted the frame.
	Broadcast(ctx context.Context, identity endpoint.Identity, path string, frame channel.Frame) (int, error)

	// BroadcastExclusive hands frame to every member of the group except excluding.
	BroadcastExclusive(ctx context.Context, identity endpoint.Identity, path string, frame channel.Frame, excluding channel.Channel) (int, error)

	// GroupCount returns the number of non-empty groups.
	GroupCount(ctx context.Context) (int, error)

	// MemberCount returns the total number of memberships across all groups.
	MemberCount(ctx context.Context) (int, error)
}
