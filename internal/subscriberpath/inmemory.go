package subscriberpath

import (
	"context"
	"errors"
	"sync"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/endpoint"
	"github.com/rmacdonaldsmith/wsgateway/pkg/subscriberpath"
)

var (
	// ErrRegistryClosed is returned by operations on a closed registry
	ErrRegistryClosed = errors.New("subscriber registry is closed")

	// ErrNilChannel is returned when joining a nil connection
	ErrNilChannel = errors.New("channel cannot be nil")
)

// InMemoryRegistry implements subscriberpath.Registry with maps guarded by a RWMutex.
type InMemoryRegistry struct {
	mu sync.RWMutex

	// group -> conn ID -> conn
	groups map[subscriberpath.Group]map[string]channel.Channel

	// identity -> conn ID -> path, enforces one group per identity
	memberships map[endpoint.Identity]map[string]string

	closed bool
}

// NewInMemoryRegistry creates an empty registry
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		groups:      make(map[subscriberpath.Group]map[string]channel.Channel),
		memberships: make(map[endpoint.Identity]map[string]string),
	}
}

// Join adds conn to the (identity, path) group, moving it out of any other group it
// holds under the same identity.
func (r *InMemoryRegistry) Join(ctx context.Context, identity endpoint.Identity, path string, conn channel.Channel) error {
	if conn == nil {
		return ErrNilChannel
	}
	if path == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	byConn := r.memberships[identity]
	if byConn == nil {
		byConn = make(map[string]string)
		r.memberships[identity] = byConn
	}

	if previous, ok := byConn[conn.ID()]; ok && previous != path {
		r.removeLocked(subscriberpath.Group{Identity: identity, Path: previous}, conn.ID())
	}

	group := subscriberpath.Group{Identity: identity, Path: path}
	members := r.groups[group]
	if members == nil {
		members = make(map[string]channel.Channel)
		r.groups[group] = members
	}
	members[conn.ID()] = conn
	byConn[conn.ID()] = path

	return nil
}

// Leave removes connID from the (identity, path) group. Unknown members are ignored.
func (r *InMemoryRegistry) Leave(ctx context.Context, identity endpoint.Identity, path string, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	if current, ok := r.memberships[identity][connID]; !ok || current != path {
		return nil
	}

	r.removeLocked(subscriberpath.Group{Identity: identity, Path: path}, connID)
	delete(r.memberships[identity], connID)
	if len(r.memberships[identity]) == 0 {
		delete(r.memberships, identity)
	}

	return nil
}

// removeLocked deletes connID from group and drops the group once empty.
// Caller must hold r.mu.
func (r *InMemoryRegistry) removeLocked(group subscriberpath.Group, connID string) {
	members := r.groups[group]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.groups, group)
	}
}

// Members returns a snapshot of the group's connections
func (r *InMemoryRegistry) Members(ctx context.Context, identity endpoint.Identity, path string) ([]channel.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	return r.snapshotLocked(identity, path), nil
}

func (r *InMemoryRegistry) snapshotLocked(identity endpoint.Identity, path string) []channel.Channel {
	members := r.groups[subscriberpath.Group{Identity: identity, Path: path}]
	if len(members) == 0 {
		return nil
	}

	out := make([]channel.Channel, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	return out
}

// Broadcast hands frame to every member of the group
func (r *InMemoryRegistry) Broadcast(ctx context.Context, identity endpoint.Identity, path string, frame channel.Frame) (int, error) {
	return r.deliver(ctx, identity, path, frame, "")
}

// BroadcastExclusive hands frame to every member of the group except excluding
func (r *InMemoryRegistry) BroadcastExclusive(ctx context.Context, identity endpoint.Identity, path string, frame channel.Frame, excluding channel.Channel) (int, error) {
	skip := ""
	if excluding != nil {
		skip = excluding.ID()
	}
	return r.deliver(ctx, identity, path, frame, skip)
}

func (r *InMemoryRegistry) deliver(ctx context.Context, identity endpoint.Identity, path string, frame channel.Frame, skipID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return 0, ErrRegistryClosed
	}
	members := r.snapshotLocked(identity, path)
	r.mu.RUnlock()

	// Writes happen outside the lock; each Write is a non-blocking hand-off
	sent := 0
	for _, conn := range members {
		if skipID != "" && conn.ID() == skipID {
			continue
		}
		if err := conn.Write(frame); err != nil {
			continue
		}
		sent++
	}

	return sent, nil
}

// GroupCount returns the number of non-empty groups
func (r *InMemoryRegistry) GroupCount(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, ErrRegistryClosed
	}
	return len(r.groups), nil
}

// MemberCount returns the total number of memberships
func (r *InMemoryRegistry) MemberCount(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, ErrRegistryClosed
	}

	total := 0
	for _, members := range r.groups {
		total += len(members)
	}
	return total, nil
}

// Close releases all groups. Connections themselves are not closed.
func (r *InMemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.groups = nil
	r.memberships = nil
	r.closed = true
	return nil
}

var _ subscriberpath.Registry = (*InMemoryRegistry)(nil)
