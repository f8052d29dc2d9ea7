// Package subscriberpath provides interfaces for grouping live connections by
// subscriber path for fan-out delivery.
//
// A subscriber group is keyed by (endpoint identity, subscriber path). Connections
// join the group for their own path when they are established and leave it when they
// close; a connection belongs to at most one group per endpoint identity.
//
// Delivery semantics:
//   - Broadcast hands a frame to every member present at call time
//   - BroadcastExclusive does the same but skips one connection (the origin)
//   - Membership is snapshotted per call, so a connection joining mid-broadcast may or
//     may not receive that frame, but it never receives a partial frame
//
// Example usage:
//
//	err := registry.Join(ctx, identity, "/chat", conn)
//	if err != nil {
//		return err
//	}
//	defer registry.Leave(ctx, identity, "/chat", conn.ID())
//
//	sent, err := registry.BroadcastExclusive(ctx, identity, "/chat", frame, conn)
package subscriberpath
