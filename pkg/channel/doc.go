// Package channel provides the abstraction over a single live streaming connection.
//
// This package defines:
//   - Frame: a whole WebSocket data frame (text or binary)
//   - BroadcastLevel: per-connection fan-out configuration
//   - Info: the immutable attributes captured when the connection was established
//   - Channel: the write / close-propagation surface used by the dispatcher
//
// Writes on a Channel are asynchronous hand-offs to the connection's own send queue.
// Implementations must accept Write calls from any goroutine and must preserve the
// order in which Write calls returned for that connection.
//
// Broadcast levels:
//   - Unicast (0): the frame goes to the originating connection only
//   - Broadcast (1): every connection on the origin's subscriber path, origin included
//   - ExclusiveBroadcast (2): every connection on the path except the origin
package channel
