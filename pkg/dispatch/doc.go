// Package dispatch defines the outbound dispatch policy for a streaming connection.
//
// A processed response is first classified into exactly one SendRequest case, in
// this precedence order:
//  1. Suppress: bookkeeping for a completed client handshake, never written
//  2. LinkClose: bookkeeping for a completed backend handshake; the origin connection
//     registers the backend connection for close propagation
//  3. SendBinary: a ready-to-send binary frame
//  4. SendText: a ready-to-send text frame
//  5. SendGeneric: a structured message that a formatter renders into a text frame
//
// The resulting frame is then routed according to the origin connection's broadcast
// level: to the origin only, to its whole subscriber group, or to the group without
// the origin.
//
// Dispatch is fire-and-forget. Serialization failures, unknown broadcast levels and
// missing collaborator state are logged and the message is dropped; nothing is
// reported back to the pipeline.
//
// The gateway implementation lives in internal/dispatch. Example usage:
//
//	d, err := dispatch.NewResponseDispatcher(dispatch.Config{
//		Directory:  directory,
//		Registry:   registry,
//		Serializer: formatters,
//	})
//	sender := dispatch.NewResponseSender(d, conn)
//	for _, out := range responses {
//		sender.SendBack(ctx, out)
//	}
package dispatch
