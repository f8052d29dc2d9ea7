// Package message defines the values exchanged between the message-processing
// pipeline and the outbound dispatch policy of a streaming connection.
//
// The pipeline works on a Context: a per-message carrier holding the structured
// Message being mediated plus a small set of tagged properties describing how the
// result should be written back to the client:
//   - SourceHandshakePresent: bookkeeping for a completed client-side handshake
//   - TargetHandshakePresent: bookkeeping for a completed backend-side handshake,
//     optionally carrying the backend channel under TargetChannel
//   - BinaryFrame / TextFrame: a ready-to-send raw frame
//
// When none of the properties is set the Message itself is the payload and has to
// be rendered by a formatter chosen by its ContentType.
//
// Example usage:
//
//	in := message.NewContext(nil)
//	in.SetTextFrame(`{"hello":"world"}`)
//
//	out := message.NewContext(message.NewMessage("application/json", map[string]string{"ok": "yes"}))
//	sender.SendBack(ctx, out)
//
// A Context is owned by the goroutine processing the message; it is not safe for
// concurrent mutation.
package message
