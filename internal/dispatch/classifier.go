package dispatch

import (
	"github.com/rmacdonaldsmith/wsgateway/pkg/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// FrameClassifier maps a pipeline context onto exactly one send case.
// A context may carry stale flags from earlier stages, so the checks run in a fixed
// precedence order and the first match wins.
type FrameClassifier struct{}

// Classify implements dispatch.Classifier
func (FrameClassifier) Classify(msgCtx *message.Context) dispatch.SendRequest {
	return Classify(msgCtx)
}

// Classify returns the SendRequest for msgCtx:
//  1. source handshake flag → OriginHandshake
//  2. target handshake flag → TargetHandshake (with the target channel when attached)
//  3. binary frame present → BinaryFrame
//  4. text frame present → TextFrame
//  5. otherwise → GenericPayload of the context's message
func Classify(msgCtx *message.Context) dispatch.SendRequest {
	if msgCtx == nil {
		return dispatch.GenericPayload(nil)
	}

	if msgCtx.Flag(message.SourceHandshakePresent) {
		return dispatch.OriginHandshake()
	}

	if msgCtx.Flag(message.TargetHandshakePresent) {
		target, _ := msgCtx.Channel(message.TargetChannel)
		return dispatch.TargetHandshake(target)
	}

	if data, ok := msgCtx.Bytes(message.BinaryFrame); ok {
		return dispatch.BinaryFrame(data)
	}

	if text, ok := msgCtx.String(message.TextFrame); ok {
		return dispatch.TextFrame(text)
	}

	return dispatch.GenericPayload(msgCtx.Message())
}

var _ dispatch.Classifier = FrameClassifier{}
