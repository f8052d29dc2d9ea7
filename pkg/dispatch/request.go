package dispatch

import (
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// Case identifies which of the five mutually exclusive send cases applies
type Case int

const (
	// CaseSuppress drops client handshake bookkeeping
	CaseSuppress Case = iota

	// CaseLinkClose links the backend connection for close propagation
	CaseLinkClose

	// CaseSendBinary sends a ready binary frame
	CaseSendBinary

	// CaseSendText sends a ready text frame
	CaseSendText

	// CaseSendGeneric serializes a structured message into a text frame
	CaseSendGeneric
)

// String returns the case name
func (c Case) String() string {
	switch c {
	case CaseSuppress:
		return "suppress"
	case CaseLinkClose:
		return "link_close"
	case CaseSendBinary:
		return "binary"
	case CaseSendText:
		return "text"
	case CaseSendGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// SendRequest is one outbound send decision. The zero value is a Suppress request.
// Values are built only through the constructors below, so exactly one case is active.
type SendRequest struct {
	kind    Case
	target  channel.Channel
	binary  []byte
	text    string
	payload *message.Message
}

// OriginHandshake creates a request for client handshake bookkeeping.
func OriginHandshake() SendRequest {
	return SendRequest{kind: CaseSuppress}
}

// TargetHandshake creates a request for backend handshake bookkeeping.
// target may be nil when no backend connection is attached.
func TargetHandshake(target channel.Channel) SendRequest {
	return SendRequest{kind: CaseLinkClose, target: target}
}

// BinaryFrame creates a request carrying a ready-to-send binary frame.
func BinaryFrame(data []byte) SendRequest {
	return SendRequest{kind: CaseSendBinary, binary: data}
}

// TextFrame creates a request carrying a ready-to-send text frame.
func TextFrame(text string) SendRequest {
	return SendRequest{kind: CaseSendText, text: text}
}

// GenericPayload creates a request whose structured message must be serialized.
func GenericPayload(msg *message.Message) SendRequest {
	return SendRequest{kind: CaseSendGeneric, payload: msg}
}

// Case returns the active case
func (r SendRequest) Case() Case {
	return r.kind
}

// Target returns the backend connection of a LinkClose request, or nil
func (r SendRequest) Target() channel.Channel {
	return r.target
}

// Binary returns the frame bytes of a SendBinary request
func (r SendRequest) Binary() []byte {
	return r.binary
}

// Text returns the frame text of a SendText request
func (r SendRequest) Text() string {
	return r.text
}

// Payload returns the structured message of a SendGeneric request, or nil
func (r SendRequest) Payload() *message.Message {
	return r.payload
}
