package message

import (
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

// PropertyKey names a tagged property on a Context
type PropertyKey string

const (
	// SourceHandshakePresent marks bookkeeping for a completed client handshake (bool)
	SourceHandshakePresent PropertyKey = "websocket.source.handshake.present"

	// TargetHandshakePresent marks bookkeeping for a completed backend handshake (bool)
	TargetHandshakePresent PropertyKey = "websocket.target.handshake.present"

	// TargetChannel holds the backend channel established by the target handshake (channel.Channel)
	TargetChannel PropertyKey = "websocket.target.channel"

	// BinaryFrame holds a ready-to-send binary frame ([]byte)
	BinaryFrame PropertyKey = "websocket.binary.frame"

	// TextFrame holds a ready-to-send text frame (string)
	TextFrame PropertyKey = "websocket.text.frame"
)

// Context carries one message through the pipeline together with its tagged properties.
type Context struct {
	message    *Message
	properties map[PropertyKey]any
}

// NewContext creates a Context wrapping msg. msg may be nil for frame-only contexts.
func NewContext(msg *Message) *Context {
	return &Context{
		message:    msg,
		properties: make(map[PropertyKey]any),
	}
}

// Message returns the structured message, or nil.
func (c *Context) Message() *Message {
	return c.message
}

// SetMessage replaces the structured message.
func (c *Context) SetMessage(msg *Message) {
	c.message = msg
}

// SetProperty stores value under key.
func (c *Context) SetProperty(key PropertyKey, value any) {
	c.properties[key] = value
}

// Property returns the raw value stored under key.
func (c *Context) Property(key PropertyKey) (any, bool) {
	v, ok := c.properties[key]
	return v, ok
}

// RemoveProperty deletes key from the context.
func (c *Context) RemoveProperty(key PropertyKey) {
	delete(c.properties, key)
}

// Flag reports whether key holds the boolean true. Missing or non-bool values are false.
func (c *Context) Flag(key PropertyKey) bool {
	v, ok := c.properties[key].(bool)
	return ok && v
}

// Bytes returns the []byte stored under key.
func (c *Context) Bytes(key PropertyKey) ([]byte, bool) {
	v, ok := c.properties[key].([]byte)
	return v, ok
}

// String returns the string stored under key.
func (c *Context) String(key PropertyKey) (string, bool) {
	v, ok := c.properties[key].(string)
	return v, ok
}

// Channel returns the channel.Channel stored under key.
func (c *Context) Channel(key PropertyKey) (channel.Channel, bool) {
	v, ok := c.properties[key].(channel.Channel)
	return v, ok && v != nil
}

// MarkSourceHandshake flags the context as client handshake bookkeeping.
func (c *Context) MarkSourceHandshake() {
	c.properties[SourceHandshakePresent] = true
}

// MarkTargetHandshake flags the context as backend handshake bookkeeping.
// target may be nil when no backend channel is available.
func (c *Context) MarkTargetHandshake(target channel.Channel) {
	c.properties[TargetHandshakePresent] = true
	if target != nil {
		c.properties[TargetChannel] = target
	}
}

// SetBinaryFrame attaches a ready-to-send binary frame.
func (c *Context) SetBinaryFrame(data []byte) {
	c.properties[BinaryFrame] = data
}

// SetTextFrame attaches a ready-to-send text frame.
func (c *Context) SetTextFrame(text string) {
	c.properties[TextFrame] = text
}
