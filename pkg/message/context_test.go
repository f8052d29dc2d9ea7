package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/wsgateway/internal/channel/channeltest"
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

func TestNewMessageWithHeaders_CopiesHeaders(t *testing.T) {
	headers := map[string]string{"X-Trace": "abc"}
	msg := NewMessageWithHeaders("text/plain", "body", headers)
	headers["X-Trace"] = "changed"

	assert.Equal(t, "abc", msg.Header("X-Trace"))
	assert.Empty(t, msg.Header("missing"))
	assert.False(t, msg.Timestamp.IsZero())

	var nilMsg *Message
	assert.Empty(t, nilMsg.Header("X-Trace"))
}

func TestContext_Flags(t *testing.T) {
	c := NewContext(nil)
	assert.Nil(t, c.Message())
	assert.False(t, c.Flag(SourceHandshakePresent))

	c.MarkSourceHandshake()
	assert.True(t, c.Flag(SourceHandshakePresent))

	c.SetProperty(TargetHandshakePresent, "yes")
	assert.False(t, c.Flag(TargetHandshakePresent))

	c.RemoveProperty(SourceHandshakePresent)
	assert.False(t, c.Flag(SourceHandshakePresent))
}

func TestContext_TargetHandshake(t *testing.T) {
	t.Run("with_target", func(t *testing.T) {
		target := channeltest.NewRecorder("backend", channel.Info{})
		c := NewContext(nil)
		c.MarkTargetHandshake(target)

		assert.True(t, c.Flag(TargetHandshakePresent))
		got, ok := c.Channel(TargetChannel)
		require.True(t, ok)
		assert.Same(t, target, got)
	})

	t.Run("without_target", func(t *testing.T) {
		c := NewContext(nil)
		c.MarkTargetHandshake(nil)

		assert.True(t, c.Flag(TargetHandshakePresent))
		_, ok := c.Channel(TargetChannel)
		assert.False(t, ok)
	})
}

func TestContext_Frames(t *testing.T) {
	c := NewContext(NewMessage("application/json", nil))

	_, ok := c.Bytes(BinaryFrame)
	assert.False(t, ok)
	_, ok = c.String(TextFrame)
	assert.False(t, ok)

	c.SetBinaryFrame([]byte{1})
	c.SetTextFrame("t")

	data, ok := c.Bytes(BinaryFrame)
	require.True(t, ok)
	assert.Equal(t, []byte{1}, data)
	text, ok := c.String(TextFrame)
	require.True(t, ok)
	assert.Equal(t, "t", text)

	replacement := NewMessage("text/plain", "x")
	c.SetMessage(replacement)
	assert.Same(t, replacement, c.Message())
}
