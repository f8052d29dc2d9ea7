package mediation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		want    Mediator
		wantErr bool
	}{
		{"echo", ModeEcho, Echo{}, false},
		{"empty_defaults_to_echo", "", Echo{}, false},
		{"generic", ModeGeneric, NewGeneric("application/json"), false},
		{"unknown", Mode("transform"), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.mode, "application/json")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestFrameContext(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		c := FrameContext(channel.NewTextFrame("hi"))
		text, ok := c.String(message.TextFrame)
		require.True(t, ok)
		assert.Equal(t, "hi", text)
		_, ok = c.Bytes(message.BinaryFrame)
		assert.False(t, ok)
	})

	t.Run("binary", func(t *testing.T) {
		c := FrameContext(channel.NewBinaryFrame([]byte{1, 2}))
		data, ok := c.Bytes(message.BinaryFrame)
		require.True(t, ok)
		assert.Equal(t, []byte{1, 2}, data)
	})
}

func TestEcho_Mediate(t *testing.T) {
	in := FrameContext(channel.NewTextFrame("ping"))

	out, err := Echo{}.Mediate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Same(t, in, out[0])

	out, err = Echo{}.Mediate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGeneric_Mediate(t *testing.T) {
	g := NewGeneric("application/json")
	ctx := context.Background()

	t.Run("wraps_text", func(t *testing.T) {
		out, err := g.Mediate(ctx, FrameContext(channel.NewTextFrame(`{"n":1}`)))
		require.NoError(t, err)
		require.Len(t, out, 1)

		_, hasText := out[0].String(message.TextFrame)
		assert.False(t, hasText)
		msg := out[0].Message()
		require.NotNil(t, msg)
		assert.Equal(t, "application/json", msg.ContentType)
		assert.Equal(t, `{"n":1}`, msg.Body)
		assert.False(t, msg.Timestamp.IsZero())
	})

	t.Run("binary_passthrough", func(t *testing.T) {
		in := FrameContext(channel.NewBinaryFrame([]byte("raw")))
		out, err := g.Mediate(ctx, in)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Same(t, in, out[0])
	})

	t.Run("handshake_returned_flagged", func(t *testing.T) {
		in := message.NewContext(nil)
		in.MarkSourceHandshake()
		out, err := g.Mediate(ctx, in)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.True(t, out[0].Flag(message.SourceHandshakePresent))
	})

	t.Run("structured_passthrough", func(t *testing.T) {
		in := message.NewContext(message.NewMessage("text/plain", "x"))
		out, err := g.Mediate(ctx, in)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Same(t, in, out[0])
	})

	assert.Equal(t, "application/json", g.ContentType())
}
