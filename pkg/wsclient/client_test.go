package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextFrame(t *testing.T, c *Client) channel.Frame {
	t.Helper()
	select {
	case f, ok := <-c.Frames():
		require.True(t, ok, "frames channel closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return channel.Frame{}
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	t.Run("sets_default_values", func(t *testing.T) {
		config := Config{}
		config.SetDefaults()

		assert.Equal(t, 100, config.BufferSize)
		assert.Equal(t, 10*time.Second, config.HandshakeTimeout)
		assert.Equal(t, 10*time.Second, config.WriteTimeout)
	})

	t.Run("preserves_custom_values", func(t *testing.T) {
		config := Config{BufferSize: 5, HandshakeTimeout: time.Second, WriteTimeout: 2 * time.Second}
		config.SetDefaults()

		assert.Equal(t, 5, config.BufferSize)
		assert.Equal(t, time.Second, config.HandshakeTimeout)
		assert.Equal(t, 2*time.Second, config.WriteTimeout)
	})
}

func TestDial(t *testing.T) {
	t.Run("requires_url", func(t *testing.T) {
		c, err := Dial(context.Background(), Config{})
		assert.Error(t, err)
		assert.Nil(t, c)
	})

	t.Run("reports_status_on_rejected_upgrade", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := Dial(context.Background(), Config{URL: wsURL(srv)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 403")
	})
}

func TestClient_RoundTrip(t *testing.T) {
	c, err := Dial(context.Background(), Config{URL: wsURL(echoServer(t))})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SendText("hello"))
	f := nextFrame(t, c)
	assert.Equal(t, channel.FrameText, f.Type)
	assert.Equal(t, "hello", f.Text())

	require.NoError(t, c.SendBinary([]byte{0x00, 0xff}))
	f = nextFrame(t, c)
	assert.Equal(t, channel.FrameBinary, f.Type)
	assert.Equal(t, []byte{0x00, 0xff}, f.Data)
}

func TestClient_ConcurrentSends(t *testing.T) {
	c, err := Dial(context.Background(), Config{URL: wsURL(echoServer(t))})
	require.NoError(t, err)
	defer c.Close()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.SendText("x"))
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, "x", nextFrame(t, c).Text())
	}
}

func TestClient_Close(t *testing.T) {
	c, err := Dial(context.Background(), Config{URL: wsURL(echoServer(t))})
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop still running after Close")
	}

	assert.ErrorIs(t, c.SendText("late"), ErrClosed)

	_, ok := <-c.Frames()
	assert.False(t, ok)
}

func TestClient_ServerClose(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = ws.WriteMessage(websocket.TextMessage, []byte("bye"))
		_ = ws.Close()
	}))
	defer srv.Close()

	c, err := Dial(context.Background(), Config{URL: wsURL(srv)})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "bye", nextFrame(t, c).Text())

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not end after server closed")
	}
	select {
	case err, ok := <-c.Errors():
		if ok {
			assert.Error(t, err)
		}
	default:
	}
}
