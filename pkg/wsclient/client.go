// Package wsclient is a small WebSocket client for gateway endpoints.
//
// Incoming frames are delivered on Frames(); read errors on Errors(). Writes are
// serialized with a mutex so SendText and SendBinary are safe for concurrent use.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

// ErrClosed is returned by sends after Close
var ErrClosed = errors.New("client closed")

// Config holds client configuration
type Config struct {
	// URL is the endpoint URL (e.g., "ws://localhost:8080/chat")
	URL string

	// Header is sent with the upgrade request (optional)
	Header http.Header

	// BufferSize for the frame channel
	BufferSize int

	// HandshakeTimeout bounds the WebSocket handshake
	HandshakeTimeout time.Duration

	// WriteTimeout bounds every write
	WriteTimeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = 100
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
}

// Client is one connection to a gateway endpoint
type Client struct {
	config Config
	conn   *websocket.Conn

	writeMu sync.Mutex
	frames  chan channel.Frame
	errors  chan error
	done    chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects to config.URL
func Dial(ctx context.Context, config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	config.SetDefaults()

	dialer := websocket.Dialer{HandshakeTimeout: config.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, config.URL, config.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", config.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", config.URL, err)
	}

	c := &Client{
		config: config,
		conn:   conn,
		frames: make(chan channel.Frame, config.BufferSize),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}

	go c.readLoop()
	return c, nil
}

// Frames returns the channel for receiving frames. It is closed when the connection ends.
func (c *Client) Frames() <-chan channel.Frame {
	return c.frames
}

// Errors returns the channel for receiving read errors
func (c *Client) Errors() <-chan error {
	return c.errors
}

// Done returns a channel that's closed when the read loop ends
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendText sends a text frame
func (c *Client) SendText(text string) error {
	return c.write(websocket.TextMessage, []byte(text))
}

// SendBinary sends a binary frame
func (c *Client) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close sends a close frame, closes the connection and waits for the read loop
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	defer close(c.frames)
	defer close(c.errors)

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					select {
					case c.errors <- fmt.Errorf("read frame: %w", err):
					default:
					}
				}
			}
			return
		}

		frame := channel.Frame{Type: channel.FrameText, Data: data}
		if mt == websocket.BinaryMessage {
			frame.Type = channel.FrameBinary
		}

		select {
		case c.frames <- frame:
		case <-c.closed:
			return
		}
	}
}
