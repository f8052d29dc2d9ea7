// Package channel implements live WebSocket connections as single-goroutine actors.
//
// Every Conn owns its transport. Frame writes and keepalive pings are performed by
// the actor goroutine; other goroutines only hand frames to it, so broadcasts from
// many origin connections never write to a transport concurrently.
package channel

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/wsgateway/internal/metrics"
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
)

// Transport is the write side of a WebSocket connection. *websocket.Conn satisfies it.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is an actor-backed channel.Channel.
type Conn struct {
	id        string
	info      channel.Info
	transport Transport
	opts      Options
	logger    *zap.Logger

	frames chan channel.Frame

	linkMu     sync.Mutex
	propagated bool // set once shutdown has taken the targets
	targets    []channel.Channel

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn creates a connection actor over transport and starts it.
func NewConn(id string, info channel.Info, transport Transport, opts Options) *Conn {
	opts.SetDefaults()

	c := &Conn{
		id:        id,
		info:      info,
		transport: transport,
		opts:      opts,
		logger:    opts.Logger.With(zap.String("conn_id", id)),
		frames:    make(chan channel.Frame, opts.QueueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	go c.run()
	return c
}

// ID returns the connection identifier
func (c *Conn) ID() string {
	return c.id
}

// Info returns the establishment-time attributes
func (c *Conn) Info() channel.Info {
	return c.info
}

// Write enqueues frame for the actor. It never blocks.
func (c *Conn) Write(frame channel.Frame) error {
	select {
	case <-c.quit:
		metrics.RecordDropped(metrics.DropClosed)
		return channel.ErrClosed
	default:
	}

	select {
	case c.frames <- frame:
		return nil
	case <-c.quit:
		metrics.RecordDropped(metrics.DropClosed)
		return channel.ErrClosed
	default:
		metrics.RecordDropped(metrics.DropQueueFull)
		c.logger.Warn("send queue full, dropping frame",
			zap.Stringer("frame_type", frame.Type),
			zap.Int("queue_size", c.opts.QueueSize),
		)
		return channel.ErrQueueFull
	}
}

// LinkClose registers target to be closed when this connection shuts down.
// It never waits on the actor. A target linked after shutdown has started is
// closed right away.
func (c *Conn) LinkClose(target channel.Channel) {
	if target == nil || target == channel.Channel(c) {
		return
	}

	c.linkMu.Lock()
	if !c.propagated {
		c.targets = append(c.targets, target)
		c.linkMu.Unlock()
		return
	}
	c.linkMu.Unlock()

	_ = target.Close()
}

// Close stops the actor. It returns without waiting; use Done to wait.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	return nil
}

// Done is closed when the actor has exited and the transport is closed
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) run() {
	defer c.shutdown()

	var pings <-chan time.Time
	if c.opts.PingInterval > 0 {
		ticker := time.NewTicker(c.opts.PingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-c.quit:
			return
		case frame := <-c.frames:
			if err := c.writeFrame(frame); err != nil {
				metrics.RecordDropped(metrics.DropWriteError)
				c.logger.Debug("frame write failed, closing connection", zap.Error(err))
				return
			}
		case <-pings:
			deadline := time.Now().Add(c.opts.WriteTimeout)
			if err := c.transport.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed, closing connection", zap.Error(err))
				return
			}
		}
	}
}

func (c *Conn) writeFrame(frame channel.Frame) error {
	if err := c.transport.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.transport.WriteMessage(messageType(frame.Type), frame.Data)
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.quit)
	})

	if err := c.transport.Close(); err != nil {
		c.logger.Debug("transport close failed", zap.Error(err))
	}
	close(c.done)

	c.linkMu.Lock()
	c.propagated = true
	targets := c.targets
	c.targets = nil
	c.linkMu.Unlock()

	for _, target := range targets {
		c.logger.Debug("propagating close", zap.String("target_id", target.ID()))
		_ = target.Close()
	}
}

func messageType(t channel.FrameType) int {
	if t == channel.FrameBinary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

var _ channel.Channel = (*Conn)(nil)
