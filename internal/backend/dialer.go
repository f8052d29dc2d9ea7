// Package backend connects inbound sessions to a target WebSocket service.
//
// Each inbound connection gets its own backend connection. Frames read from the
// backend are relayed to the client through the session's response sender, so they
// follow the inbound endpoint's fan-out policy.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	ichannel "github.com/rmacdonaldsmith/wsgateway/internal/channel"
	"github.com/rmacdonaldsmith/wsgateway/internal/mediation"
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/dispatch"
)

var (
	// ErrEmptyURL is returned when no backend URL is configured
	ErrEmptyURL = errors.New("backend url is required")

	// ErrUnsupportedScheme is returned for URLs that are not ws:// or wss://
	ErrUnsupportedScheme = errors.New("backend url must use ws or wss scheme")
)

// Config holds backend dialer configuration
type Config struct {
	// URL is the backend base URL. The inbound subscriber path is appended to it.
	URL string

	// HandshakeTimeout bounds the backend WebSocket handshake
	HandshakeTimeout time.Duration

	// ReadLimit is the maximum accepted backend frame size in bytes. 0 means no limit.
	ReadLimit int64

	// Conn configures the backend connection actor
	Conn ichannel.Options

	// Logger receives backend diagnostics. nil disables logging.
	Logger *zap.Logger
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Validate checks the backend URL
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrEmptyURL
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return ErrUnsupportedScheme
	}
	return nil
}

// Dialer opens backend connections
type Dialer struct {
	base   *url.URL
	dialer *websocket.Dialer
	config Config
	logger *zap.Logger
}

// NewDialer creates a Dialer from config
func NewDialer(config Config) (*Dialer, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base, _ := url.Parse(config.URL)

	return &Dialer{
		base: base,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
		},
		config: config,
		logger: config.Logger,
	}, nil
}

// URLFor returns the backend URL for an inbound subscriber path
func (d *Dialer) URLFor(path string) string {
	u := *d.base
	if path != "" && path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	return u.String()
}

// Dial connects to the backend on behalf of the inbound connection sourceID
func (d *Dialer) Dial(ctx context.Context, path, sourceID string) (*Link, error) {
	target := d.URLFor(path)

	ws, _, err := d.dialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", target, err)
	}
	if d.config.ReadLimit > 0 {
		ws.SetReadLimit(d.config.ReadLimit)
	}

	opts := d.config.Conn
	if opts.Logger == nil {
		opts.Logger = d.logger
	}

	conn := ichannel.NewConn(sourceID+"/backend", channel.Info{SubscriberPath: path}, ws, opts)

	d.logger.Debug("backend connected",
		zap.String("conn_id", sourceID),
		zap.String("backend_url", target),
	)

	return &Link{ws: ws, conn: conn, logger: d.logger}, nil
}

// Link is one live backend connection
type Link struct {
	ws     *websocket.Conn
	conn   *ichannel.Conn
	logger *zap.Logger
}

// Channel returns the backend connection as a channel for writes and close links
func (l *Link) Channel() channel.Channel {
	return l.conn
}

// Relay reads backend frames and hands each to sender until the backend connection
// ends or ctx is cancelled. It returns the read error that ended the relay, or nil
// on a normal close.
func (l *Link) Relay(ctx context.Context, sender dispatch.ResponseSender) error {
	stop := context.AfterFunc(ctx, func() { _ = l.conn.Close() })
	defer stop()
	defer l.conn.Close()

	for {
		mt, data, err := l.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			select {
			case <-l.conn.Done():
				return nil
			default:
			}
			return fmt.Errorf("read backend frame: %w", err)
		}

		frame := channel.NewTextFrame(string(data))
		if mt == websocket.BinaryMessage {
			frame = channel.Frame{Type: channel.FrameBinary, Data: data}
		}
		sender.SendBack(ctx, mediation.FrameContext(frame))
	}
}
