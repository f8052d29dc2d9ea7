// Package dispatch implements the outbound dispatch policy for inbound streaming
// connections: classification of pipeline results, frame resolution and fan-out.
package dispatch

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/wsgateway/internal/metrics"
	"github.com/rmacdonaldsmith/wsgateway/pkg/channel"
	"github.com/rmacdonaldsmith/wsgateway/pkg/dispatch"
	"github.com/rmacdonaldsmith/wsgateway/pkg/endpoint"
	"github.com/rmacdonaldsmith/wsgateway/pkg/subscriberpath"
)

var (
	// ErrUnrecognizedBroadcastLevel marks a connection configured outside {0,1,2}
	ErrUnrecognizedBroadcastLevel = errors.New("unrecognized broadcast level")

	// ErrMissingDirectory is returned when no endpoint directory is configured
	ErrMissingDirectory = errors.New("endpoint directory is required")

	// ErrMissingRegistry is returned when no subscriber registry is configured
	ErrMissingRegistry = errors.New("subscriber registry is required")

	// ErrMissingSerializer is returned when no serializer is configured
	ErrMissingSerializer = errors.New("serializer is required")
)

// Config wires the dispatcher's collaborators
type Config struct {
	Directory  endpoint.Directory
	Registry   subscriberpath.Registry
	Serializer dispatch.Serializer

	// Logger receives diagnostics. nil disables logging.
	Logger *zap.Logger
}

// Validate checks that every collaborator is present
func (c *Config) Validate() error {
	if c.Directory == nil {
		return ErrMissingDirectory
	}
	if c.Registry == nil {
		return ErrMissingRegistry
	}
	if c.Serializer == nil {
		return ErrMissingSerializer
	}
	return nil
}

// ResponseDispatcher implements dispatch.Dispatcher.
type ResponseDispatcher struct {
	directory  endpoint.Directory
	registry   subscriberpath.Registry
	serializer dispatch.Serializer
	logger     *zap.Logger
}

// NewResponseDispatcher creates a dispatcher from cfg
func NewResponseDispatcher(cfg Config) (*ResponseDispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ResponseDispatcher{
		directory:  cfg.Directory,
		registry:   cfg.Registry,
		serializer: cfg.Serializer,
		logger:     logger,
	}, nil
}

// Dispatch applies the dispatch policy to req originating on conn.
// Nothing is returned: failures are logged and the message is dropped.
func (d *ResponseDispatcher) Dispatch(ctx context.Context, req dispatch.SendRequest, conn channel.Channel) {
	if conn == nil {
		return
	}
	if req.Case() == dispatch.CaseSendGeneric && req.Payload() == nil {
		d.logger.Debug("no payload to send", zap.String("conn_id", conn.ID()))
		return
	}

	metrics.RecordDispatch(req.Case().String())

	switch req.Case() {
	case dispatch.CaseSuppress:
		return
	case dispatch.CaseLinkClose:
		d.linkClose(req, conn)
		return
	}

	frame, ok := d.resolveFrame(req, conn)
	if !ok {
		return
	}

	d.route(ctx, frame, conn)
}

func (d *ResponseDispatcher) linkClose(req dispatch.SendRequest, conn channel.Channel) {
	target := req.Target()
	if target == nil {
		d.logger.Debug("target handshake without target channel",
			zap.String("conn_id", conn.ID()),
		)
		return
	}

	conn.LinkClose(target)
	d.logger.Debug("linked target channel for close propagation",
		zap.String("conn_id", conn.ID()),
		zap.String("target_id", target.ID()),
	)
}

// resolveFrame returns the frame to transmit, serializing generic payloads
func (d *ResponseDispatcher) resolveFrame(req dispatch.SendRequest, conn channel.Channel) (channel.Frame, bool) {
	switch req.Case() {
	case dispatch.CaseSendBinary:
		return channel.NewBinaryFrame(req.Binary()), true
	case dispatch.CaseSendText:
		return channel.NewTextFrame(req.Text()), true
	}

	payload := req.Payload()
	text, err := d.serializer.Serialize(payload)
	if err != nil {
		metrics.SerializationFailuresTotal.Inc()
		d.logger.Error("failed to serialize message, dropping send",
			zap.String("conn_id", conn.ID()),
			zap.String("content_type", payload.ContentType),
			zap.Error(err),
		)
		return channel.Frame{}, false
	}

	return channel.NewTextFrame(text), true
}

// route fans frame out according to the origin's broadcast level
func (d *ResponseDispatcher) route(ctx context.Context, frame channel.Frame, conn channel.Channel) {
	info := conn.Info()
	level := info.BroadcastLevel

	switch level {
	case channel.Unicast:
		if err := conn.Write(frame); err != nil {
			d.logger.Debug("unicast write dropped",
				zap.String("conn_id", conn.ID()),
				zap.Error(err),
			)
			return
		}
		metrics.RecordDelivered(level.String(), 1)

	case channel.Broadcast, channel.ExclusiveBroadcast:
		identity := d.directory.Resolve(info.Port, info.Tenant)

		var (
			sent int
			err  error
		)
		if level == channel.Broadcast {
			sent, err = d.registry.Broadcast(ctx, identity, info.SubscriberPath, frame)
		} else {
			sent, err = d.registry.BroadcastExclusive(ctx, identity, info.SubscriberPath, frame, conn)
		}
		if err != nil {
			d.logger.Warn("broadcast failed",
				zap.String("conn_id", conn.ID()),
				zap.String("endpoint", string(identity)),
				zap.String("subscriber_path", info.SubscriberPath),
				zap.Error(err),
			)
			return
		}
		metrics.RecordDelivered(level.String(), sent)

	default:
		metrics.UnrecognizedBroadcastLevelTotal.Inc()
		d.logger.Warn("unrecognized broadcast level, frame not delivered",
			zap.String("conn_id", conn.ID()),
			zap.Int("broadcast_level", int(level)),
			zap.Error(ErrUnrecognizedBroadcastLevel),
		)
	}
}

var _ dispatch.Dispatcher = (*ResponseDispatcher)(nil)
