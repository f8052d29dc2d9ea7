package channel

import (
	"time"

	"go.uber.org/zap"
)

// Options configures a connection actor
type Options struct {
	// QueueSize is the capacity of the outbound frame queue
	QueueSize int

	// WriteTimeout bounds every frame and ping write
	WriteTimeout time.Duration

	// PingInterval is the keepalive ping period. Negative disables pings.
	PingInterval time.Duration

	// Logger receives connection diagnostics. nil disables logging.
	Logger *zap.Logger
}

// SetDefaults sets sensible default values for unset fields
func (o *Options) SetDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval == 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}
